package domain

import "time"

type EscrowStatus string

const (
	StatusLocked   EscrowStatus = "locked"
	StatusReleased EscrowStatus = "released"
	StatusRefunded EscrowStatus = "refunded"
	StatusDisputed EscrowStatus = "disputed"
)

// NoDeadline marks an escrow that never becomes refundable by timeout.
const NoDeadline int64 = 0

// Escrow is a single locked-value record. Created by lock, mutated only by
// release/refund/dispute transitions, never deleted.
type Escrow struct {
	EscrowID              uint64
	ProgramID             string
	Depositor             string
	TokenID               string
	Amount                int64
	RemainingAmount       int64
	Deadline              int64
	Status                EscrowStatus
	NonTransferableReward bool
	PendingClaimID        *uint64
	LastLockAt            time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsTerminal reports whether the escrow reached a final state.
// Terminal escrows always carry a zero remaining amount.
func (e Escrow) IsTerminal() bool {
	return e.Status == StatusReleased || e.Status == StatusRefunded
}

// Releasable reports whether a release transition is allowed from the
// current status. Disputed escrows release only through dispute resolution.
func (e Escrow) Releasable() bool {
	return e.Status == StatusLocked
}

// Refundable reports whether a refund transition is allowed from the
// current status (deadline/grace gating is checked separately).
func (e Escrow) Refundable() bool {
	return e.Status == StatusLocked
}

// DeadlinePassed reports whether the refund deadline has elapsed at now
// (unix seconds). Escrows without a deadline never pass it.
func (e Escrow) DeadlinePassed(now int64) bool {
	return e.Deadline != NoDeadline && now >= e.Deadline
}

// ValidateInvariant checks the ledger invariant 0 <= remaining <= amount,
// with remaining == 0 in terminal states. Used by the upgrade simulation.
func (e Escrow) ValidateInvariant() bool {
	if e.RemainingAmount < 0 || e.RemainingAmount > e.Amount {
		return false
	}
	if e.IsTerminal() && e.RemainingAmount != 0 {
		return false
	}
	return true
}

// SearchCriteria filters paginated escrow queries. A zero-value criteria
// matches every escrow.
type SearchCriteria struct {
	Status    EscrowStatus
	Depositor string
	ProgramID string
}

// Matches reports whether the escrow satisfies every set filter.
func (c SearchCriteria) Matches(e Escrow) bool {
	if c.Status != "" && e.Status != c.Status {
		return false
	}
	if c.Depositor != "" && e.Depositor != c.Depositor {
		return false
	}
	if c.ProgramID != "" && e.ProgramID != c.ProgramID {
		return false
	}
	return true
}

// MaxSearchPageSize caps a single page of escrow search results.
const MaxSearchPageSize = 20

// MaxBatchSize caps the item count of batch lock/release calls.
const MaxBatchSize = 20
