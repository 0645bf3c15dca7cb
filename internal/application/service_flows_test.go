package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

func TestBatchLockAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.ledger.Seed(testToken, "alice", 1_000)

	items := []LockInput{
		{EscrowID: 1, ProgramID: testProgram, Depositor: "alice", Amount: 100},
		{EscrowID: 1, ProgramID: testProgram, Depositor: "alice", Amount: 200},
	}
	if _, err := f.svc.BatchLock(ctx, f.participant("alice"), items); err != domain.ErrEscrowExists {
		t.Fatalf("expected ErrEscrowExists for in-batch duplicate, got %v", err)
	}
	if count, _ := f.repos.Escrows.Count(ctx); count != 0 { t.Fatalf("failed batch must create nothing, got %d rows", count) }
	if got := f.ledger.Balance(testToken, "alice"); got != 1_000 { t.Fatalf("failed batch must not move funds, got %d", got) }

	if _, err := f.svc.BatchLock(ctx, f.participant("alice"), nil); err != domain.ErrBatchShape {
		t.Fatalf("expected ErrBatchShape for empty batch, got %v", err)
	}

	items[1].EscrowID = 2
	rows, err := f.svc.BatchLock(ctx, f.participant("alice"), items)
	if err != nil { t.Fatalf("batch lock: %v", err) }
	if len(rows) != 2 { t.Fatalf("expected 2 escrows, got %d", len(rows)) }
	if got := f.ledger.Balance(testToken, testEngine); got != 300 { t.Fatalf("custody balance: got %d", got) }
}

func TestBatchLockRejectsOversizedBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.ledger.Seed(testToken, "alice", int64(domain.MaxBatchSize+1))
	items := make([]LockInput, domain.MaxBatchSize+1)
	for i := range items {
		items[i] = LockInput{EscrowID: uint64(i + 1), ProgramID: testProgram, Depositor: "alice", Amount: 1}
	}
	if _, err := f.svc.BatchLock(ctx, f.participant("alice"), items); err != domain.ErrBatchShape {
		t.Fatalf("expected ErrBatchShape, got %v", err)
	}
	if count, _ := f.repos.Escrows.Count(ctx); count != 0 { t.Fatalf("oversized batch must create nothing, got %d", count) }
}

func TestBatchReleaseSpendingValidatedBeforeAnyItemSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	cfg := domain.SpendingLimitConfig{ProgramID: testProgram, TokenID: testToken, MaxAmount: 150, WindowSeconds: 3_600, Enabled: true}
	if err := f.svc.SetSpendingLimit(ctx, f.admin(), cfg); err != nil { t.Fatalf("set limit: %v", err) }
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	f.lock(t, 2, "alice", 100, domain.NoDeadline)

	items := []ReleaseInput{{EscrowID: 1, Recipient: "bob"}, {EscrowID: 2, Recipient: "bob"}}
	if _, err := f.svc.BatchRelease(ctx, f.admin(), items); err != domain.ErrSpendingLimitExceeded {
		t.Fatalf("expected ErrSpendingLimitExceeded, got %v", err)
	}
	// The replay rejected the batch before the first item settled.
	if got := f.ledger.Balance(testToken, "bob"); got != 0 { t.Fatalf("no item may pay out, got %d", got) }
	for _, id := range []uint64{1, 2} {
		row, err := f.svc.GetEscrow(ctx, f.admin(), id)
		if err != nil { t.Fatalf("get escrow %d: %v", id, err) }
		if row.Status != domain.StatusLocked { t.Fatalf("escrow %d must stay locked, got %s", id, row.Status) }
	}
}

func TestBatchReleaseSettlesAllItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	f.lock(t, 2, "alice", 200, domain.NoDeadline)
	out, err := f.svc.BatchRelease(ctx, f.admin(), []ReleaseInput{{EscrowID: 1, Recipient: "bob"}, {EscrowID: 2, Recipient: "carol"}})
	if err != nil { t.Fatalf("batch release: %v", err) }
	if len(out) != 2 { t.Fatalf("expected 2 settlements, got %d", len(out)) }
	if got := f.ledger.Balance(testToken, "bob"); got != 100 { t.Fatalf("bob balance: got %d", got) }
	if got := f.ledger.Balance(testToken, "carol"); got != 200 { t.Fatalf("carol balance: got %d", got) }
	if out[1].Receipt.ReceiptID != out[0].Receipt.ReceiptID+1 { t.Fatalf("receipt ids must stay contiguous in a batch") }
}

func TestBatchReleaseRejectsDuplicateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	items := []ReleaseInput{{EscrowID: 1, Recipient: "bob"}, {EscrowID: 1, Recipient: "carol"}}
	if _, err := f.svc.BatchRelease(ctx, f.admin(), items); err != domain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus for duplicate item, got %v", err)
	}
}

func TestClaimBlocksReleaseUntilResolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	claim, err := f.svc.RequestClaim(ctx, f.participant("carol"), RequestClaimInput{EscrowID: 1, Amount: 400})
	if err != nil { t.Fatalf("request claim: %v", err) }
	if claim.Status != domain.ClaimPending { t.Fatalf("expected pending, got %s", claim.Status) }

	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != domain.ErrClaimPending {
		t.Fatalf("expected ErrClaimPending, got %v", err)
	}
	if _, err := f.svc.Refund(ctx, f.admin(), RefundInput{EscrowID: 1, AdminApproval: true}); err != domain.ErrClaimPending {
		t.Fatalf("refund must also block, got %v", err)
	}

	resolved, err := f.svc.ResolveClaim(ctx, f.admin(), ResolveClaimInput{ClaimID: claim.ClaimID, Approve: false})
	if err != nil { t.Fatalf("resolve claim: %v", err) }
	if resolved.Status != domain.ClaimRejected { t.Fatalf("expected rejected, got %s", resolved.Status) }
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil {
		t.Fatalf("release after rejection: %v", err)
	}
}

func TestLapsedClaimExpiresInPlaceOnRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	claim, err := f.svc.RequestClaim(ctx, f.participant("carol"), RequestClaimInput{EscrowID: 1, Amount: 400, ExpiresAt: f.now.Unix() + 500})
	if err != nil { t.Fatalf("request claim: %v", err) }

	f.advance(501 * time.Second)
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil {
		t.Fatalf("release past claim expiry: %v", err)
	}
	got, err := f.repos.Claims.GetByID(ctx, claim.ClaimID)
	if err != nil { t.Fatalf("get claim: %v", err) }
	if got.Status != domain.ClaimExpired { t.Fatalf("expected expired, got %s", got.Status) }
}

func TestResolveClaimApproveSettlesToClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	claim, err := f.svc.RequestClaim(ctx, f.participant("carol"), RequestClaimInput{EscrowID: 1, Amount: 1_000})
	if err != nil { t.Fatalf("request claim: %v", err) }
	resolved, err := f.svc.ResolveClaim(ctx, f.admin(), ResolveClaimInput{ClaimID: claim.ClaimID, Approve: true})
	if err != nil { t.Fatalf("resolve: %v", err) }
	if resolved.Status != domain.ClaimApproved { t.Fatalf("expected approved, got %s", resolved.Status) }
	if got := f.ledger.Balance(testToken, "carol"); got != 1_000 { t.Fatalf("claimant balance: got %d", got) }
	row, _ := f.svc.GetEscrow(ctx, f.admin(), 1)
	if row.Status != domain.StatusReleased { t.Fatalf("expected released, got %s", row.Status) }
}

func TestResolveClaimApprovalLeavesClaimPendingWhenSettlementRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	cfg := domain.SpendingLimitConfig{ProgramID: testProgram, TokenID: testToken, MaxAmount: 50, WindowSeconds: 3_600, Enabled: true}
	if err := f.svc.SetSpendingLimit(ctx, f.admin(), cfg); err != nil { t.Fatalf("set limit: %v", err) }
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	claim, err := f.svc.RequestClaim(ctx, f.participant("carol"), RequestClaimInput{EscrowID: 1, Amount: 100})
	if err != nil { t.Fatalf("request claim: %v", err) }

	if _, err := f.svc.ResolveClaim(ctx, f.admin(), ResolveClaimInput{ClaimID: claim.ClaimID, Approve: true}); err != domain.ErrSpendingLimitExceeded {
		t.Fatalf("expected ErrSpendingLimitExceeded, got %v", err)
	}
	stored, err := f.repos.Claims.GetByID(ctx, claim.ClaimID)
	if err != nil { t.Fatalf("get claim: %v", err) }
	if stored.Status != domain.ClaimPending { t.Fatalf("rejected settlement must leave the claim pending, got %s", stored.Status) }
	row, err := f.repos.Escrows.GetByID(ctx, 1)
	if err != nil { t.Fatalf("get escrow: %v", err) }
	if row.Status != domain.StatusLocked { t.Fatalf("escrow must stay locked, got %s", row.Status) }
	if row.PendingClaimID == nil || *row.PendingClaimID != claim.ClaimID { t.Fatalf("claim link must survive the rejection, got %v", row.PendingClaimID) }
	if got := f.ledger.Balance(testToken, "carol"); got != 0 { t.Fatalf("no payout on rejection, got %d", got) }

	cfg.MaxAmount = 200
	if err := f.svc.SetSpendingLimit(ctx, f.admin(), cfg); err != nil { t.Fatalf("raise limit: %v", err) }
	resolved, err := f.svc.ResolveClaim(ctx, f.admin(), ResolveClaimInput{ClaimID: claim.ClaimID, Approve: true})
	if err != nil { t.Fatalf("retry resolve: %v", err) }
	if resolved.Status != domain.ClaimApproved { t.Fatalf("expected approved on retry, got %s", resolved.Status) }
	if got := f.ledger.Balance(testToken, "carol"); got != 100 { t.Fatalf("claimant balance after retry: got %d", got) }
}

func TestCapabilityReleaseConsumesUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	grant, err := f.svc.GrantCapability(ctx, f.participant("alice"), GrantCapabilityInput{
		EscrowID: 1, Grantee: "operator_7", Action: domain.ActionRelease, AmountCeiling: 1_000, Uses: 2,
	})
	if err != nil { t.Fatalf("grant: %v", err) }

	if _, err := f.svc.CapabilityRelease(ctx, f.participant("intruder"), CapabilityReleaseInput{CapabilityID: grant.CapabilityID, EscrowID: 1, Recipient: "bob"}); err != domain.ErrUnauthorized {
		t.Fatalf("non-grantee must be rejected, got %v", err)
	}
	out, err := f.svc.CapabilityRelease(ctx, f.participant("operator_7"), CapabilityReleaseInput{CapabilityID: grant.CapabilityID, EscrowID: 1, Recipient: "bob"})
	if err != nil { t.Fatalf("capability release: %v", err) }
	if out.NetAmount != 1_000 { t.Fatalf("expected full release, got %d", out.NetAmount) }
	got, err := f.repos.Capabilities.GetByID(ctx, grant.CapabilityID)
	if err != nil { t.Fatalf("get capability: %v", err) }
	if got.UsesRemaining != 1 { t.Fatalf("expected one use consumed, got %d left", got.UsesRemaining) }
}

func TestCapabilityCeilingAndRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	grant, err := f.svc.GrantCapability(ctx, f.participant("alice"), GrantCapabilityInput{
		EscrowID: 1, Grantee: "operator_7", Action: domain.ActionRelease, AmountCeiling: 500, Uses: 1,
	})
	if err != nil { t.Fatalf("grant: %v", err) }
	if _, err := f.svc.CapabilityRelease(ctx, f.participant("operator_7"), CapabilityReleaseInput{CapabilityID: grant.CapabilityID, EscrowID: 1, Recipient: "bob"}); err != domain.ErrCapabilityCeiling {
		t.Fatalf("expected ErrCapabilityCeiling, got %v", err)
	}

	if _, err := f.svc.RevokeCapability(ctx, f.participant("alice"), grant.CapabilityID); err != nil { t.Fatalf("revoke: %v", err) }
	if _, err := f.svc.RevokeCapability(ctx, f.participant("alice"), grant.CapabilityID); err != domain.ErrCapabilityRevoked {
		t.Fatalf("double revoke must fail, got %v", err)
	}
}

func TestCapabilityReleaseRestoresUseOnRejectedSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	cfg := domain.SpendingLimitConfig{ProgramID: testProgram, TokenID: testToken, MaxAmount: 50, WindowSeconds: 3_600, Enabled: true}
	if err := f.svc.SetSpendingLimit(ctx, f.admin(), cfg); err != nil { t.Fatalf("set limit: %v", err) }
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	grant, err := f.svc.GrantCapability(ctx, f.participant("alice"), GrantCapabilityInput{
		EscrowID: 1, Grantee: "operator_7", Action: domain.ActionRelease, AmountCeiling: 100, Uses: 1,
	})
	if err != nil { t.Fatalf("grant: %v", err) }

	if _, err := f.svc.CapabilityRelease(ctx, f.participant("operator_7"), CapabilityReleaseInput{CapabilityID: grant.CapabilityID, EscrowID: 1, Recipient: "bob"}); err != domain.ErrSpendingLimitExceeded {
		t.Fatalf("expected ErrSpendingLimitExceeded, got %v", err)
	}
	got, err := f.repos.Capabilities.GetByID(ctx, grant.CapabilityID)
	if err != nil { t.Fatalf("get capability: %v", err) }
	if got.UsesRemaining != 1 { t.Fatalf("use must be restored after rejected settlement, got %d left", got.UsesRemaining) }
	if bal := f.ledger.Balance(testToken, "bob"); bal != 0 { t.Fatalf("no payout on rejection, got %d", bal) }
}

// failingCapabilityUpdates rejects every Update while serving reads from
// the wrapped store.
type failingCapabilityUpdates struct {
	*memory.CapabilityRepository
	err error
}

func (r failingCapabilityUpdates) Update(context.Context, domain.Capability) error { return r.err }

func TestCapabilityReleaseAbortsWhenUseCannotBePersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	grant, err := f.svc.GrantCapability(ctx, f.participant("alice"), GrantCapabilityInput{
		EscrowID: 1, Grantee: "operator_7", Action: domain.ActionRelease, AmountCeiling: 100, Uses: 1,
	})
	if err != nil { t.Fatalf("grant: %v", err) }
	errStore := errors.New("capability store unavailable")
	f.svc.capabilities = failingCapabilityUpdates{CapabilityRepository: f.repos.Capabilities, err: errStore}

	if _, err := f.svc.CapabilityRelease(ctx, f.participant("operator_7"), CapabilityReleaseInput{CapabilityID: grant.CapabilityID, EscrowID: 1, Recipient: "bob"}); !errors.Is(err, errStore) {
		t.Fatalf("expected the storage error, got %v", err)
	}
	if bal := f.ledger.Balance(testToken, "bob"); bal != 0 { t.Fatalf("funds must not move when the use cannot be persisted, got %d", bal) }
	row, err := f.repos.Escrows.GetByID(ctx, 1)
	if err != nil { t.Fatalf("get escrow: %v", err) }
	if row.Status != domain.StatusLocked { t.Fatalf("escrow must stay locked, got %s", row.Status) }
	stored, err := f.repos.Capabilities.GetByID(ctx, grant.CapabilityID)
	if err != nil { t.Fatalf("get capability: %v", err) }
	if stored.UsesRemaining != 1 { t.Fatalf("stored grant must keep its use, got %d left", stored.UsesRemaining) }
}

func TestDisputeFreezesAndResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 700, domain.NoDeadline)
	dispute, err := f.svc.OpenDispute(ctx, f.participant("alice"), OpenDisputeInput{EscrowID: 1, Reason: "non-delivery"})
	if err != nil { t.Fatalf("open dispute: %v", err) }

	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != domain.ErrInvalidStatus {
		t.Fatalf("disputed escrow must not release directly, got %v", err)
	}
	if _, err := f.svc.OpenDispute(ctx, f.participant("alice"), OpenDisputeInput{EscrowID: 1}); err != domain.ErrDisputeAlreadyOpen {
		t.Fatalf("expected ErrDisputeAlreadyOpen, got %v", err)
	}

	out, err := f.svc.ResolveDispute(ctx, f.admin(), ResolveDisputeInput{DisputeID: dispute.DisputeID, Outcome: domain.DisputeRefundToDepositor})
	if err != nil { t.Fatalf("resolve: %v", err) }
	if out.Escrow.Status != domain.StatusRefunded { t.Fatalf("expected refunded, got %s", out.Escrow.Status) }
	if got := f.ledger.Balance(testToken, "alice"); got != 700 { t.Fatalf("depositor balance: got %d", got) }
	stored, _ := f.repos.Disputes.GetByID(ctx, dispute.DisputeID)
	if !stored.Resolved || stored.Outcome != domain.DisputeRefundToDepositor { t.Fatalf("dispute record not closed: %+v", stored) }
}

func TestDisputeReleaseOutcomePaysRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 700, domain.NoDeadline)
	dispute, err := f.svc.OpenDispute(ctx, f.admin(), OpenDisputeInput{EscrowID: 1, Reason: "escalated"})
	if err != nil { t.Fatalf("open dispute: %v", err) }
	if _, err := f.svc.ResolveDispute(ctx, f.admin(), ResolveDisputeInput{DisputeID: dispute.DisputeID, Outcome: domain.DisputeReleaseToRecipient}); err != domain.ErrInvalidInput {
		t.Fatalf("release outcome requires a recipient, got %v", err)
	}
	out, err := f.svc.ResolveDispute(ctx, f.admin(), ResolveDisputeInput{DisputeID: dispute.DisputeID, Outcome: domain.DisputeReleaseToRecipient, Recipient: "bob"})
	if err != nil { t.Fatalf("resolve: %v", err) }
	if out.Escrow.Status != domain.StatusReleased { t.Fatalf("expected released, got %s", out.Escrow.Status) }
	if got := f.ledger.Balance(testToken, "bob"); got != 700 { t.Fatalf("recipient balance: got %d", got) }
}

func TestDisputeOnlyDepositorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	if _, err := f.svc.OpenDispute(ctx, f.participant("stranger"), OpenDisputeInput{EscrowID: 1}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEmergencyWithdrawRequiresFullPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 900, domain.NoDeadline)

	if _, err := f.svc.EmergencyWithdraw(ctx, f.admin(), EmergencyWithdrawInput{EscrowID: 1, Destination: "recovery_1"}); err != domain.ErrInvalidStatus {
		t.Fatalf("withdraw without full pause must fail, got %v", err)
	}
	paused := true
	if _, err := f.svc.SetPaused(ctx, f.admin(), SetPausedInput{LockPaused: &paused, ReleasePaused: &paused, RefundPaused: &paused, Reason: "drain"}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	out, err := f.svc.EmergencyWithdraw(ctx, f.admin(), EmergencyWithdrawInput{EscrowID: 1, Destination: "recovery_1"})
	if err != nil { t.Fatalf("withdraw: %v", err) }
	if out.GrossAmount != 900 { t.Fatalf("expected full drain, got %d", out.GrossAmount) }
	if got := f.ledger.Balance(testToken, "recovery_1"); got != 900 { t.Fatalf("destination balance: got %d", got) }
	if _, err := f.svc.EmergencyWithdraw(ctx, f.admin(), EmergencyWithdrawInput{EscrowID: 1, Destination: "recovery_1"}); err != domain.ErrInvalidStatus {
		t.Fatalf("terminal escrow must not drain twice, got %v", err)
	}
}

func TestSimulateUpgradeReportsSafeEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 500, domain.NoDeadline)

	report, err := f.svc.SimulateUpgrade(ctx, f.admin())
	if err != nil { t.Fatalf("simulate: %v", err) }
	if !report.Safe { t.Fatalf("healthy engine must report safe: %+v", report.Checks) }
	if len(report.Checks) != 10 { t.Fatalf("expected 10 checks, got %d", len(report.Checks)) }
}

func TestSimulateUpgradeFlagsBrokenInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	row := f.lock(t, 1, "alice", 500, domain.NoDeadline)
	row.RemainingAmount = -5
	if err := f.repos.Escrows.Update(ctx, row); err != nil { t.Fatalf("corrupt row: %v", err) }

	report, err := f.svc.SimulateUpgrade(ctx, f.admin())
	if err != nil { t.Fatalf("simulate: %v", err) }
	if report.Safe { t.Fatalf("broken invariant must report unsafe") }
	var flagged bool
	for _, c := range report.Checks {
		if c.Name == "escrow_invariants" && !c.Passed { flagged = true }
	}
	if !flagged { t.Fatalf("escrow_invariants check must fail: %+v", report.Checks) }
}

func TestSimulateUpgradeRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if _, err := f.svc.SimulateUpgrade(ctx, f.participant("alice")); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
