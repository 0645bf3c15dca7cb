package domain

// ClaimStatus tracks the lifecycle of a pending settlement claim.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimExpired   ClaimStatus = "expired"
	ClaimCancelled ClaimStatus = "cancelled"
)

// Claim is an intermediate settlement request on an escrow. While a claim
// is pending the escrow cannot be released; the claim must be resolved
// (approved, rejected, expired, or cancelled) first.
type Claim struct {
	ClaimID     uint64
	EscrowID    uint64
	Claimant    string
	Amount      int64
	RequestedAt int64
	ExpiresAt   int64
	Status      ClaimStatus
}

// Open reports whether the claim still blocks its escrow.
func (c Claim) Open() bool { return c.Status == ClaimPending }

// ExpiredAt reports whether a pending claim has lapsed at now.
func (c Claim) ExpiredAt(now int64) bool {
	return c.Status == ClaimPending && c.ExpiresAt != 0 && now >= c.ExpiresAt
}
