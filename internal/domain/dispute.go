package domain

// DisputeOutcome is the resolver's verdict on a disputed escrow.
type DisputeOutcome string

const (
	DisputeReleaseToRecipient DisputeOutcome = "release"
	DisputeRefundToDepositor  DisputeOutcome = "refund"
)

// Dispute freezes an escrow until an authorized resolver picks an outcome.
type Dispute struct {
	DisputeID  uint64
	EscrowID   uint64
	OpenedBy   string
	Reason     string
	OpenedAt   int64
	Resolved   bool
	ResolvedAt int64
	Resolver   string
	Outcome    DisputeOutcome
	Recipient  string
}
