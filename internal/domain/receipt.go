package domain

// ReceiptOutcome names the settlement that produced a receipt.
type ReceiptOutcome string

const (
	OutcomeReleased ReceiptOutcome = "released"
	OutcomeRefunded ReceiptOutcome = "refunded"
)

// Receipt is an immutable proof-of-settlement record. ReceiptID is assigned
// from a monotonic counter once per release/refund and the record is never
// recomputed or mutated afterwards.
type Receipt struct {
	ReceiptID uint64
	Outcome   ReceiptOutcome
	EscrowID  uint64
	Amount    int64
	Party     string
	Timestamp int64
}
