package domain

// CapabilityAction scopes what a delegated capability may do.
type CapabilityAction string

const (
	ActionRelease CapabilityAction = "release"
	ActionRefund  CapabilityAction = "refund"
)

// Capability is a delegated, revocable right to settle a specific escrow
// within an amount ceiling, a use budget, and an expiry.
type Capability struct {
	CapabilityID  uint64
	EscrowID      uint64
	Grantee       string
	Action        CapabilityAction
	AmountCeiling int64
	UsesRemaining int64
	ExpiresAt     int64
	Revoked       bool
}

// Validate checks the capability against an intended use. Checks run in a
// fixed order so callers always see the same failure for the same state:
// scope, ceiling, uses, expiry, revocation.
func (c Capability) Validate(action CapabilityAction, escrowID uint64, amount, now int64) error {
	if c.Action != action || c.EscrowID != escrowID {
		return ErrCapabilityScope
	}
	if amount > c.AmountCeiling {
		return ErrCapabilityCeiling
	}
	if c.UsesRemaining <= 0 {
		return ErrCapabilityExhausted
	}
	if c.ExpiresAt != 0 && now >= c.ExpiresAt {
		return ErrCapabilityExpired
	}
	if c.Revoked {
		return ErrCapabilityRevoked
	}
	return nil
}

// Consume burns one use. Callers validate first.
func (c *Capability) Consume() {
	if c.UsesRemaining > 0 {
		c.UsesRemaining--
	}
}
