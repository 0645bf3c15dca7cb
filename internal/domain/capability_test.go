package domain

import "testing"

func baseCapability() Capability {
	return Capability{CapabilityID: 1, EscrowID: 7, Grantee: "operator_1", Action: ActionRelease, AmountCeiling: 1_000, UsesRemaining: 2, ExpiresAt: 5_000}
}

func TestCapabilityValidateOrder(t *testing.T) {
	// A capability failing several checks at once must always report the
	// first one in the fixed order.
	c := baseCapability()
	c.Action = ActionRefund
	c.UsesRemaining = 0
	c.Revoked = true
	if err := c.Validate(ActionRelease, 7, 2_000, 9_000); err != ErrCapabilityScope {
		t.Fatalf("expected scope first, got %v", err)
	}

	c = baseCapability()
	c.UsesRemaining = 0
	c.Revoked = true
	if err := c.Validate(ActionRelease, 7, 2_000, 9_000); err != ErrCapabilityCeiling {
		t.Fatalf("expected ceiling before uses, got %v", err)
	}

	c = baseCapability()
	c.UsesRemaining = 0
	c.Revoked = true
	if err := c.Validate(ActionRelease, 7, 500, 9_000); err != ErrCapabilityExhausted {
		t.Fatalf("expected uses before expiry, got %v", err)
	}

	c = baseCapability()
	c.Revoked = true
	if err := c.Validate(ActionRelease, 7, 500, 9_000); err != ErrCapabilityExpired {
		t.Fatalf("expected expiry before revocation, got %v", err)
	}

	c = baseCapability()
	c.Revoked = true
	if err := c.Validate(ActionRelease, 7, 500, 1_000); err != ErrCapabilityRevoked {
		t.Fatalf("expected revocation last, got %v", err)
	}
}

func TestCapabilityValidateWrongEscrowIsScopeFailure(t *testing.T) {
	c := baseCapability()
	if err := c.Validate(ActionRelease, 8, 500, 1_000); err != ErrCapabilityScope {
		t.Fatalf("expected scope failure, got %v", err)
	}
}

func TestCapabilityZeroExpiryNeverExpires(t *testing.T) {
	c := baseCapability()
	c.ExpiresAt = 0
	if err := c.Validate(ActionRelease, 7, 500, 1<<40); err != nil {
		t.Fatalf("zero expiry must never expire, got %v", err)
	}
}

func TestCapabilityConsume(t *testing.T) {
	c := baseCapability()
	c.Consume()
	if c.UsesRemaining != 1 { t.Fatalf("expected 1 use left, got %d", c.UsesRemaining) }
	c.Consume()
	c.Consume()
	if c.UsesRemaining != 0 { t.Fatalf("uses must not go negative, got %d", c.UsesRemaining) }
}
