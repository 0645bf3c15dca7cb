package domain

import "testing"

func TestParticipantFilterModes(t *testing.T) {
	open := ParticipantFilter{Mode: FilterOpen}
	if err := open.Check("anyone"); err != nil { t.Fatalf("open mode must admit everyone, got %v", err) }

	allow := ParticipantFilter{Mode: FilterAllowlist, Entries: map[string]bool{"alice": true}}
	if err := allow.Check("alice"); err != nil { t.Fatalf("listed address must pass, got %v", err) }
	if err := allow.Check("bob"); err != ErrParticipantBlocked {
		t.Fatalf("unlisted address must be blocked, got %v", err)
	}

	block := ParticipantFilter{Mode: FilterBlocklist, Entries: map[string]bool{"mallory": true}}
	if err := block.Check("alice"); err != nil { t.Fatalf("unlisted address must pass, got %v", err) }
	if err := block.Check("alice", "mallory"); err != ErrParticipantBlocked {
		t.Fatalf("listed address must be blocked, got %v", err)
	}
}

func TestGraceDeadline(t *testing.T) {
	g := GraceConfig{Enabled: true, PeriodSeconds: 600}
	if got := g.Deadline(1_000); got != 1_600 { t.Fatalf("expected 1600, got %d", got) }
	if got := g.Deadline(NoDeadline); got != NoDeadline { t.Fatalf("no deadline must stay open, got %d", got) }

	off := GraceConfig{Enabled: false, PeriodSeconds: 600}
	if got := off.Deadline(1_000); got != 1_000 { t.Fatalf("disabled grace must return raw deadline, got %d", got) }
}

func TestValidRiskMask(t *testing.T) {
	if !ValidRiskMask(0) || !ValidRiskMask(RiskMaskAll) {
		t.Fatalf("masks inside the flag space must be valid")
	}
	if ValidRiskMask(RiskMaskAll + 1) { t.Fatalf("bit outside the flag space must be rejected") }
}

func TestAmountPolicyCheck(t *testing.T) {
	p := AmountPolicy{Min: 10, Max: 100}
	if err := p.Check(10); err != nil { t.Fatalf("min is inclusive, got %v", err) }
	if err := p.Check(100); err != nil { t.Fatalf("max is inclusive, got %v", err) }
	if err := p.Check(9); err != ErrAmountOutOfBounds { t.Fatalf("expected out of bounds, got %v", err) }
	if err := p.Check(101); err != ErrAmountOutOfBounds { t.Fatalf("expected out of bounds, got %v", err) }
	if err := p.Check(0); err != ErrInvalidAmount { t.Fatalf("expected ErrInvalidAmount, got %v", err) }

	unbounded := AmountPolicy{Min: 1}
	if err := unbounded.Check(1 << 50); err != nil { t.Fatalf("zero max means unbounded above, got %v", err) }
}

func TestEngineSettingsInitialized(t *testing.T) {
	if (EngineSettings{Admin: "admin"}).Initialized() {
		t.Fatalf("settings without a token must not count as initialized")
	}
	if !(EngineSettings{Admin: "admin", SettlementToken: "usd"}).Initialized() {
		t.Fatalf("complete settings must count as initialized")
	}
}
