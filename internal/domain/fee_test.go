package domain

import "testing"

func TestFeeForFloorsTowardZero(t *testing.T) {
	cfg := FeeConfig{FeeRateBps: 250}
	fee, err := cfg.FeeFor(10_000)
	if err != nil { t.Fatalf("FeeFor: %v", err) }
	if fee != 250 { t.Fatalf("expected fee 250, got %d", fee) }
	fee, err = cfg.FeeFor(39)
	if err != nil { t.Fatalf("FeeFor: %v", err) }
	if fee != 0 { t.Fatalf("expected floor to 0, got %d", fee) }
}

func TestFeeForZeroRate(t *testing.T) {
	fee, err := FeeConfig{}.FeeFor(1_000_000)
	if err != nil { t.Fatalf("FeeFor: %v", err) }
	if fee != 0 { t.Fatalf("expected 0 fee, got %d", fee) }
}

func TestSplitEvenWeightsConserveExactly(t *testing.T) {
	cfg := FeeConfig{
		FeeRateBps:          1_000,
		DistributionEnabled: true,
		Destinations: []TreasuryDestination{
			{Address: "treasury_a", Weight: 5_000},
			{Address: "treasury_b", Weight: 5_000},
		},
	}
	fee, err := cfg.FeeFor(1_000)
	if err != nil { t.Fatalf("FeeFor: %v", err) }
	if fee != 100 { t.Fatalf("expected fee 100, got %d", fee) }
	shares, err := cfg.Split(fee)
	if err != nil { t.Fatalf("Split: %v", err) }
	if len(shares) != 2 { t.Fatalf("expected 2 shares, got %d", len(shares)) }
	if shares[0].Amount != 50 || shares[1].Amount != 50 { t.Fatalf("expected 50/50, got %d/%d", shares[0].Amount, shares[1].Amount) }
}

func TestSplitRemainderGoesToFirstDestination(t *testing.T) {
	cfg := FeeConfig{
		DistributionEnabled: true,
		Destinations: []TreasuryDestination{
			{Address: "treasury_a", Weight: 1},
			{Address: "treasury_b", Weight: 1},
			{Address: "treasury_c", Weight: 1},
		},
	}
	shares, err := cfg.Split(100)
	if err != nil { t.Fatalf("Split: %v", err) }
	var total int64
	for _, s := range shares { total += s.Amount }
	if total != 100 { t.Fatalf("shares must sum to fee exactly, got %d", total) }
	if shares[0].Amount != 34 || shares[1].Amount != 33 || shares[2].Amount != 33 {
		t.Fatalf("expected 34/33/33, got %d/%d/%d", shares[0].Amount, shares[1].Amount, shares[2].Amount)
	}
}

func TestSplitDisabledDistributionUsesLegacyRecipient(t *testing.T) {
	cfg := FeeConfig{Recipient: "fee_collector", Destinations: []TreasuryDestination{{Address: "treasury_a", Weight: 1}}}
	shares, err := cfg.Split(75)
	if err != nil { t.Fatalf("Split: %v", err) }
	if len(shares) != 1 || shares[0].Address != "fee_collector" || shares[0].Amount != 75 {
		t.Fatalf("expected single legacy share, got %+v", shares)
	}
}

func TestSplitZeroFeeYieldsNoShares(t *testing.T) {
	shares, err := FeeConfig{Recipient: "fee_collector"}.Split(0)
	if err != nil { t.Fatalf("Split: %v", err) }
	if len(shares) != 0 { t.Fatalf("expected no shares, got %d", len(shares)) }
}

func TestFeeConfigValidate(t *testing.T) {
	if err := (FeeConfig{FeeRateBps: MaxFeeRateBps + 1}).Validate(); err != ErrInvalidFeeRate {
		t.Fatalf("expected ErrInvalidFeeRate, got %v", err)
	}
	if err := (FeeConfig{FeeRateBps: -1}).Validate(); err != ErrInvalidFeeRate {
		t.Fatalf("expected ErrInvalidFeeRate, got %v", err)
	}
	if err := (FeeConfig{DistributionEnabled: true}).Validate(); err != ErrInvalidWeights {
		t.Fatalf("expected ErrInvalidWeights for empty destinations, got %v", err)
	}
	if err := (FeeConfig{DistributionEnabled: true, Destinations: []TreasuryDestination{{Address: "t", Weight: 0}}}).Validate(); err != ErrInvalidWeights {
		t.Fatalf("expected ErrInvalidWeights for zero weight, got %v", err)
	}
	ok := FeeConfig{FeeRateBps: 100, DistributionEnabled: true, Destinations: []TreasuryDestination{{Address: "t", Weight: 10}}}
	if err := ok.Validate(); err != nil { t.Fatalf("expected valid config, got %v", err) }
}
