package domain

const (
	// BasisPoints is the fee-rate denominator: 10000 bp == 100%.
	BasisPoints int64 = 10_000
	// MaxFeeRateBps caps configured fee rates at 50%.
	MaxFeeRateBps int64 = 5_000
)

// TreasuryDestination is one weighted recipient of collected fees.
type TreasuryDestination struct {
	Address string
	Weight  int64
	Region  string
}

// FeeConfig holds the proportional fee rate and where collected fees go.
// With distribution disabled (or no destinations configured) the whole fee
// goes to the legacy single recipient.
type FeeConfig struct {
	FeeRateBps          int64
	Recipient           string
	Destinations        []TreasuryDestination
	DistributionEnabled bool
}

// Validate checks rate bounds and, when distribution is enabled, that the
// destination weights sum to a positive total.
func (c FeeConfig) Validate() error {
	if c.FeeRateBps < 0 || c.FeeRateBps > MaxFeeRateBps {
		return ErrInvalidFeeRate
	}
	if !c.DistributionEnabled {
		return nil
	}
	if len(c.Destinations) == 0 {
		return ErrInvalidWeights
	}
	var total int64
	for _, d := range c.Destinations {
		if d.Weight <= 0 || d.Address == "" {
			return ErrInvalidWeights
		}
		sum, err := CheckedAdd(total, d.Weight)
		if err != nil {
			return err
		}
		total = sum
	}
	if total <= 0 {
		return ErrInvalidWeights
	}
	return nil
}

// FeeFor returns floor(amount * rate / 10000).
func (c FeeConfig) FeeFor(amount int64) (int64, error) {
	if c.FeeRateBps == 0 {
		return 0, nil
	}
	return CheckedMulDiv(amount, c.FeeRateBps, BasisPoints)
}

// FeeShare is one destination's computed cut of a fee.
type FeeShare struct {
	Address string
	Amount  int64
	Region  string
}

// Split divides fee across the configured destinations by weight.
// Each destination gets floor(fee * weight / totalWeight); the integer
// remainder left by truncation is assigned to the first destination so the
// shares always sum to fee exactly. With distribution disabled the whole
// fee is a single share for the legacy recipient.
func (c FeeConfig) Split(fee int64) ([]FeeShare, error) {
	if fee < 0 {
		return nil, ErrInvalidAmount
	}
	if fee == 0 {
		return nil, nil
	}
	if !c.DistributionEnabled || len(c.Destinations) == 0 {
		return []FeeShare{{Address: c.Recipient, Amount: fee}}, nil
	}

	var totalWeight int64
	for _, d := range c.Destinations {
		sum, err := CheckedAdd(totalWeight, d.Weight)
		if err != nil {
			return nil, err
		}
		totalWeight = sum
	}
	if totalWeight <= 0 {
		return nil, ErrInvalidWeights
	}

	shares := make([]FeeShare, len(c.Destinations))
	var distributed int64
	for i, d := range c.Destinations {
		cut, err := CheckedMulDiv(fee, d.Weight, totalWeight)
		if err != nil {
			return nil, err
		}
		shares[i] = FeeShare{Address: d.Address, Amount: cut, Region: d.Region}
		sum, err := CheckedAdd(distributed, cut)
		if err != nil {
			return nil, err
		}
		distributed = sum
	}
	// Truncation remainder goes to the first destination.
	shares[0].Amount += fee - distributed
	return shares, nil
}
