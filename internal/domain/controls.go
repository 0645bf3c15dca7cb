package domain

// PauseFlags gate the three fund-moving entry points independently.
type PauseFlags struct {
	LockPaused    bool
	ReleasePaused bool
	RefundPaused  bool
}

// GraceConfig delays automatic post-deadline settlement. Disabled reduces
// to the ungated legacy behavior.
type GraceConfig struct {
	Enabled       bool
	PeriodSeconds int64
}

// Deadline returns the effective settlement deadline for an escrow
// deadline: deadline + grace when enabled, the raw deadline otherwise.
func (g GraceConfig) Deadline(deadline int64) int64 {
	if deadline == NoDeadline {
		return NoDeadline
	}
	if g.Enabled && g.PeriodSeconds > 0 {
		return deadline + g.PeriodSeconds
	}
	return deadline
}

// Deprecation blocks new locks while leaving existing escrows settleable.
type Deprecation struct {
	Deprecated      bool
	MigrationTarget string
}

// Risk flag bits. Advisory only: they never gate settlement on their own.
const (
	RiskHighRisk    uint8 = 1 << 0
	RiskUnderReview uint8 = 1 << 1
	RiskRestricted  uint8 = 1 << 2
	RiskDeprecated  uint8 = 1 << 3

	RiskMaskAll uint8 = RiskHighRisk | RiskUnderReview | RiskRestricted | RiskDeprecated
)

// ValidRiskMask reports whether mask fits the 4-bit flag space.
func ValidRiskMask(mask uint8) bool { return mask&^RiskMaskAll == 0 }

// AmountPolicy bounds the value of a single lock, inclusive on both ends.
// A zero Max means unbounded above.
type AmountPolicy struct {
	Min int64
	Max int64
}

// Check validates a lock amount against the policy.
func (p AmountPolicy) Check(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount < p.Min {
		return ErrAmountOutOfBounds
	}
	if p.Max > 0 && amount > p.Max {
		return ErrAmountOutOfBounds
	}
	return nil
}

// EngineSettings is the initialization record written once by
// InitializeEngine. Admin and SettlementToken must both be present for the
// engine to be considered initialized.
type EngineSettings struct {
	Admin           string
	SettlementToken string
	Version         string
	InitializedAt   int64
}

// Initialized reports whether the settings record is complete.
func (s EngineSettings) Initialized() bool {
	return s.Admin != "" && s.SettlementToken != ""
}

// HookConfig is the single optional external notification target.
type HookConfig struct {
	URL                 string
	Secret              string
	LargeReleaseMinimum int64
	Enabled             bool
}
