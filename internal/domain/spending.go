package domain

// SpendingLimitConfig caps the total value released for one program+token
// pair inside a fixed window. WindowSeconds of zero disables the cap.
type SpendingLimitConfig struct {
	ProgramID     string
	TokenID       string
	MaxAmount     int64
	WindowSeconds int64
	Enabled       bool
}

// SpendingState is the running counter for one program+token window.
type SpendingState struct {
	ProgramID      string
	TokenID        string
	WindowStart    int64
	AmountReleased int64
}

// Charge applies amount against the window and returns the updated state.
// When now is at least one full window past WindowStart the window resets
// before the charge is applied. Charges that would push the window total
// over the cap are rejected whole, never truncated.
func (c SpendingLimitConfig) Charge(state SpendingState, now, amount int64) (SpendingState, error) {
	if !c.Enabled || c.WindowSeconds <= 0 || c.MaxAmount <= 0 {
		return state, nil
	}
	if now-state.WindowStart >= c.WindowSeconds {
		state.WindowStart = now
		state.AmountReleased = 0
	}
	total, err := CheckedAdd(state.AmountReleased, amount)
	if err != nil {
		return state, err
	}
	if total > c.MaxAmount {
		return state, ErrSpendingLimitExceeded
	}
	state.AmountReleased = total
	return state, nil
}
