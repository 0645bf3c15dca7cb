package domain

import "math"

// Amounts are carried as int64 values in the settlement token's smallest
// denomination. All arithmetic on fund-affecting paths goes through the
// checked helpers below; overflow is reported as ErrAmountOverflow and the
// operation is rejected, never wrapped.

// CheckedAdd returns a+b or ErrAmountOverflow.
func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// CheckedMulDiv returns floor(a*b/den) without intermediate overflow.
// den must be positive; a and b must be non-negative.
func CheckedMulDiv(a, b, den int64) (int64, error) {
	if den <= 0 || a < 0 || b < 0 {
		return 0, ErrInvalidInput
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, ErrAmountOverflow
	}
	return a * b / den, nil
}
