package domain

import (
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(40, 2)
	if err != nil { t.Fatalf("CheckedAdd: %v", err) }
	if sum != 42 { t.Fatalf("expected 42, got %d", sum) }

	if _, err := CheckedAdd(math.MaxInt64, 1); err != ErrAmountOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := CheckedAdd(math.MinInt64, -1); err != ErrAmountOverflow {
		t.Fatalf("expected underflow, got %v", err)
	}
	sum, err = CheckedAdd(math.MaxInt64, 0)
	if err != nil { t.Fatalf("CheckedAdd at max: %v", err) }
	if sum != math.MaxInt64 { t.Fatalf("expected MaxInt64, got %d", sum) }
}

func TestCheckedMulDiv(t *testing.T) {
	v, err := CheckedMulDiv(10_000, 250, BasisPoints)
	if err != nil { t.Fatalf("CheckedMulDiv: %v", err) }
	if v != 250 { t.Fatalf("expected 250, got %d", v) }

	// Floor division.
	v, err = CheckedMulDiv(39, 250, BasisPoints)
	if err != nil { t.Fatalf("CheckedMulDiv: %v", err) }
	if v != 0 { t.Fatalf("expected floor to 0, got %d", v) }

	if _, err := CheckedMulDiv(math.MaxInt64, 2, 10); err != ErrAmountOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := CheckedMulDiv(10, 10, 0); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for zero denominator, got %v", err)
	}
	if _, err := CheckedMulDiv(-1, 10, 10); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for negative operand, got %v", err)
	}
}
