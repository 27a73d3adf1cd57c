// Package operation implements the calculator's binary arithmetic operations
// over exact decimals.
package operation

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"calc-history/internal/calcerr"
)

// Operation is a binary arithmetic operation. Execute runs Validate first, so a
// violated precondition is reported as a *calcerr.ValidationError before any
// arithmetic happens.
type Operation interface {
	// Name identifies the operation in history records and saved files.
	Name() string
	Validate(a, b decimal.Decimal) error
	Execute(a, b decimal.Decimal) (decimal.Decimal, error)
}

// maxResultDigits bounds the coefficient of an exact integer power. Larger
// powers are computed in float64.
const maxResultDigits = 10000

var hundred = decimal.NewFromInt(100)

var (
	errResultTooLarge = errors.New("result too large")
	errNonFinite      = errors.New("result is not a finite number")
)

type noPrecondition struct{}

func (noPrecondition) Validate(_, _ decimal.Decimal) error { return nil }

func requireNonZero(b decimal.Decimal, msg string) error {
	if b.IsZero() {
		return calcerr.Validation(msg)
	}
	return nil
}

// Addition returns a + b.
type Addition struct{ noPrecondition }

func (Addition) Name() string { return "Addition" }

func (Addition) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	return a.Add(b), nil
}

// Subtraction returns a - b.
type Subtraction struct{ noPrecondition }

func (Subtraction) Name() string { return "Subtraction" }

func (Subtraction) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	return a.Sub(b), nil
}

// Multiplication returns a * b.
type Multiplication struct{ noPrecondition }

func (Multiplication) Name() string { return "Multiplication" }

func (Multiplication) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	return a.Mul(b), nil
}

// Division returns a / b, rounded to decimal.DivisionPrecision places.
type Division struct{}

func (Division) Name() string { return "Division" }

func (Division) Validate(_, b decimal.Decimal) error {
	return requireNonZero(b, "Division by zero is not allowed")
}

func (op Division) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}
	return a.Div(b), nil
}

// Power raises a to b. Integer exponents are computed exactly while the result
// stays within maxResultDigits; other powers go through float64.
type Power struct{}

func (Power) Name() string { return "Power" }

func (Power) Validate(_, b decimal.Decimal) error {
	if b.IsNegative() {
		return calcerr.Validation("Negative exponents not supported")
	}
	return nil
}

func (op Power) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}

	if b.IsInteger() {
		if result, ok := exactPow(a, b.IntPart()); ok {
			return result, nil
		}
	}

	f := math.Pow(a.InexactFloat64(), b.InexactFloat64())
	if math.IsInf(f, 0) {
		return decimal.Decimal{}, calcerr.Operation("Power", errResultTooLarge)
	}
	return fromFloat(f)
}

// Root returns the b-th root of a.
type Root struct{}

func (Root) Name() string { return "Root" }

func (Root) Validate(a, b decimal.Decimal) error {
	if a.IsNegative() {
		return calcerr.Validation("Cannot calculate root of negative number")
	}
	if b.IsZero() {
		return calcerr.Validation("Zero root is undefined")
	}
	return nil
}

func (op Root) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}

	approx, err := fromFloat(math.Pow(a.InexactFloat64(), 1/b.InexactFloat64()))
	if err != nil {
		return decimal.Decimal{}, err
	}

	// Snap to an exact root when one exists, e.g. the cube root of 27.
	if b.IsInteger() && b.IsPositive() && b.IntPart() <= 64 {
		candidate := approx.Round(12)
		if back, ok := exactPow(candidate, b.IntPart()); ok && back.Equal(a) {
			return candidate, nil
		}
	}

	return approx, nil
}

// Modulus returns the remainder of a / b. The result takes the sign of a.
type Modulus struct{}

func (Modulus) Name() string { return "Modulus" }

func (Modulus) Validate(_, b decimal.Decimal) error {
	return requireNonZero(b, "Divisor cannot be zero for modulus operation")
}

func (op Modulus) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}
	_, r := a.QuoRem(b, 0)
	return r, nil
}

// IntegerDivision returns floor(a / b).
type IntegerDivision struct{}

func (IntegerDivision) Name() string { return "IntegerDivision" }

func (IntegerDivision) Validate(_, b decimal.Decimal) error {
	return requireNonZero(b, "Divisor cannot be zero for integer division")
}

func (op IntegerDivision) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}
	q, r := a.QuoRem(b, 0)
	if !r.IsZero() && r.Sign() != b.Sign() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q, nil
}

// Percentage returns (a / b) * 100.
type Percentage struct{}

func (Percentage) Name() string { return "Percentage" }

func (Percentage) Validate(_, b decimal.Decimal) error {
	return requireNonZero(b, "Denominator cannot be zero for percentage calculation")
}

func (op Percentage) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	if err := op.Validate(a, b); err != nil {
		return decimal.Decimal{}, err
	}
	return a.Div(b).Mul(hundred), nil
}

// AbsoluteDifference returns |a - b|.
type AbsoluteDifference struct{ noPrecondition }

func (AbsoluteDifference) Name() string { return "AbsoluteDifference" }

func (AbsoluteDifference) Execute(a, b decimal.Decimal) (decimal.Decimal, error) {
	return a.Sub(b).Abs(), nil
}

// exactPow computes a**n for n >= 0 by repeated squaring. It reports false,
// without computing anything, when the exact coefficient would exceed
// maxResultDigits digits.
func exactPow(a decimal.Decimal, n int64) (decimal.Decimal, bool) {
	if n == 0 {
		return decimal.NewFromInt(1), true
	}
	if a.IsZero() {
		return decimal.Zero, true
	}

	digits := len(a.Coefficient().Text(10))
	if a.IsNegative() {
		digits--
	}
	if n > maxResultDigits || int64(digits)*n > maxResultDigits {
		return decimal.Decimal{}, false
	}

	result := decimal.NewFromInt(1)
	base := a
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base)
		}
	}
	return result, true
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, calcerr.Operation("float conversion", errNonFinite)
	}
	return decimal.NewFromFloat(f), nil
}
