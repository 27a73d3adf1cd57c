// Package validator turns raw user input into bounded, exact decimal operands.
package validator

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"calc-history/internal/calcerr"
)

// MaxDigits bounds both the number of significant digits of an operand and
// the magnitude of its decimal exponent. Operands beyond it are rejected before
// any arithmetic, which would otherwise grow with the exponent.
const MaxDigits = 1000

// Validator parses operands and rejects those whose magnitude exceeds Max.
type Validator struct {
	Max decimal.Decimal
}

// New returns a Validator bounded by max.
func New(max decimal.Decimal) Validator {
	return Validator{Max: max}
}

// ValidateNumber parses value into a normalized decimal. Strings are trimmed;
// integer, float and decimal values are accepted as-is.
func (v Validator) ValidateNumber(value any) (decimal.Decimal, error) {
	var (
		raw    string
		number decimal.Decimal
		err    error
	)

	switch x := value.(type) {
	case nil:
		return decimal.Decimal{}, calcerr.Validation("Input cannot be empty")
	case string:
		raw = strings.TrimSpace(x)
		if raw == "" {
			return decimal.Decimal{}, calcerr.Validation("Input cannot be empty")
		}
		number, err = decimal.NewFromString(raw)
	case decimal.Decimal:
		number = x
	case int:
		raw, number = fmt.Sprint(x), decimal.NewFromInt(int64(x))
	case int64:
		raw, number = fmt.Sprint(x), decimal.NewFromInt(x)
	case int32:
		raw, number = fmt.Sprint(x), decimal.NewFromInt32(x)
	case float64:
		raw = fmt.Sprint(x)
		number, err = decimal.NewFromString(raw)
	case float32:
		raw = fmt.Sprint(x)
		number, err = decimal.NewFromString(raw)
	case fmt.Stringer:
		raw = strings.TrimSpace(x.String())
		number, err = decimal.NewFromString(raw)
	default:
		return decimal.Decimal{}, calcerr.Validation(fmt.Sprintf("Invalid number format: %v", value))
	}
	if err != nil {
		return decimal.Decimal{}, calcerr.Validation(fmt.Sprintf("Invalid number format: %s", raw))
	}

	if len(strings.TrimPrefix(number.Coefficient().Text(10), "-")) > MaxDigits {
		return decimal.Decimal{}, errTooManyDigits()
	}
	number = Normalize(number)
	if exp := number.Exponent(); exp > MaxDigits || exp < -MaxDigits {
		return decimal.Decimal{}, errTooManyDigits()
	}
	if raw == "" {
		raw = number.String()
	}

	if !v.Max.IsZero() && number.Abs().GreaterThan(v.Max) {
		return decimal.Decimal{}, calcerr.Validation(
			fmt.Sprintf("Input %s exceeds maximum allowed value %s", raw, v.Max))
	}

	if number.Exponent() > 0 {
		number = number.Round(0)
	}
	return number, nil
}

var ten = big.NewInt(10)

// Normalize strips trailing zeros from the coefficient so equal values share
// one representation. The exponent of the result is never below the input's.
func Normalize(d decimal.Decimal) decimal.Decimal {
	coef, exp := d.Coefficient(), d.Exponent()
	if coef.Sign() == 0 {
		return decimal.New(0, 0)
	}

	q, r := new(big.Int), new(big.Int)
	for exp < math.MaxInt32 {
		q.QuoRem(coef, ten, r)
		if r.Sign() != 0 {
			break
		}
		coef, q = q, coef
		exp++
	}
	return decimal.NewFromBigInt(coef, exp)
}

func errTooManyDigits() error {
	return calcerr.Validation(fmt.Sprintf("Input has more than %d digits", MaxDigits))
}
