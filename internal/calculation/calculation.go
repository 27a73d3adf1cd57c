// Package calculation holds the immutable record of one performed operation.
package calculation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"calc-history/internal/calcerr"
	"calc-history/internal/operation"
)

// Field names of the flat record form, in the column order used on disk.
const (
	FieldOperation = "operation"
	FieldOperand1  = "operand1"
	FieldOperand2  = "operand2"
	FieldResult    = "result"
	FieldTimestamp = "timestamp"
)

// Fields is the column order of a serialized Calculation.
var Fields = []string{FieldOperation, FieldOperand1, FieldOperand2, FieldResult, FieldTimestamp}

// Resolver turns an operation name back into an operation.
type Resolver interface {
	Create(name string) (operation.Operation, error)
}

// Calculation is an operation applied to two operands. The result is computed
// once, at construction. The zero value is not a valid Calculation.
type Calculation struct {
	operation string
	operand1  decimal.Decimal
	operand2  decimal.Decimal
	result    decimal.Decimal
	timestamp time.Time
}

// New resolves name, executes the operation and records the result.
// Validation errors from the operation are returned unchanged.
func New(ops Resolver, name string, a, b decimal.Decimal) (Calculation, error) {
	return newAt(ops, name, a, b, time.Now())
}

func newAt(ops Resolver, name string, a, b decimal.Decimal, ts time.Time) (Calculation, error) {
	op, err := ops.Create(name)
	if err != nil {
		return Calculation{}, err
	}
	return fromOperation(op, a, b, ts)
}

// NewFromOperation executes op and records the result. Use it when the
// operation has already been resolved.
func NewFromOperation(op operation.Operation, a, b decimal.Decimal) (Calculation, error) {
	return fromOperation(op, a, b, time.Now())
}

func fromOperation(op operation.Operation, a, b decimal.Decimal, ts time.Time) (Calculation, error) {
	result, err := op.Execute(a, b)
	if err != nil {
		return Calculation{}, err
	}

	return Calculation{
		operation: op.Name(),
		operand1:  a,
		operand2:  b,
		result:    result,
		timestamp: ts,
	}, nil
}

func (c Calculation) Operation() string         { return c.operation }
func (c Calculation) Operand1() decimal.Decimal { return c.operand1 }
func (c Calculation) Operand2() decimal.Decimal { return c.operand2 }
func (c Calculation) Result() decimal.Decimal   { return c.result }
func (c Calculation) Timestamp() time.Time      { return c.timestamp }

// Equal reports whether both calculations have the same operation, operands
// and result. Timestamps are ignored.
func (c Calculation) Equal(other Calculation) bool {
	return c.operation == other.operation &&
		c.operand1.Equal(other.operand1) &&
		c.operand2.Equal(other.operand2) &&
		c.result.Equal(other.result)
}

// String renders the calculation as "Addition(2, 3) = 5".
func (c Calculation) String() string {
	return fmt.Sprintf("%s(%s, %s) = %s", c.operation, c.operand1, c.operand2, c.result)
}

// FormatResult rounds the result half away from zero to precision fractional
// digits and drops trailing zeros.
func (c Calculation) FormatResult(precision int) string {
	return c.result.Round(int32(precision)).String()
}

// FormatFull renders the exact stored result.
func (c Calculation) FormatFull() string {
	return c.result.String()
}

// Record returns the flat form of the calculation keyed by the Field* names.
func (c Calculation) Record() map[string]string {
	return map[string]string{
		FieldOperation: c.operation,
		FieldOperand1:  c.operand1.String(),
		FieldOperand2:  c.operand2.String(),
		FieldResult:    c.result.String(),
		FieldTimestamp: c.timestamp.Format(time.RFC3339Nano),
	}
}

// FromRecord rebuilds a calculation from its flat form. The result is always
// recomputed; when the record carries a result it must agree with the
// recomputed one. A missing timestamp is replaced with the current time.
func FromRecord(ops Resolver, rec map[string]string) (Calculation, error) {
	for _, f := range []string{FieldOperation, FieldOperand1, FieldOperand2} {
		if _, ok := rec[f]; !ok {
			return Calculation{}, calcerr.Operation(fmt.Sprintf("Invalid calculation data: missing %q", f), nil)
		}
	}

	a, err := decimal.NewFromString(rec[FieldOperand1])
	if err != nil {
		return Calculation{}, calcerr.Operation("Invalid calculation data: operand1", err)
	}
	b, err := decimal.NewFromString(rec[FieldOperand2])
	if err != nil {
		return Calculation{}, calcerr.Operation("Invalid calculation data: operand2", err)
	}

	ts := time.Now()
	if raw := rec[FieldTimestamp]; raw != "" {
		ts, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Calculation{}, calcerr.Operation("Invalid calculation data: timestamp", err)
		}
	}

	c, err := newAt(ops, rec[FieldOperation], a, b, ts)
	if err != nil {
		return Calculation{}, err
	}

	if raw := rec[FieldResult]; raw != "" {
		stored, err := decimal.NewFromString(raw)
		if err != nil {
			return Calculation{}, calcerr.Operation("Invalid calculation data: result", err)
		}
		if !stored.Equal(c.result) {
			return Calculation{}, calcerr.Operation(
				fmt.Sprintf("Invalid calculation data: stored result %s does not match computed %s", stored, c.result), nil)
		}
	}

	return c, nil
}
