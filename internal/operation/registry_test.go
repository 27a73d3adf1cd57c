package operation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-history/internal/calcerr"
)

type cube struct{ noPrecondition }

func (cube) Name() string { return "Cube" }

func (cube) Execute(a, _ decimal.Decimal) (decimal.Decimal, error) {
	return a.Mul(a).Mul(a), nil
}

func TestCreateResolvesKeysAndNames(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"add", "ADD", "Addition", "addition", " add "} {
		op, err := r.Create(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Addition", op.Name(), name)
	}

	op, err := r.Create("int_divide")
	require.NoError(t, err)
	assert.IsType(t, IntegerDivision{}, op)
}

func TestCreateUnknown(t *testing.T) {
	_, err := NewRegistry().Create("unknown")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnknownOperation)
	assert.ErrorIs(t, err, calcerr.ErrCalculator)

	var oe *calcerr.OperationError
	assert.ErrorAs(t, err, &oe)
}

func TestRegisterAddsAndOverwrites(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("Cube", cube{}))
	op, err := r.Create("cube")
	require.NoError(t, err)

	got, err := op.Execute(d("3"), d("0"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("27")))
	assert.Contains(t, r.Commands(), "cube")

	require.NoError(t, r.Register("add", Subtraction{}))
	op, err = r.Create("add")
	require.NoError(t, err)
	assert.Equal(t, "Subtraction", op.Name())
}

func TestRegisterRejectsNonOperations(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Register("nothing", nil), ErrNotAnOperation)
	assert.ErrorIs(t, r.Register("", Addition{}), ErrNotAnOperation)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	require.NoError(t, a.Register("cube", cube{}))

	_, err := b.Create("cube")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestCommandsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{
		"add", "subtract", "multiply", "divide", "power",
		"root", "modulus", "int_divide", "percent", "abs_dif",
	}, r.Commands())

	cmds := r.Commands()
	cmds[0] = "mutated"
	assert.Equal(t, "add", r.Commands()[0])
}

func TestRegisterUnderExistingNameBecomesCommand(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Addition", cube{}))
	require.NoError(t, r.Register("cube", cube{}))
	require.NoError(t, r.Register("CUBE", cube{}))

	cmds := r.Commands()
	assert.Equal(t, []string{"addition", "cube"}, cmds[len(cmds)-2:])

	op, err := r.Create("addition")
	require.NoError(t, err)
	assert.Equal(t, "Cube", op.Name())
}
