package storage

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"calc-history/internal/calcerr"
	"calc-history/internal/calculation"
	"calc-history/internal/operation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCalc(t *testing.T, ops calculation.Resolver, name, a, b string) calculation.Calculation {
	t.Helper()
	c, err := calculation.New(ops, name, d(a), d(b))
	require.NoError(t, err)
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ops := operation.NewRegistry()
	fs := afero.NewMemMapFs()
	store := NewCSVStore(ops, WithFs(fs))

	calcs := []calculation.Calculation{
		newCalc(t, ops, "Addition", "1", "2"),
		newCalc(t, ops, "Division", "1", "3"),
		newCalc(t, ops, "Root", "2", "2"),
		newCalc(t, ops, "Power", "1.5", "3"),
		newCalc(t, ops, "IntegerDivision", "-7", "2"),
	}

	path := "/data/history/hist.csv"
	require.NoError(t, store.Save(path, calcs))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(calcs))
	for i := range calcs {
		assert.True(t, calcs[i].Equal(loaded[i]), "row %d: %s != %s", i, calcs[i], loaded[i])
	}

	exists, err := afero.Exists(fs, path+".tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temporary file left behind")
}

func TestSaveWritesHeaderAndColumns(t *testing.T) {
	ops := operation.NewRegistry()
	fs := afero.NewMemMapFs()
	store := NewCSVStore(ops, WithFs(fs))

	c := newCalc(t, ops, "Addition", "2", "3")
	require.NoError(t, store.Save("/h.csv", []calculation.Calculation{c}))

	raw, err := afero.ReadFile(fs, "/h.csv")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "operation,operand1,operand2,result,timestamp", string(lines[0]))
	assert.True(t, bytes.HasPrefix(lines[1], []byte("Addition,2,3,5,")), string(lines[1]))
}

func TestLoadEmptyAndHeaderOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewCSVStore(operation.NewRegistry(), WithFs(fs))

	require.NoError(t, afero.WriteFile(fs, "/empty.csv", nil, 0o644))
	calcs, err := store.Load("/empty.csv")
	require.NoError(t, err)
	assert.Empty(t, calcs)

	require.NoError(t, store.Save("/header.csv", nil))
	calcs, err = store.Load("/header.csv")
	require.NoError(t, err)
	assert.Empty(t, calcs)
}

func TestLoadWithoutResultColumnRecomputes(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewCSVStore(operation.NewRegistry(), WithFs(fs))

	require.NoError(t, afero.WriteFile(fs, "/short.csv", []byte("operation,operand1,operand2\nMultiplication,6,7\n"), 0o644))

	calcs, err := store.Load("/short.csv")
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.True(t, calcs[0].Result().Equal(d("42")))
}

func TestLoadFailuresAreDataErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing column", content: "operation,operand1\nAddition,1\n"},
		{name: "short row", content: "operation,operand1,operand2,result,timestamp\nAddition,1\n"},
		{name: "bad operand", content: "operation,operand1,operand2\nAddition,one,2\n"},
		{name: "unknown operation", content: "operation,operand1,operand2\nTeleport,1,2\n"},
		{name: "tampered result", content: "operation,operand1,operand2,result\nAddition,1,2,4\n"},
		{name: "precondition violated", content: "operation,operand1,operand2\nDivision,1,0\n"},
		{name: "bad quoting", content: "operation,operand1,operand2\n\"Addition,1,2\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			store := NewCSVStore(operation.NewRegistry(), WithFs(fs))
			require.NoError(t, afero.WriteFile(fs, "/bad.csv", []byte(tc.content), 0o644))

			_, err := store.Load("/bad.csv")
			require.Error(t, err)

			var de *calcerr.DataError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewCSVStore(operation.NewRegistry(), WithFs(afero.NewMemMapFs()))

	_, err := store.Load("/missing.csv")
	require.Error(t, err)

	var de *calcerr.DataError
	assert.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, calcerr.ErrCalculator)
}

func TestSaveOnReadOnlyFsIsDataError(t *testing.T) {
	store := NewCSVStore(operation.NewRegistry(), WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	err := store.Save("/h.csv", nil)
	require.Error(t, err)

	var de *calcerr.DataError
	assert.ErrorAs(t, err, &de)
}

type wurfel struct{ operation.Multiplication }

func (wurfel) Name() string { return "Würfel" }

func TestEncodingIsApplied(t *testing.T) {
	ops := operation.NewRegistry()
	require.NoError(t, ops.Register("wurfel", wurfel{}))

	fs := afero.NewMemMapFs()
	store := NewCSVStore(ops, WithFs(fs), WithEncoding(charmap.ISO8859_1))

	c := newCalc(t, ops, "wurfel", "2", "3")
	require.NoError(t, store.Save("/latin1.csv", []calculation.Calculation{c}))

	raw, err := afero.ReadFile(fs, "/latin1.csv")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "W\xfcrfel")

	loaded, err := store.Load("/latin1.csv")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Würfel", loaded[0].Operation())
}
