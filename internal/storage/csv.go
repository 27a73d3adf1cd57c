// Package storage persists calculation history as CSV files.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"calc-history/internal/calcerr"
	"calc-history/internal/calculation"
)

var errBadHeader = errors.New("unexpected header")

// CSVStore reads and writes history files with the header
// operation,operand1,operand2,result,timestamp.
type CSVStore struct {
	fs  afero.Fs
	enc encoding.Encoding
	ops calculation.Resolver
}

// Option configures a CSVStore.
type Option func(*CSVStore)

// WithFs sets the filesystem. The OS filesystem is the default.
func WithFs(fs afero.Fs) Option {
	return func(s *CSVStore) { s.fs = fs }
}

// WithEncoding sets the file text encoding. UTF-8 is the default.
func WithEncoding(enc encoding.Encoding) Option {
	return func(s *CSVStore) { s.enc = enc }
}

// NewCSVStore returns a store that resolves operation names through ops.
func NewCSVStore(ops calculation.Resolver, options ...Option) *CSVStore {
	s := &CSVStore{
		fs:  afero.NewOsFs(),
		enc: unicode.UTF8,
		ops: ops,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Save writes calcs to path, creating parent directories. The file is
// written to a temporary sibling first and renamed into place.
func (s *CSVStore) Save(path string, calcs []calculation.Calculation) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return calcerr.Data(fmt.Sprintf("Failed to save history to %s", path), err)
	}

	tmp := path + ".tmp"
	if err := s.write(tmp, calcs); err != nil {
		_ = s.fs.Remove(tmp)
		return calcerr.Data(fmt.Sprintf("Failed to save history to %s", path), err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return calcerr.Data(fmt.Sprintf("Failed to save history to %s", path), err)
	}

	return nil
}

func (s *CSVStore) write(path string, calcs []calculation.Calculation) (err error) {
	f, err := s.fs.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := s.enc.NewEncoder().Writer(f)
	w := csv.NewWriter(enc)

	if err := w.Write(calculation.Fields); err != nil {
		return err
	}
	row := make([]string, len(calculation.Fields))
	for _, c := range calcs {
		rec := c.Record()
		for i, field := range calculation.Fields {
			row[i] = rec[field]
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Load reads the calculations stored at path. Every row is rebuilt through
// calculation.FromRecord, so results are recomputed rather than trusted.
func (s *CSVStore) Load(path string) ([]calculation.Calculation, error) {
	calcs, err := s.read(path)
	if err != nil {
		return nil, calcerr.Data(fmt.Sprintf("Failed to load history from %s", path), err)
	}
	return calcs, nil
}

func (s *CSVStore) read(path string) ([]calculation.Calculation, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(s.enc.NewDecoder().Reader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var calcs []calculation.Calculation
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row))
		}

		rec := make(map[string]string, len(index))
		for field, i := range index {
			rec[field] = row[i]
		}

		c, err := calculation.FromRecord(s.ops, rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		calcs = append(calcs, c)
	}

	return calcs, nil
}

// columnIndex maps known field names to their column. Operation and operands
// are required; result and timestamp are optional.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if slices.Contains(calculation.Fields, name) {
			index[name] = i
		}
	}
	for _, required := range calculation.Fields[:3] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", errBadHeader, required)
		}
	}
	return index, nil
}
