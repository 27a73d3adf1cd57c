// Package testutil holds helpers shared by the calculator and REPL tests.
package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"calc-history/internal/calculation"
	"calc-history/internal/config"
	"calc-history/internal/storage"
)

// Config returns the default configuration with history and log paths rooted
// at "/" so they resolve inside an in-memory filesystem.
func Config() config.Config {
	cfg := config.Default()
	cfg.LogDir = "/logs"
	cfg.HistoryDir = "/history"
	return cfg
}

// MemStore returns a CSV store backed by a fresh in-memory filesystem.
func MemStore(ops calculation.Resolver) (*storage.CSVStore, afero.Fs) {
	fs := afero.NewMemMapFs()
	return storage.NewCSVStore(ops, storage.WithFs(fs)), fs
}

// ObservedLogger returns a logger whose entries at level and above are
// captured in the returned ObservedLogs.
func ObservedLogger(level zapcore.LevelEnabler) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// Calc builds a calculation or fails the test.
func Calc(t testing.TB, ops calculation.Resolver, name, a, b string) calculation.Calculation {
	t.Helper()
	c, err := calculation.New(ops, name, decimal.RequireFromString(a), decimal.RequireFromString(b))
	if err != nil {
		t.Fatalf("building %s(%s, %s): %v", name, a, b, err)
	}
	return c
}
