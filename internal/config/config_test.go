package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-history/internal/calcerr"
)

var envKeys = []string{
	"CALCULATOR_LOG_DIR",
	"CALCULATOR_LOG_FILE",
	"CALCULATOR_HISTORY_DIR",
	"CALCULATOR_HISTORY_FILE",
	"CALCULATOR_MAX_HISTORY_SIZE",
	"CALCULATOR_AUTO_SAVE",
	"CALCULATOR_PRECISION",
	"CALCULATOR_MAX_INPUT_VALUE",
	"CALCULATOR_DEFAULT_ENCODING",
	"CALCULATOR_LOG_LEVEL",
	"CALCULATOR_TELEMETRY",
}

// unsetEnv clears every calculator variable for the duration of the test.
// t.Setenv registers the restore; Unsetenv makes the key absent so .env
// files are allowed to provide it.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeEnvFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t)

	cfg, err := Load(writeEnvFile(t))
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.LogDir, cfg.LogDir)
	assert.Equal(t, want.HistoryDir, cfg.HistoryDir)
	assert.Equal(t, 100, cfg.MaxHistorySize)
	assert.True(t, cfg.AutoSave)
	assert.Equal(t, 10, cfg.Precision)
	assert.True(t, cfg.MaxInputValue.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, "utf-8", cfg.DefaultEncoding)
	assert.False(t, cfg.Telemetry)
	assert.Equal(t, filepath.Join("logs", "calculator.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join("history", "history.csv"), cfg.HistoryPath())
}

func TestLoadMissingDotEnvIsNotAnError(t *testing.T) {
	unsetEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoadFromDotEnv(t *testing.T) {
	unsetEnv(t)
	path := writeEnvFile(t,
		"CALCULATOR_LOG_DIR=data_logs",
		"CALCULATOR_LOG_FILE=my.log",
		"CALCULATOR_HISTORY_DIR=data_history",
		"CALCULATOR_MAX_HISTORY_SIZE=5",
		"CALCULATOR_AUTO_SAVE=false",
		"CALCULATOR_PRECISION=5",
		"CALCULATOR_MAX_INPUT_VALUE=10",
		"CALCULATOR_DEFAULT_ENCODING=latin1",
	)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data_logs", "my.log"), cfg.LogPath())
	assert.Equal(t, "data_history", cfg.HistoryDir)
	assert.Equal(t, 5, cfg.MaxHistorySize)
	assert.False(t, cfg.AutoSave)
	assert.Equal(t, 5, cfg.Precision)
	assert.True(t, cfg.MaxInputValue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "latin1", cfg.DefaultEncoding)
}

func TestProcessEnvironmentWinsOverDotEnv(t *testing.T) {
	unsetEnv(t)
	path := writeEnvFile(t, "CALCULATOR_PRECISION=3")
	t.Setenv("CALCULATOR_PRECISION", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Precision)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non numeric size", key: "CALCULATOR_MAX_HISTORY_SIZE", value: "lots"},
		{name: "negative size", key: "CALCULATOR_MAX_HISTORY_SIZE", value: "-1"},
		{name: "negative precision", key: "CALCULATOR_PRECISION", value: "-2"},
		{name: "zero max input", key: "CALCULATOR_MAX_INPUT_VALUE", value: "0"},
		{name: "bad max input", key: "CALCULATOR_MAX_INPUT_VALUE", value: "ten"},
		{name: "unknown encoding", key: "CALCULATOR_DEFAULT_ENCODING", value: "klingon-8"},
		{name: "unknown level", key: "CALCULATOR_LOG_LEVEL", value: "chatty"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			unsetEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load(writeEnvFile(t))
			require.Error(t, err)

			var ce *calcerr.ConfigurationError
			assert.ErrorAs(t, err, &ce)
			assert.ErrorIs(t, err, calcerr.ErrCalculator)
		})
	}
}

func TestAbsoluteFileNamesAreKept(t *testing.T) {
	cfg := Default()
	cfg.HistoryFile = filepath.Join(string(filepath.Separator), "tmp", "h.csv")

	assert.Equal(t, cfg.HistoryFile, cfg.HistoryPath())
}

func TestEnsureDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Default()

	require.NoError(t, cfg.EnsureDirs(fs))

	for _, dir := range []string{"logs", "history"} {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}
}
