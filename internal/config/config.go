// Package config loads the calculator configuration from an optional .env file
// and the CALCULATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"calc-history/internal/calcerr"
)

// Prefix is prepended to every environment variable name.
const Prefix = "CALCULATOR"

// Config is the calculator configuration.
type Config struct {
	LogDir          string          `envconfig:"LOG_DIR" default:"logs"`
	LogFile         string          `envconfig:"LOG_FILE" default:"calculator.log"`
	HistoryDir      string          `envconfig:"HISTORY_DIR" default:"history"`
	HistoryFile     string          `envconfig:"HISTORY_FILE" default:"history.csv"`
	MaxHistorySize  int             `envconfig:"MAX_HISTORY_SIZE" default:"100"`
	AutoSave        bool            `envconfig:"AUTO_SAVE" default:"true"`
	Precision       int             `envconfig:"PRECISION" default:"10"`
	MaxInputValue   decimal.Decimal `envconfig:"MAX_INPUT_VALUE" default:"1000000"`
	DefaultEncoding string          `envconfig:"DEFAULT_ENCODING" default:"utf-8"`
	LogLevel        string          `envconfig:"LOG_LEVEL" default:"info"`
	Telemetry       bool            `envconfig:"TELEMETRY" default:"false"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		LogDir:          "logs",
		LogFile:         "calculator.log",
		HistoryDir:      "history",
		HistoryFile:     "history.csv",
		MaxHistorySize:  100,
		AutoSave:        true,
		Precision:       10,
		MaxInputValue:   decimal.NewFromInt(1_000_000),
		DefaultEncoding: "utf-8",
		LogLevel:        "info",
	}
}

// Load reads dotenvPath when present (defaulting to ".env"), then fills a
// Config from the environment. Variables already set in the process
// environment take precedence over the .env file.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, calcerr.Configuration(fmt.Sprintf("load %s", dotenvPath), err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, calcerr.Configuration("Invalid configuration value", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks value ranges and that the encoding and log level are known.
func (c Config) Validate() error {
	if c.MaxHistorySize < 0 {
		return calcerr.Configuration(fmt.Sprintf("max history size must be >= 0, got %d", c.MaxHistorySize), nil)
	}
	if c.Precision < 0 {
		return calcerr.Configuration(fmt.Sprintf("precision must be >= 0, got %d", c.Precision), nil)
	}
	if !c.MaxInputValue.IsPositive() {
		return calcerr.Configuration(fmt.Sprintf("max input value must be positive, got %s", c.MaxInputValue), nil)
	}
	if _, err := c.Encoding(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return calcerr.Configuration("invalid log level", err)
	}
	return nil
}

// Encoding resolves DefaultEncoding to a text encoding.
func (c Config) Encoding() (encoding.Encoding, error) {
	enc, err := htmlindex.Get(c.DefaultEncoding)
	if err != nil {
		return nil, calcerr.Configuration(fmt.Sprintf("unsupported encoding %q", c.DefaultEncoding), err)
	}
	return enc, nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// LogPath is the log file location. Relative file names live under LogDir.
func (c Config) LogPath() string {
	return resolve(c.LogDir, c.LogFile)
}

// HistoryPath is the default history file location. Relative file names live
// under HistoryDir.
func (c Config) HistoryPath() string {
	return resolve(c.HistoryDir, c.HistoryFile)
}

// EnsureDirs creates the log and history directories.
func (c Config) EnsureDirs(fs afero.Fs) error {
	for _, dir := range []string{filepath.Dir(c.LogPath()), filepath.Dir(c.HistoryPath())} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return calcerr.Configuration(fmt.Sprintf("create directory %s", dir), err)
		}
	}
	return nil
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
