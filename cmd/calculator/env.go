package main

import (
	"github.com/spf13/afero"

	"calc-history/internal/config"
)

// loadConfig reads .env when present and the CALCULATOR_* environment.
// Existing process environment variables are not overridden. The log and
// history directories are created before anything writes to them.
func loadConfig(fs afero.Fs) (config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.EnsureDirs(fs); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}
