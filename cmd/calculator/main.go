package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"calc-history/internal/calculator"
	"calc-history/internal/observability"
	"calc-history/internal/observer"
	"calc-history/internal/operation"
	"calc-history/internal/repl"
	"calc-history/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()

	// Config
	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	// Logger
	logger, closeLog, err := observability.NewLogger(cfg.LogPath(), cfg.Level())
	if err != nil {
		return err
	}
	defer closeLog()

	// Telemetry
	if cfg.Telemetry {
		var shutdown func(context.Context) error
		logger, shutdown, err = initTelemetry(ctx, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown", zap.Error(err))
			}
		}()
	}

	// Observers
	reg := prometheus.NewRegistry()
	metrics, err := observer.NewMetrics(reg)
	if err != nil {
		return err
	}

	enc, err := cfg.Encoding()
	if err != nil {
		return err
	}
	ops := operation.NewRegistry()
	store := storage.NewCSVStore(ops, storage.WithFs(fs), storage.WithEncoding(enc))

	observers := []observer.Observer{observer.NewLogging(logger), metrics}
	if cfg.AutoSave {
		observers = append(observers, observer.NewAutoSave(store, cfg.HistoryPath(), logger))
	}

	// Calculator
	calc, err := calculator.New(cfg,
		calculator.WithRegistry(ops),
		calculator.WithStore(store),
		calculator.WithLogger(logger),
		calculator.WithObservers(observers...),
	)
	if err != nil {
		return err
	}

	err = repl.New(calc, os.Stdin, os.Stdout,
		repl.WithLogger(logger),
		repl.WithGatherer(reg),
	).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
