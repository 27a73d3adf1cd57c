package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"calc-history/internal/calculator"
	"calc-history/internal/observability"
)

// initTelemetry starts the OTLP trace, metric and log pipelines and the
// calculator's metric instruments. The returned logger also ships entries to
// the OTLP log exporter.
func initTelemetry(ctx context.Context, logger *zap.Logger) (*zap.Logger, func(context.Context) error, error) {
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		return nil, nil, err
	}

	metricShutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, nil, errors.Join(err, traceShutdown(ctx))
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, nil, errors.Join(err, metricShutdown(ctx), traceShutdown(ctx))
	}

	logger, logShutdown, err := observability.InitLogging(ctx, logger)
	if err != nil {
		return nil, nil, errors.Join(err, metricShutdown(ctx), traceShutdown(ctx))
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(logShutdown(ctx), metricShutdown(ctx), traceShutdown(ctx))
	}

	return logger, shutdown, nil
}
