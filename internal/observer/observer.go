// Package observer provides hooks notified after every successful calculation.
package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"calc-history/internal/calculation"
	"calc-history/internal/observability"
)

// Observer is notified once per recorded calculation. history is a copy of
// the full history, the new calculation included.
type Observer interface {
	Update(ctx context.Context, c calculation.Calculation, history []calculation.Calculation) error
}

// Func adapts a plain function to Observer.
type Func func(ctx context.Context, c calculation.Calculation, history []calculation.Calculation) error

func (f Func) Update(ctx context.Context, c calculation.Calculation, history []calculation.Calculation) error {
	return f(ctx, c, history)
}

// Logging writes one structured log entry per calculation.
type Logging struct {
	logger *zap.Logger
}

func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{logger: logger}
}

func (o *Logging) Update(ctx context.Context, c calculation.Calculation, _ []calculation.Calculation) error {
	observability.LoggerWithTrace(ctx, o.logger).Info("calculation recorded",
		zap.Time("timestamp", c.Timestamp()),
		zap.String("operation", c.Operation()),
		zap.String("operand1", c.Operand1().String()),
		zap.String("operand2", c.Operand2().String()),
		zap.String("result", c.Result().String()),
	)
	return nil
}

// Saver persists a full history.
type Saver interface {
	Save(path string, calcs []calculation.Calculation) error
}

// AutoSave rewrites the history file after every calculation.
type AutoSave struct {
	store  Saver
	path   string
	logger *zap.Logger
}

func NewAutoSave(store Saver, path string, logger *zap.Logger) *AutoSave {
	return &AutoSave{store: store, path: path, logger: logger}
}

func (o *AutoSave) Update(ctx context.Context, _ calculation.Calculation, history []calculation.Calculation) error {
	if err := o.store.Save(o.path, history); err != nil {
		return fmt.Errorf("auto-save: %w", err)
	}
	observability.LoggerWithTrace(ctx, o.logger).Debug("history auto-saved",
		zap.String("path", o.path),
		zap.Int("calculations", len(history)),
	)
	return nil
}

// Metrics counts calculations per operation and tracks the history size in a
// Prometheus registry.
type Metrics struct {
	calculations *prometheus.CounterVec
	historySize  prometheus.Gauge
	lastRecorded prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calculator",
			Name:      "calculations_total",
			Help:      "Total number of calculations recorded in history.",
		}, []string{"operation"}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calculator",
			Name:      "history_size",
			Help:      "Number of calculations in history after the last calculation.",
		}),
		lastRecorded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "calculator",
			Name:      "last_calculation_timestamp_seconds",
			Help:      "Unix time of the last recorded calculation.",
		}),
	}

	for _, c := range []prometheus.Collector{m.calculations, m.historySize, m.lastRecorded} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering calculator metrics: %w", err)
		}
	}

	return m, nil
}

func (o *Metrics) Update(_ context.Context, c calculation.Calculation, history []calculation.Calculation) error {
	o.calculations.WithLabelValues(c.Operation()).Inc()
	o.historySize.Set(float64(len(history)))
	o.lastRecorded.Set(float64(c.Timestamp().UnixNano()) / float64(time.Second))
	return nil
}
