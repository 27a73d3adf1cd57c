// Package calculator is the command surface the REPL drives: it selects
// operations, performs calculations, records them in history and notifies
// observers.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"calc-history/internal/calcerr"
	"calc-history/internal/calculation"
	"calc-history/internal/config"
	"calc-history/internal/history"
	"calc-history/internal/observability"
	"calc-history/internal/observer"
	"calc-history/internal/operation"
	"calc-history/internal/storage"
	"calc-history/internal/validator"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Store persists history to a path.
type Store interface {
	Save(path string, calcs []calculation.Calculation) error
	Load(path string) ([]calculation.Calculation, error)
}

// Calculator is single-threaded: one command runs to completion before the
// next starts.
type Calculator struct {
	cfg       config.Config
	ops       *operation.Registry
	validator validator.Validator
	history   *history.History
	store     Store
	observers []observer.Observer
	logger    *zap.Logger
	current   operation.Operation
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithRegistry sets the operation registry. Defaults to operation.NewRegistry().
func WithRegistry(ops *operation.Registry) Option {
	return func(c *Calculator) { c.ops = ops }
}

// WithStore sets the history store. Defaults to a CSV store on the OS
// filesystem using the configured encoding.
func WithStore(s Store) Option {
	return func(c *Calculator) { c.store = s }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

// WithObservers registers observers notified after each calculation.
func WithObservers(obs ...observer.Observer) Option {
	return func(c *Calculator) { c.observers = append(c.observers, obs...) }
}

// New returns a Calculator with no operation selected.
func New(cfg config.Config, options ...Option) (*Calculator, error) {
	c := &Calculator{
		cfg:       cfg,
		validator: validator.New(cfg.MaxInputValue),
		history:   history.New(cfg.MaxHistorySize),
		logger:    zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}

	if c.ops == nil {
		c.ops = operation.NewRegistry()
	}
	if c.store == nil {
		enc, err := cfg.Encoding()
		if err != nil {
			return nil, err
		}
		c.store = storage.NewCSVStore(c.ops, storage.WithEncoding(enc))
	}

	c.logger.Info("calculator initialized",
		zap.Int("max_history_size", cfg.MaxHistorySize),
		zap.Int("precision", cfg.Precision),
		zap.String("max_input_value", cfg.MaxInputValue.String()),
	)

	return c, nil
}

// Registry returns the registry operations are resolved from.
func (c *Calculator) Registry() *operation.Registry { return c.ops }

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() config.Config { return c.cfg }

// AddObserver registers o for future calculations.
func (c *Calculator) AddObserver(o observer.Observer) {
	c.observers = append(c.observers, o)
}

// RemoveObserver unregisters o. It is a no-op when o is not registered or
// its dynamic type is not comparable, as with observer.Func.
func (c *Calculator) RemoveObserver(o observer.Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	for i, existing := range c.observers {
		if reflect.TypeOf(existing) == reflect.TypeOf(o) && existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// SetOperation selects the operation used by PerformOperation.
func (c *Calculator) SetOperation(name string) error {
	op, err := c.ops.Create(name)
	if err != nil {
		return err
	}
	c.current = op
	c.logger.Info("operation set", zap.String("operation", op.Name()))
	return nil
}

// Operation returns the selected operation, or nil.
func (c *Calculator) Operation() operation.Operation { return c.current }

// PerformOperation validates a and b, applies the selected operation, records
// the calculation and notifies observers. Validation errors are returned
// unchanged; any other failure is wrapped in a *calcerr.OperationError.
func (c *Calculator) PerformOperation(ctx context.Context, a, b any) (decimal.Decimal, error) {
	logger := observability.LoggerWithTrace(ctx, c.logger)

	if c.current == nil {
		err := calcerr.Operation("No operation set", nil)
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "none")))
		logger.Error("operation failed", zap.Error(err))
		return decimal.Decimal{}, err
	}
	opName := c.current.Name()

	ctx, span := tracer.Start(ctx, "calculator.perform",
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("session.id", observability.SessionIDFromContext(ctx)),
		),
	)
	defer span.End()
	logger = observability.LoggerWithTrace(ctx, c.logger)

	start := time.Now()
	calc, err := c.compute(a, b)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		msg := "operation failed"
		if calcerr.IsValidation(err) {
			msg = "validation error"
		} else {
			err = calcerr.Operation("Operation failed", err)
		}
		observability.RecordError(ctx, span, logger, errorCounter, opName, msg, err)
		return decimal.Decimal{}, err
	}

	c.history.Add(calc)

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsed, attrs)
	resultGauge.Record(ctx, calc.Result().InexactFloat64(), attrs)
	historyGauge.Record(ctx, int64(c.history.Len()))

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.String("result", calc.Result().String()),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(
		attribute.String("calculator.operand.a", calc.Operand1().String()),
		attribute.String("calculator.operand.b", calc.Operand2().String()),
		attribute.String("calculator.result", calc.Result().String()),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator operation completed",
		zap.String("operation", opName),
		zap.String("a", calc.Operand1().String()),
		zap.String("b", calc.Operand2().String()),
		zap.String("result", calc.Result().String()),
		zap.Float64("duration_ms", elapsed),
	)

	c.notify(ctx, calc)

	return calc.Result(), nil
}

// compute validates the operands and executes the selected operation. A panic
// inside an operation is turned into an error.
func (c *Calculator) compute(a, b any) (calc calculation.Calculation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", c.current.Name(), r)
		}
	}()

	va, err := c.validator.ValidateNumber(a)
	if err != nil {
		return calculation.Calculation{}, err
	}
	vb, err := c.validator.ValidateNumber(b)
	if err != nil {
		return calculation.Calculation{}, err
	}

	return calculation.NewFromOperation(c.current, va, vb)
}

// notify calls every observer. Failures are logged and counted, never
// returned, so a broken observer cannot undo a recorded calculation.
func (c *Calculator) notify(ctx context.Context, calc calculation.Calculation) {
	logger := observability.LoggerWithTrace(ctx, c.logger)

	for _, o := range c.observers {
		if err := safeUpdate(ctx, o, calc, c.history.Calculations()); err != nil {
			hookErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("observer", fmt.Sprintf("%T", o))))
			logger.Error("observer failed",
				zap.String("observer", fmt.Sprintf("%T", o)),
				zap.Error(err),
			)
		}
	}
}

func safeUpdate(ctx context.Context, o observer.Observer, calc calculation.Calculation, hist []calculation.Calculation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return o.Update(ctx, calc, hist)
}

// Undo reverts the last calculation. It returns history.ErrNothingToUndo when
// there is nothing to revert.
func (c *Calculator) Undo() error {
	if err := c.history.Undo(); err != nil {
		return err
	}
	c.recordHistorySize()
	c.logger.Info("undo", zap.Int("history_size", c.history.Len()))
	return nil
}

// Redo reapplies the last undone calculation. It returns
// history.ErrNothingToRedo when there is nothing to reapply.
func (c *Calculator) Redo() error {
	if err := c.history.Redo(); err != nil {
		return err
	}
	c.recordHistorySize()
	c.logger.Info("redo", zap.Int("history_size", c.history.Len()))
	return nil
}

// ClearHistory removes every calculation. It cannot be undone.
func (c *Calculator) ClearHistory() {
	c.history.Clear()
	c.recordHistorySize()
	c.logger.Info("history cleared")
}

func (c *Calculator) recordHistorySize() {
	historyGauge.Record(context.Background(), int64(c.history.Len()))
}

// History returns a copy of the recorded calculations, oldest first.
func (c *Calculator) History() []calculation.Calculation {
	return c.history.Calculations()
}

// CanUndo reports whether Undo would succeed.
func (c *Calculator) CanUndo() bool { return c.history.CanUndo() }

// CanRedo reports whether Redo would succeed.
func (c *Calculator) CanRedo() bool { return c.history.CanRedo() }

// SaveHistory writes the history to path, or to the configured history file
// when path is empty. Failures are *calcerr.DataError.
func (c *Calculator) SaveHistory(ctx context.Context, path string) (string, error) {
	path = c.pathOrDefault(path)

	ctx, span := tracer.Start(ctx, "calculator.save", trace.WithAttributes(attribute.String("history.path", path)))
	defer span.End()
	logger := observability.LoggerWithTrace(ctx, c.logger)

	calcs := c.history.Calculations()
	if err := c.store.Save(path, calcs); err != nil {
		err = asDataError("Failed to save history", err)
		observability.RecordError(ctx, span, logger, errorCounter, "save", "history save failed", err)
		return path, err
	}

	span.SetAttributes(attribute.Int("history.size", len(calcs)))
	logger.Info("history saved", zap.String("path", path), zap.Int("calculations", len(calcs)))
	return path, nil
}

// LoadHistory replaces the history with the contents of path, or of the
// configured history file when path is empty. Loaded history cannot be
// undone. Failures are *calcerr.DataError and leave the history untouched.
func (c *Calculator) LoadHistory(ctx context.Context, path string) (string, error) {
	path = c.pathOrDefault(path)

	ctx, span := tracer.Start(ctx, "calculator.load", trace.WithAttributes(attribute.String("history.path", path)))
	defer span.End()
	logger := observability.LoggerWithTrace(ctx, c.logger)

	calcs, err := c.store.Load(path)
	if err != nil {
		err = asDataError("Failed to load history", err)
		observability.RecordError(ctx, span, logger, errorCounter, "load", "history load failed", err)
		return path, err
	}

	c.history.Replace(calcs)
	historyGauge.Record(ctx, int64(c.history.Len()))

	span.SetAttributes(attribute.Int("history.size", c.history.Len()))
	logger.Info("history loaded", zap.String("path", path), zap.Int("calculations", c.history.Len()))
	return path, nil
}

func (c *Calculator) pathOrDefault(path string) string {
	if path == "" {
		return c.cfg.HistoryPath()
	}
	return path
}

func asDataError(msg string, err error) error {
	var de *calcerr.DataError
	if errors.As(err, &de) {
		return err
	}
	return calcerr.Data(msg, err)
}
