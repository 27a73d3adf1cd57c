package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a JSON logger writing to path at the given level, and a
// function that flushes and closes the file.
func NewLogger(path string, level zapcore.Level) (*zap.Logger, func(), error) {
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	logger := zap.New(core, zap.AddCaller(), zap.Fields(zap.String("service", ServiceName())))

	return logger, func() {
		_ = logger.Sync()
		closeSink()
	}, nil
}

// LoggerWithTrace returns a child logger enriched with trace_id and span_id
// fields from the active OTel span in ctx, plus the session id when present.
//
// ctx itself is attached as a field: the otelzap bridge picks up any field
// holding a context.Context and emits the record with it, so exported log
// records carry the native trace and span ids.
func LoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := SessionIDFromContext(ctx); id != "" {
		logger = logger.With(zap.String("session_id", id))
	}

	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return logger
	}

	return logger.With(
		zap.Any("context", ctx),
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)
}
