package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var commandTracer = otel.Tracer("repl")

var untracedCommands = map[string]struct{}{
	"help":  {},
	"exit":  {},
	"stats": {},
}

func shouldTraceCommand(name string) bool {
	_, skip := untracedCommands[name]
	return !skip
}

// RunCommand runs one REPL command inside a span (unless the command is
// untraced) and logs its completion with duration and session id.
func RunCommand(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) error) error {
	start := time.Now()

	if shouldTraceCommand(name) {
		var span trace.Span
		ctx, span = commandTracer.Start(ctx, "repl."+name,
			trace.WithAttributes(
				attribute.String("repl.command", name),
				attribute.String("session.id", SessionIDFromContext(ctx)),
			),
		)
		defer span.End()

		err := fn(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		logCommand(ctx, logger, name, start, err)
		return err
	}

	err := fn(ctx)
	logCommand(ctx, logger, name, start, err)
	return err
}

func logCommand(ctx context.Context, logger *zap.Logger, name string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("command", name),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	LoggerWithTrace(ctx, logger).Info("command completed", fields...)
}
