package logger

import (
	"context"

	"go.uber.org/zap"
)

// loggerKey is the private context key for the per-request logger.
type loggerKey struct{}

// ContextWithLogger attaches a request-scoped logger to the context; the
// transport middleware seeds it with the request id.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request-scoped logger, or a no-op logger when the
// call did not come through the HTTP stack (tests, startup).
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
