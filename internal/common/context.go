package common

import "context"

type callContextKey struct{}

// CallContext carries per-call identity through executors and backends.
type CallContext struct {
	CorrelationID string
	Tool          string
	Logger        *Logger
}

// WithCallContext returns a new context with cc attached.
func WithCallContext(ctx context.Context, cc CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// GetCallContext extracts the CallContext from ctx, if present.
func GetCallContext(ctx context.Context) (CallContext, bool) {
	cc, ok := ctx.Value(callContextKey{}).(CallContext)
	return cc, ok
}

// LoggerFrom returns the call-scoped logger in ctx, or fallback.
func LoggerFrom(ctx context.Context, fallback *Logger) *Logger {
	if cc, ok := GetCallContext(ctx); ok && cc.Logger != nil {
		return cc.Logger
	}
	return fallback
}
