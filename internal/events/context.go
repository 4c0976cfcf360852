package events

import "context"

type contextKey int

const (
	loggerKey contextKey = iota
	ownerKey
)

// FromContext returns the logger carried by ctx, or nil when none was
// attached. Callers fall back to their own logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return nil
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithOwner records the vault owner on the context and tags the attached
// logger, if any, so every log line from the operation carries it.
func WithOwner(ctx context.Context, owner string) context.Context {
	if l := FromContext(ctx); l != nil {
		ctx = WithLogger(ctx, l.WithField("owner", owner))
	}
	return context.WithValue(ctx, ownerKey, owner)
}

// GetOwner retrieves the vault owner from context, or "".
func GetOwner(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey).(string); ok {
		return owner
	}
	return ""
}
