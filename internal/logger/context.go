package logger

import (
	"context"
	"log/slog"
	"time"
)

var timeNow = time.Now

type contextKey struct{}

var connIDKey = contextKey{}

// WithConnID returns a new context carrying the connection id.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnID extracts the connection id from the context.
// Returns an empty string if none is set.
func ConnID(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey).(string)
	return id
}

// FromContext returns slog.Default() annotated with the connection id, if any.
func FromContext(ctx context.Context) *slog.Logger {
	if id := ConnID(ctx); id != "" {
		return slog.Default().With("conn_id", id)
	}
	return slog.Default()
}
