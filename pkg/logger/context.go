package logger

import (
	"context"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

type contextKey struct{}

var loggerKey = contextKey{}

// FromContext retrieves a logger from the context.
func FromContext(ctx context.Context) interfaces.Logger {
	if logger, ok := ctx.Value(loggerKey).(interfaces.Logger); ok {
		return logger
	}
	// Return a default logger if none is found
	return New()
}

// WithContext adds a logger to the context.
func WithContext(ctx context.Context, logger interfaces.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// ForRequest returns the logger stored in ctx annotated with the actor and
// transaction fields of ctx.
func ForRequest(ctx context.Context) interfaces.Logger {
	return FromContext(ctx).WithContext(ctx)
}
