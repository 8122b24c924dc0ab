package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/narwhalmedia/gallery/pkg/identity"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// ZapLogger wraps zap logger to implement the Logger interface.
type ZapLogger struct {
	logger *zap.Logger
}

// New creates a new logger based on environment.
func New() interfaces.Logger {
	env := os.Getenv("ENVIRONMENT")
	development := env == "" || env == "development"

	logger, err := NewZapLogger(development)
	if err != nil {
		panic(err)
	}

	return logger
}

// NewZapLogger creates a new zap logger for the given environment. LOG_LEVEL
// overrides the default level.
func NewZapLogger(development bool) (*ZapLogger, error) {
	cfg := DefaultConfig()
	if development {
		cfg = DevelopmentConfig()
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Level = lvl
	}
	return cfg.Build()
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{logger: l}
}

// Zap returns the underlying zap logger for infrastructure that logs through
// zap directly.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...interfaces.Field) {
	l.logger.Debug(msg, convertFields(fields)...)
}

// Info logs an info message.
func (l *ZapLogger) Info(msg string, fields ...interfaces.Field) {
	l.logger.Info(msg, convertFields(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...interfaces.Field) {
	l.logger.Warn(msg, convertFields(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...interfaces.Field) {
	l.logger.Error(msg, convertFields(fields)...)
}

// Fatal logs a fatal message and exits.
func (l *ZapLogger) Fatal(msg string, fields ...interfaces.Field) {
	l.logger.Fatal(msg, convertFields(fields)...)
}

// WithContext returns a logger annotated with the actor and the transaction
// level bound to ctx.
func (l *ZapLogger) WithContext(ctx context.Context) interfaces.Logger {
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

// WithFields returns a logger with additional fields.
func (l *ZapLogger) WithFields(fields ...interfaces.Field) interfaces.Logger {
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

// With creates a child logger with additional fields (alias for WithFields).
func (l *ZapLogger) With(fields ...interfaces.Field) interfaces.Logger {
	return l.WithFields(fields...)
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// ContextFields returns the log fields describing the call chain of ctx.
func ContextFields(ctx context.Context) []interfaces.Field {
	if ctx == nil {
		return nil
	}
	var fields []interfaces.Field
	if actor := identity.ActorID(ctx); actor != "" {
		fields = append(fields, interfaces.String("actor_id", actor))
	}
	if tx, ok := transaction.FromContext(ctx); ok {
		fields = append(fields, interfaces.Int("tx_level", tx.Level))
	}
	return fields
}

func convertFields(fields []interfaces.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		if err, ok := field.Value.(error); ok && field.Key == "error" {
			zapFields[i] = zap.Error(err)
			continue
		}
		zapFields[i] = zap.Any(field.Key, field.Value)
	}
	return zapFields
}

// LevelEnabled reports whether the level is enabled on l.
func (l *ZapLogger) LevelEnabled(level zapcore.Level) bool {
	return l.logger.Core().Enabled(level)
}

// Helper functions for common field types

// String creates a string field.
func String(key, value string) interfaces.Field {
	return interfaces.String(key, value)
}

// Int creates an int field.
func Int(key string, value int) interfaces.Field {
	return interfaces.Int(key, value)
}

// Bool creates a bool field.
func Bool(key string, value bool) interfaces.Field {
	return interfaces.Bool(key, value)
}

// Error creates an error field.
func Error(err error) interfaces.Field {
	return interfaces.Error(err)
}

// Any creates a field with any value.
func Any(key string, value interface{}) interfaces.Field {
	return interfaces.Any(key, value)
}
