package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/narwhalmedia/gallery/pkg/identity"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// gormLogger routes GORM logs through zap
type gormLogger struct {
	logger        *zap.Logger
	debug         bool
	slowThreshold time.Duration
}

// NewGormLogger adapts logger for GORM. With debug set every statement is
// traced; otherwise only errors and statements slower than slowThreshold.
func NewGormLogger(logger *zap.Logger, debug bool, slowThreshold time.Duration) gormlogger.Interface {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &gormLogger{
		logger:        logger.Named("gorm"),
		debug:         debug,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.debug = level >= gormlogger.Info
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.with(ctx).Sugar().Infof(msg, data...)
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.with(ctx).Sugar().Warnf(msg, data...)
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.with(ctx).Sugar().Errorf(msg, data...)
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := l.with(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("sql error",
			zap.Error(err),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case elapsed > l.slowThreshold:
		log.Warn("slow sql query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	case l.debug:
		log.Debug("sql trace",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func (l *gormLogger) with(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.logger
	}
	log := l.logger
	if actor := identity.ActorID(ctx); actor != "" {
		log = log.With(zap.String("actor_id", actor))
	}
	if tx, ok := transaction.FromContext(ctx); ok {
		log = log.With(zap.Int("tx_level", tx.Level))
	}
	return log
}
