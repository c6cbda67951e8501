package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
)

// slowQueryThreshold marks statements worth a warning.
const slowQueryThreshold = 200 * time.Millisecond

// slogGormLogger sends gorm output through the context logger.
// Missing rows are expected lookups and are not logged.
type slogGormLogger struct {
	level gormlogger.LogLevel
	base  context.Context
}

var _ gormlogger.Interface = (*slogGormLogger)(nil)

func newGormLogger(base context.Context, level gormlogger.LogLevel) *slogGormLogger {
	return &slogGormLogger{
		level: level,
		base:  logging.WithAttrs(base, slog.String("component", "gorm")),
	}
}

func (l *slogGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logging.Info(l.ctx(ctx), fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logging.Warn(l.ctx(ctx), fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logging.Error(l.ctx(ctx), fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logging.Error(l.ctx(ctx), "sql failed",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.Any("err", errs.Loggable(err)),
		)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logging.Warn(l.ctx(ctx), "slow sql",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logging.Debug(l.ctx(ctx), "sql",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

// ctx keeps the attrs of the query context and falls back to the logger gorm was opened with.
func (l *slogGormLogger) ctx(ctx context.Context) context.Context {
	if ctx == nil {
		return l.base
	}
	if !logging.HasLogger(ctx) {
		ctx = logging.WithLogger(ctx, logging.Logger(l.base))
	}
	return logging.WithAttrs(ctx, slog.String("component", "gorm"))
}
