/*
Package logger 提供 GORM 到 Zap 的日志适配。
*/
package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormOption 调整 GormLogger 的行为。
type GormOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow query logging.
func WithSlowThreshold(d time.Duration) GormOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

// WithRecordNotFound makes gorm.ErrRecordNotFound show up as an error. Repositories
// translate it into domain not-found errors, so it is silent by default.
func WithRecordNotFound() GormOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// GormLogger 将 GORM 日志写入 zap，并附带请求与链路追踪标识。
type GormLogger struct {
	level         gormlogger.LogLevel
	logger        *zap.Logger
	slowThreshold time.Duration
	logNotFound   bool
}

// NewGormLogger uses the global logger as it is when called, so call it after Init.
func NewGormLogger(level gormlogger.LogLevel, opts ...GormOption) *GormLogger {
	l := &GormLogger{
		level:         level,
		logger:        Named("gorm"),
		slowThreshold: defaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	if fields := contextFields(ctx); len(fields) > 0 {
		return l.logger.With(fields...)
	}
	return l.logger
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.forContext(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.forContext(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.forContext(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs one executed statement: failures at Error, slow statements at Warn and
// everything else at Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return
		}
		sql, rows := fc()
		l.forContext(ctx).Error("Database operation failed", statementFields(sql, rows, elapsed, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.forContext(ctx).Warn("Slow SQL query",
			statementFields(sql, rows, elapsed, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.forContext(ctx).Info("SQL query executed", statementFields(sql, rows, elapsed)...)
	}
}

func statementFields(sql string, rows int64, elapsed time.Duration, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}, extra...)
}

var _ gormlogger.Interface = (*GormLogger)(nil)
