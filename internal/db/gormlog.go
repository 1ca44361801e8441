package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giftcircle/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLog routes gorm's diagnostics through the service logger. Missing
// rows are an expected outcome and never logged.
type gormLog struct {
	log   logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLog(log logger.Logger) *gormLog {
	return &gormLog{log: log.With("component", "gorm"), level: gormlogger.Warn, slow: slowQueryThreshold}
}

func (g *gormLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLog) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		logger.FromContext(ctx, g.log).Debug(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		logger.FromContext(ctx, g.log).Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		logger.FromContext(ctx, g.log).Error(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	log := logger.FromContext(ctx, g.log)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		log.Debug("db: query failed", "err", err, "elapsed", elapsed, "rows", rows, "sql", sql)
	case elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		log.Warn("db: slow query", "elapsed", elapsed, "rows", rows, "sql", sql)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		log.Debug("db: query", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
