package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
)

// gormLog sends gorm's output to the application logger. Failed queries are
// errors, queries slower than slow are warnings, everything else is debug
// and only shows at the Info level.
type gormLog struct {
	log   *logger.Logger
	level gormLogger.LogLevel
	slow  time.Duration
}

// GormLogger logs failed and slow queries. Record-not-found is not a failure.
func GormLogger(logg *logger.Logger, slow time.Duration) gormLogger.Interface {
	return &gormLog{log: logg.With("component", "gorm"), level: gormLogger.Warn, slow: slow}
}

func (g *gormLog) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLog) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("query failed", "error", err, "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	case g.slow > 0 && elapsed > g.slow && g.level >= gormLogger.Warn:
		sql, rows := fc()
		g.log.Warn("slow query", "threshold", g.slow.String(), "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	case g.level >= gormLogger.Info:
		sql, rows := fc()
		g.log.Debug("query", "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql)
	}
}
