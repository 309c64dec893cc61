package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerAdapter routes gorm's log output into a module logger.
// Statements are logged at trace, so they only show up when the datastore
// module level is "trace". Slow statements and failed statements other than
// gorm.ErrRecordNotFound are logged at warn. The trace id carried by the
// statement context is attached to every line.
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter returns an adapter that warns about statements slower
// than slowThreshold. Zero disables slow statement warnings.
func NewGormLoggerAdapter(log Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormLoggerAdapter{logger: log, slowThreshold: slowThreshold}
}

// LogMode is ignored; module levels decide what is written.
func (a *GormLoggerAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return a
}

// Info is mapped to debug, gorm's info output is chatty.
func (a *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace is called by gorm after every statement.
func (a *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	statement, rows := fc()
	fields := []Field{
		String("sql", statement),
		Int64("rows_affected", rows),
		Duration("elapsed", elapsed),
	}
	log := a.logger.WithContext(ctx)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("query error", append(fields, Error(err))...)
		return
	}
	if a.slowThreshold > 0 && elapsed > a.slowThreshold {
		log.Warn("slow query", append(fields, Duration("threshold", a.slowThreshold))...)
		return
	}
	log.Trace("sql query", fields...)
}
