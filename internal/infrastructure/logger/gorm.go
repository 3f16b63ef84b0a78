package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm statements and messages to zap. Entries carry the
// request, sandbox and span of the statement's context.
type GormLogger struct {
	base      *zap.Logger
	level     gormlogger.LogLevel
	slow      time.Duration
	quietMiss bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements warn. Zero
// disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithIgnoreRecordNotFoundError drops gorm.ErrRecordNotFound from the error log
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.quietMiss = ignore }
}

// NewGormLogger creates a GormLogger writing to the "gorm" child of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:      base.Named("gorm"),
		level:     level,
		slow:      200 * time.Millisecond,
		quietMiss: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace implements gormlogger.Interface. The statement is only rendered when
// an entry is written.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	lvl, msg, fields, ok := l.classify(elapsed, err)
	if !ok {
		return
	}
	ce := l.entry(ctx).Check(lvl, msg)
	if ce == nil {
		return
	}
	sql, rows := fc()
	ce.Write(append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)...)
}

// classify picks the level and message of a finished statement
func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, []zap.Field, bool) {
	switch {
	case err != nil:
		if l.level < gormlogger.Error || (l.quietMiss && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return 0, "", nil, false
		}
		return zapcore.ErrorLevel, "SQL error", []zap.Field{zap.Error(err)}, true
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		return zapcore.WarnLevel, "Slow SQL", []zap.Field{zap.Duration("threshold", l.slow)}, true
	case l.level >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL", nil, true
	}
	return 0, "", nil, false
}

func (l *GormLogger) printf(ctx context.Context, at gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < at {
		return
	}
	if ce := l.entry(ctx).Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write()
	}
}

func (l *GormLogger) entry(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, l.base)
	if requestID := GetRequestID(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	if sandboxID, ok := GetSandboxID(ctx); ok {
		log = log.With(zap.Int64("sandbox_id", sandboxID))
	}
	return log
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps an application log level to the gorm level. Unknown
// levels log warnings and errors.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}
