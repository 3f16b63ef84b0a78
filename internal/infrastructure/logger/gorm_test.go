package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Options(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
	)
	assert.Equal(t, time.Second, gl.slow)
	assert.False(t, gl.quietMiss)

	warn, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, warn.level)
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return `UPDATE "category_products" SET "sequence"=1.00001`, 2 }

	t.Run("successful statement at info is logged at debug with context", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")
		ctx, _ = WithSandboxID(ctx, zap.NewNop(), 3)

		gl.Trace(ctx, time.Now(), query, nil)

		require.Equal(t, 1, recorded.Len())
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
		assert.Equal(t, int64(3), entry.ContextMap()["sandbox_id"])
		assert.Equal(t, int64(2), entry.ContextMap()["rows"])
	})

	t.Run("errors are logged", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, errors.New("deadlock"))

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow statements warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), query, errors.New("boom"))

		assert.Equal(t, 0, recorded.Len())
	})
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)
	ctx, _ := WithSandboxID(context.Background(), zap.NewNop(), 5)

	gl.Info(ctx, "opened %d connections", 4)
	gl.Warn(ctx, "pool at %d%%", 90)
	gl.Error(ctx, "lost %s", "connection")

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "pool at 90%", entries[0].Message)
	assert.Equal(t, int64(5), entries[0].ContextMap()["sandbox_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "lost connection", entries[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}
