package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probe struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func openProbeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&probe{}))
	return db
}

func readMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM category_products", "SELECT"},
		{"  insert into category_products VALUES (1)", "INSERT"},
		{"UPDATE category_products SET sequence = 2", "UPDATE"},
		{"delete from category_products", "DELETE"},
		{"WITH ranked AS (SELECT 1) UPDATE category_products SET sequence = 1", "SELECT"},
		{"CREATE TABLE x (id int)", "OTHER"},
		{"", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), tt.sql)
	}
}

func TestNewDBMetrics_NilMeter(t *testing.T) {
	_, err := NewDBMetrics(nil, DefaultDBMetricsConfig(), nil)
	var metricsErr *MetricsError
	require.ErrorAs(t, err, &metricsErr)
	assert.Equal(t, "NewDBMetrics", metricsErr.Op)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, nil)
	m, err := NewDBMetrics(mp.Meter("db"), DBMetricsConfig{SlowQueryThreshold: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "category_products", time.Millisecond)
	m.RecordQuery(ctx, "update", "category_products", 50*time.Millisecond)
	m.RecordQuery(ctx, "", "", 20*time.Millisecond)

	metrics := readMetrics(t, reader)
	total := metrics["db_query_total"]
	assert.Equal(t, int64(1), sumByAttr(t, total, "db.operation", "SELECT"))
	assert.Equal(t, int64(1), sumByAttr(t, total, "db.operation", "UPDATE"))
	assert.Equal(t, int64(1), sumByAttr(t, total, "db.operation", "UNKNOWN"))

	slow := metrics["db_slow_query_total"]
	assert.Equal(t, int64(1), sumByAttr(t, slow, "db.table", "category_products"))
	assert.Equal(t, int64(1), sumByAttr(t, slow, "db.table", "unknown"))
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, nil)
	m, err := NewDBMetrics(mp.Meter("db"), DBMetricsConfig{PoolStatsInterval: time.Hour}, zap.NewNop())
	require.NoError(t, err)

	// no pool set: nothing to sample, Stop still returns
	m.StartPoolStatsCollection(context.Background())

	db := openProbeDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	m.SetSQLDB(sqlDB)
	m.collectPoolStats(context.Background())
	m.Stop()
	m.Stop()

	metrics := readMetrics(t, reader)
	g, ok := metrics["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(4), g.DataPoints[0].Value)

	states, ok := metrics["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, states.DataPoints, 3)
}

func TestRegisterDBMetrics(t *testing.T) {
	db := openProbeDB(t)

	t.Run("disabled", func(t *testing.T) {
		m, err := RegisterDBMetrics(db, NewMeterProviderWithReader(sdkmetric.NewManualReader(), nil),
			DBMetricsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, m)

		m, err = RegisterDBMetrics(db, &MeterProvider{logger: zap.NewNop()}, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("records statements", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := NewMeterProviderWithReader(reader, nil)
		m, err := RegisterDBMetrics(db, mp, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, m)
		t.Cleanup(m.Stop)

		ctx := context.Background()
		require.NoError(t, db.WithContext(ctx).Create(&probe{Name: "a"}).Error)
		var got []probe
		require.NoError(t, db.WithContext(ctx).Find(&got).Error)
		require.Len(t, got, 1)
		require.NoError(t, db.WithContext(ctx).Model(&probe{}).Where("id = ?", got[0].ID).Update("name", "b").Error)

		metrics := readMetrics(t, reader)
		total := metrics["db_query_total"]
		assert.Equal(t, int64(1), sumByAttr(t, total, "db.operation", "INSERT"))
		assert.GreaterOrEqual(t, sumByAttr(t, total, "db.operation", "SELECT"), int64(1))
		assert.Equal(t, int64(1), sumByAttr(t, total, "db.operation", "UPDATE"))
	})
}
