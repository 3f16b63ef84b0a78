// Package integration runs the admin stack against PostgreSQL started with
// testcontainers. The schema comes from the embedded migrations.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/infrastructure/config"
	"github.com/erp/openadmin/internal/infrastructure/migration"
	"github.com/erp/openadmin/internal/infrastructure/persistence"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/migrations"
	"github.com/erp/openadmin/tests/testutil"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm/logger"
	"go.uber.org/zap"
)

var (
	sharedContainer   testcontainers.Container
	sharedContainerMu sync.Mutex
	sharedDSN         string
)

// TestDB is a catalog database on the shared container
type TestDB struct {
	*testutil.CatalogDB
	DSN string
	t   *testing.T
}

// NewTestDB connects to the shared PostgreSQL container, starting and
// migrating it on first use. Tables are truncated so every test starts
// empty.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests need docker")
	}

	dsn := sharedDatabase(t)

	opts := []persistence.Option{}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		opts = append(opts, persistence.WithLogger(logger.Default.LogMode(logger.Info)))
	}
	db, err := persistence.Open(gormpostgres.Open(dsn), &config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
	}, opts...)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = db.Close() })

	reg := metadata.NewRegistry()
	require.NoError(t, models.RegisterCatalog(reg))

	tdb := &TestDB{CatalogDB: &testutil.CatalogDB{DB: db.DB, Registry: reg}, DSN: dsn, t: t}
	tdb.CleanTables()
	return tdb
}

func sharedDatabase(t *testing.T) string {
	t.Helper()
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()
	if sharedContainer != nil {
		return sharedDSN
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("openadmin_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, err := persistence.Open(gormpostgres.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	src, err := migration.EmbeddedSource(migrations.FS, config.DriverPostgres)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, config.DriverPostgres, src, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "Failed to run migrations")
	require.NoError(t, m.Close())

	sharedContainer = container
	sharedDSN = dsn
	return dsn
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate %s", table)
	}
}

// CleanupSharedContainer terminates the shared container. TestMain calls it
// after the package ran.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedDSN = ""
	}
}
