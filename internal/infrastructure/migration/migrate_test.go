package migration

import (
	"database/sql"
	"testing"

	"github.com/erp/openadmin/internal/infrastructure/config"
	"github.com/erp/openadmin/migrations"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func newSQLiteMigrator(t *testing.T, db *sql.DB) *Migrator {
	t.Helper()
	src, err := EmbeddedSource(migrations.FS, config.DriverSQLite)
	require.NoError(t, err)
	m, err := New(db, config.DriverSQLite, src, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestMigrator_SQLite(t *testing.T) {
	db := openSQLite(t)
	m := newSQLiteMigrator(t, db)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	for _, table := range []string{"categories", "products", "media", "category_products", "product_media"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	// a second run has nothing to do
	require.NoError(t, m.Up())

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, tableExists(t, db, "category_products"))
	assert.True(t, tableExists(t, db, "products"))

	require.NoError(t, m.GoTo(2))
	assert.True(t, tableExists(t, db, "product_media"))

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, tableExists(t, db, "categories"))
}

func TestMigrator_DirSource(t *testing.T) {
	dir := t.TempDir()
	mf, err := CreateMigration(dir, "create notes", "")
	require.NoError(t, err)
	require.NoError(t, writeFile(mf.UpPath, "CREATE TABLE notes (id INTEGER PRIMARY KEY);"))
	require.NoError(t, writeFile(mf.DownPath, "DROP TABLE notes;"))

	db := openSQLite(t)
	src, err := DirSource(dir)
	require.NoError(t, err)
	m, err := New(db, config.DriverSQLite, src, nil)
	require.NoError(t, err)

	require.NoError(t, m.Up())
	assert.True(t, tableExists(t, db, "notes"))
}

func TestNew_UnsupportedDialect(t *testing.T) {
	src, err := EmbeddedSource(migrations.FS, config.DriverSQLite)
	require.NoError(t, err)

	_, err = New(openSQLite(t), "mysql", src, nil)
	assert.ErrorContains(t, err, "unsupported migration dialect")
}

func TestEmbeddedSource_UnknownDialect(t *testing.T) {
	_, err := EmbeddedSource(migrations.FS, "oracle")
	assert.Error(t, err)
}
