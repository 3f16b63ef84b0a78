// Package testutil provides common test utilities for the admin persistence
// engine: sqlmock and in-memory catalog databases, catalog fixtures and gin
// request helpers.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/internal/infrastructure/persistence/sandbox"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a new postgres flavoured mock database for testing.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	err := m.Mock.ExpectationsWereMet()
	require.NoError(t, err, "Unmet database expectations")
}

// CatalogDB is an in-memory sqlite database migrated with the catalog schema,
// plus a registry holding its admin metadata.
type CatalogDB struct {
	DB       *gorm.DB
	Registry *metadata.Registry
}

// NewCatalogDB creates a fresh catalog database. It is closed when the test
// ends.
func NewCatalogDB(t *testing.T) *CatalogDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: opens a distinct database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "Failed to migrate catalog")
	require.NoError(t, sandbox.RegisterCallbacks(db))

	reg := metadata.NewRegistry()
	require.NoError(t, models.RegisterCatalog(reg))

	return &CatalogDB{DB: db, Registry: reg}
}

// Category inserts a category
func (c *CatalogDB) Category(t *testing.T, name string) *models.Category {
	t.Helper()
	row := &models.Category{Name: name, Active: true}
	require.NoError(t, c.DB.Create(row).Error)
	return row
}

// Product inserts a product
func (c *CatalogDB) Product(t *testing.T, name string) *models.Product {
	t.Helper()
	row := &models.Product{Name: name, SKU: "SKU-" + name, Price: decimal.NewFromInt(10), Active: true}
	require.NoError(t, c.DB.Create(row).Error)
	return row
}

// Bundle inserts a bundle product
func (c *CatalogDB) Bundle(t *testing.T, name string, discount decimal.Decimal) *models.BundleProduct {
	t.Helper()
	row := &models.BundleProduct{
		Product:        models.Product{Name: name, SKU: "BND-" + name, Price: decimal.NewFromInt(25), Active: true},
		BundleDiscount: discount,
	}
	require.NoError(t, c.DB.Create(row).Error)
	return row
}

// Media inserts a media asset keyed by a random id
func (c *CatalogDB) Media(t *testing.T, title string) *models.Media {
	t.Helper()
	row := &models.Media{ID: uuid.NewString(), URL: "https://cdn.example.com/" + title + ".jpg", Title: title, AltText: title}
	require.NoError(t, c.DB.Create(row).Error)
	return row
}

// Place inserts a category placement with sort value seq in scope
func (c *CatalogDB) Place(t *testing.T, categoryID, productID int64, seq string, scope admin.Scope) *models.CategoryProduct {
	t.Helper()
	row := &models.CategoryProduct{
		CategoryID: categoryID,
		ProductID:  productID,
		Sequence:   decimal.RequireFromString(seq),
	}
	require.NoError(t, sandbox.WithSandbox(c.DB, scope).Create(row).Error)
	return row
}

// Placements returns the visible placements of a category in sort order
func (c *CatalogDB) Placements(t *testing.T, categoryID int64, scope admin.Scope) []models.CategoryProduct {
	t.Helper()
	var rows []models.CategoryProduct
	err := c.DB.Scopes(sandbox.Scope(scope, "")).
		Where("category_id = ?", categoryID).
		Order("sequence").Order("id").
		Find(&rows).Error
	require.NoError(t, err)
	return rows
}

// Sequences returns the sort values of Placements as strings
func (c *CatalogDB) Sequences(t *testing.T, categoryID int64, scope admin.Scope) []string {
	t.Helper()
	rows := c.Placements(t, categoryID, scope)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Sequence.String()
	}
	return out
}

// ProductOrder returns the product ids of Placements in sort order
func (c *CatalogDB) ProductOrder(t *testing.T, categoryID int64, scope admin.Scope) []int64 {
	t.Helper()
	rows := c.Placements(t, categoryID, scope)
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ProductID
	}
	return out
}
