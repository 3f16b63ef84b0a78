package sandbox

import (
	"context"
	"testing"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSandboxDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.CategoryProduct{}))
	require.NoError(t, RegisterCallbacks(db))
	return db
}

func ptr[T any](v T) *T { return &v }

func seedPlacements(t *testing.T, db *gorm.DB) {
	rows := []models.CategoryProduct{
		{CategoryID: 1, ProductID: 1, Sequence: decimal.NewFromInt(1)},
		{CategoryID: 1, ProductID: 2, Sequence: decimal.NewFromInt(2), SandboxModel: models.SandboxModel{SandboxID: ptr(int64(7))}},
		{CategoryID: 1, ProductID: 3, Sequence: decimal.NewFromInt(3), SandboxModel: models.SandboxModel{SandboxID: ptr(int64(7)), SandboxDeleted: ptr(true)}},
		{CategoryID: 1, ProductID: 4, Sequence: decimal.NewFromInt(4), SandboxModel: models.SandboxModel{SandboxID: ptr(int64(8))}},
		{CategoryID: 1, ProductID: 5, Sequence: decimal.NewFromInt(5), SandboxModel: models.SandboxModel{SandboxArchived: ptr(true)}},
	}
	require.NoError(t, db.Create(&rows).Error)
}

func productIDs(t *testing.T, db *gorm.DB, scope admin.Scope) []int64 {
	var ids []int64
	err := db.Model(&models.CategoryProduct{}).
		Scopes(Scope(scope, "")).
		Order("product_id").
		Pluck("product_id", &ids).Error
	require.NoError(t, err)
	return ids
}

func TestScope(t *testing.T) {
	db := setupSandboxDB(t)
	seedPlacements(t, db)

	t.Run("production sees live production rows only", func(t *testing.T) {
		assert.Equal(t, []int64{1}, productIDs(t, db, admin.ProductionScope()))
	})

	t.Run("sandbox sees its own live rows only", func(t *testing.T) {
		assert.Equal(t, []int64{2}, productIDs(t, db, admin.SandboxScope(7)))
		assert.Equal(t, []int64{4}, productIDs(t, db, admin.SandboxScope(8)))
		assert.Empty(t, productIDs(t, db, admin.SandboxScope(9)))
	})

	t.Run("including archived lifts the flag filter", func(t *testing.T) {
		assert.Equal(t, []int64{2, 3}, productIDs(t, db, admin.SandboxScope(7).IncludingArchived()))
		assert.Equal(t, []int64{1, 5}, productIDs(t, db, admin.ProductionScope().IncludingArchived()))
	})
}

func TestCondition_Alias(t *testing.T) {
	db := setupSandboxDB(t)

	stmt := db.Session(&gorm.Session{DryRun: true}).
		Table("category_products AS root").
		Where(Condition(admin.SandboxScope(3), "root")).
		Find(&[]models.CategoryProduct{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "`root`.`sandbox_id` = ?")
	assert.Contains(t, sql, "`root`.`sandbox_deleted` IS NULL")
	assert.Contains(t, sql, "`root`.`sandbox_archived` IS NULL")
	assert.Equal(t, []any{int64(3)}, stmt.Vars)
}

func TestWithSandbox(t *testing.T) {
	db := setupSandboxDB(t)
	ctx := context.Background()

	t.Run("sandbox scope stamps created rows", func(t *testing.T) {
		row := &models.CategoryProduct{CategoryID: 2, ProductID: 1, Sequence: decimal.NewFromInt(1)}
		require.NoError(t, WithSandbox(db.WithContext(ctx), admin.SandboxScope(11)).Create(row).Error)
		require.NotNil(t, row.SandboxID)
		assert.Equal(t, int64(11), *row.SandboxID)

		var stored models.CategoryProduct
		require.NoError(t, db.First(&stored, row.ID).Error)
		require.NotNil(t, stored.SandboxID)
		assert.Equal(t, int64(11), *stored.SandboxID)
	})

	t.Run("production scope leaves rows unstamped", func(t *testing.T) {
		row := &models.CategoryProduct{CategoryID: 2, ProductID: 2, Sequence: decimal.NewFromInt(2)}
		require.NoError(t, WithSandbox(db.WithContext(ctx), admin.ProductionScope()).Create(row).Error)
		assert.Nil(t, row.SandboxID)
	})

	t.Run("models without sandbox columns are untouched", func(t *testing.T) {
		require.NoError(t, db.AutoMigrate(&models.Category{}))
		cat := &models.Category{Name: "Shoes", Active: true}
		require.NoError(t, WithSandbox(db, admin.SandboxScope(11)).Create(cat).Error)
		assert.NotZero(t, cat.ID)
	})

	t.Run("unregistered callback stops stamping", func(t *testing.T) {
		require.NoError(t, UnregisterCallbacks(db))

		row := &models.CategoryProduct{CategoryID: 3, ProductID: 1, Sequence: decimal.NewFromInt(1)}
		require.NoError(t, WithSandbox(db, admin.SandboxScope(11)).Create(row).Error)
		assert.Nil(t, row.SandboxID)
	})
}
