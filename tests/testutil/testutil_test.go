package testutil

import (
	"net/http"
	"testing"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestCatalogDB(t *testing.T) {
	db := NewCatalogDB(t)

	cat := db.Category(t, "Shoes")
	a := db.Product(t, "A")
	b := db.Bundle(t, "B", decimal.NewFromInt(5))
	m := db.Media(t, "front")

	assert.NotZero(t, cat.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, m.ID)

	db.Place(t, cat.ID, b.ID, "2", admin.ProductionScope())
	db.Place(t, cat.ID, a.ID, "1", admin.ProductionScope())
	db.Place(t, cat.ID, a.ID, "1.5", admin.SandboxScope(4))

	assert.Equal(t, []int64{a.ID, b.ID}, db.ProductOrder(t, cat.ID, admin.ProductionScope()))
	assert.Equal(t, []string{"1", "2"}, db.Sequences(t, cat.ID, admin.ProductionScope()))
	assert.Equal(t, []string{"1.5"}, db.Sequences(t, cat.ID, admin.SandboxScope(4)))

	_, err := db.Registry.Lookup("CategoryProduct")
	require.NoError(t, err)
}

func TestPerformRequest(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		body["header"] = c.GetHeader("X-Sandbox-ID")
		c.JSON(http.StatusCreated, body)
	})

	w := PerformRequest(t, engine, http.MethodPost, "/echo", map[string]string{"name": "x"}, map[string]string{"X-Sandbox-ID": "3"})

	assert.Equal(t, http.StatusCreated, w.Code)
	got := JSONResponseAs[map[string]string](t, w)
	assert.Equal(t, map[string]string{"name": "x", "header": "3"}, got)
}
