package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/openadmin/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		scope := middleware.GetScope(c)
		if scope.InSandbox() {
			c.String(http.StatusOK, "sandbox")
			return
		}
		c.String(http.StatusOK, "production")
	})
}

func TestRouterSetup(t *testing.T) {
	tests := []struct {
		name string
		opts []RouterOption
		path string
	}{
		{"default version", nil, "/api/v1/ping"},
		{"custom version", []RouterOption{WithAPIVersion("v2")}, "/api/v2/ping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			NewRouter(engine, tt.opts...).Register(pingRegistrar{}).Setup()

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(EngineOptions{ServiceName: "openadmin", MaxBodySize: 1 << 20})
	require.NoError(t, err)
	NewRouter(engine).Register(pingRegistrar{}).Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(middleware.SandboxIDHeader, "3")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sandbox", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestNewEngine_RecoversPanics(t *testing.T) {
	engine, err := NewEngine(EngineOptions{})
	require.NoError(t, err)
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
