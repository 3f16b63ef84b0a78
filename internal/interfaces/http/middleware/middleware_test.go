package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := serve(r, req)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123", w.Body.String())
	})

	t.Run("oversized header replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", MaxRequestIDLength+1))
		w := serve(r, req)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func TestCORSWithConfig(t *testing.T) {
	newRouter := func(origins ...string) *gin.Engine {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = origins
		r := gin.New()
		r.Use(CORSWithConfig(cfg))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	request := func(method, origin string) *http.Request {
		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set("Origin", origin)
		return req
	}

	t.Run("allowed origin", func(t *testing.T) {
		w := serve(newRouter("https://admin.example.com"), request(http.MethodGet, "https://admin.example.com"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), SandboxIDHeader)
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		w := serve(newRouter("https://admin.example.com"), request(http.MethodGet, "https://evil.example.com"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard drops credentials", func(t *testing.T) {
		w := serve(newRouter("*"), request(http.MethodGet, "https://any.example.com"))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight answered", func(t *testing.T) {
		w := serve(newRouter(), request(http.MethodOptions, "https://admin.example.com"))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecure(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, dto.ErrCodeTooLarge, decode(t, w).Error.Code)
}

func TestSandbox(t *testing.T) {
	var got admin.Scope
	r := gin.New()
	r.Use(RequestID(), Sandbox())
	r.GET("/", func(c *gin.Context) {
		got = GetScope(c)
		c.Status(http.StatusOK)
	})
	request := func(headers map[string]string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req
	}

	t.Run("production without headers", func(t *testing.T) {
		w := serve(r, request(nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, got.InSandbox())
		assert.False(t, got.Promote)
	})

	t.Run("sandbox scope", func(t *testing.T) {
		w := serve(r, request(map[string]string{SandboxIDHeader: "42"}))
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, got.InSandbox())
		assert.Equal(t, int64(42), *got.SandboxID)
	})

	t.Run("promotion", func(t *testing.T) {
		w := serve(r, request(map[string]string{SandboxIDHeader: "7", SandboxPromoteHeader: "true"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, got.Promote)
	})

	rejected := []map[string]string{
		{SandboxIDHeader: "abc"},
		{SandboxIDHeader: "0"},
		{SandboxIDHeader: "7", SandboxPromoteHeader: "maybe"},
		{SandboxPromoteHeader: "true"},
	}
	for _, headers := range rejected {
		w := serve(r, request(headers))
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", headers)
		resp := decode(t, w)
		assert.Equal(t, dto.ErrCodeInvalidSandbox, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	}
}

func TestGetScope_Default(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, GetScope(c).InSandbox())
}

func TestHandleBindError(t *testing.T) {
	SetupValidator()

	type body struct {
		TargetID string `json:"target_id" binding:"required"`
	}
	r := gin.New()
	r.Use(RequestID())
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "target_id", resp.Error.Details[0].Field)
	assert.Equal(t, "This field is required", resp.Error.Details[0].Message)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"target_id":`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
}
