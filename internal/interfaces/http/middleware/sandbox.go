package middleware

import (
	"net/http"
	"strconv"

	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/infrastructure/logger"
	"github.com/erp/openadmin/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const (
	// SandboxIDHeader selects the sandbox a request edits
	SandboxIDHeader = "X-Sandbox-ID"
	// SandboxPromoteHeader marks a sandbox promotion
	SandboxPromoteHeader = "X-Sandbox-Promote"
	// ScopeKey is the gin context key of the request's admin.Scope
	ScopeKey = "admin_scope"
)

// Sandbox resolves the admin.Scope of the request from the sandbox headers.
// Without X-Sandbox-ID the request addresses production rows.
func Sandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := admin.ProductionScope()

		if raw := c.GetHeader(SandboxIDHeader); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				abortInvalidSandbox(c, "X-Sandbox-ID must be a positive integer")
				return
			}
			scope = admin.SandboxScope(id)

			ctx, _ := logger.WithSandboxID(c.Request.Context(), logger.FromContext(c.Request.Context()), id)
			c.Request = c.Request.WithContext(ctx)
		}

		if raw := c.GetHeader(SandboxPromoteHeader); raw != "" {
			promote, err := strconv.ParseBool(raw)
			if err != nil {
				abortInvalidSandbox(c, "X-Sandbox-Promote must be a boolean")
				return
			}
			if promote && !scope.InSandbox() {
				abortInvalidSandbox(c, "X-Sandbox-Promote requires X-Sandbox-ID")
				return
			}
			scope.Promote = promote
		}

		c.Set(ScopeKey, scope)
		c.Next()
	}
}

// GetScope returns the scope resolved by Sandbox, or the production scope
func GetScope(c *gin.Context) admin.Scope {
	if v, ok := c.Get(ScopeKey); ok {
		if scope, ok := v.(admin.Scope); ok {
			return scope
		}
	}
	return admin.ProductionScope()
}

func abortInvalidSandbox(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInvalidSandbox, message, GetRequestID(c),
	))
}
