// Package router assembles the gin engine of the admin API.
package router

import (
	"github.com/erp/openadmin/internal/infrastructure/logger"
	"github.com/erp/openadmin/internal/infrastructure/telemetry"
	"github.com/erp/openadmin/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar registers a handler's routes under the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix. Default: v1.
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router on engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers every queued registrar under /api/{version}
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineOptions configures the middleware chain of NewEngine
type EngineOptions struct {
	Logger         *zap.Logger
	ServiceName    string
	Tracing        bool
	MeterProvider  *telemetry.MeterProvider
	CORSOrigins    []string
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine creates a gin engine with the admin middleware chain: recovery,
// request id, tracing, request logging, metrics, security headers, CORS,
// body limit and sandbox scope resolution.
func NewEngine(opts EngineOptions) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.CORSOrigins

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.Tracing}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(opts.MeterProvider, log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}
	engine.Use(middleware.Sandbox())
	return engine, nil
}
