package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/openadmin/internal/application/adorned"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/erp/openadmin/internal/infrastructure/cache"
	"github.com/erp/openadmin/internal/infrastructure/config"
	"github.com/erp/openadmin/internal/infrastructure/logger"
	"github.com/erp/openadmin/internal/infrastructure/migration"
	"github.com/erp/openadmin/internal/infrastructure/persistence"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"github.com/erp/openadmin/internal/infrastructure/persistence/rebalance"
	"github.com/erp/openadmin/internal/infrastructure/telemetry"
	"github.com/erp/openadmin/internal/interfaces/http/handler"
	"github.com/erp/openadmin/internal/interfaces/http/router"
	"github.com/erp/openadmin/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}

	tp, err := telemetry.NewTracerProvider(ctx, telCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log := lp.Bridge(baseLog, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting catalog admin",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPreparedStatements(cfg.Database.PrepareStmt),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(db, cfg.Database.Driver, log); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	tracing.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	if cfg.Database.Driver == config.DriverSQLite {
		tracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(tracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, dbMetricsCfg, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(metricsCtx)
		defer dbMetrics.Stop()
	}

	svc, closeService, err := newAdornedService(db, cfg, mp, log)
	if err != nil {
		log.Fatal("Failed to build admin service", zap.Error(err))
	}
	defer func() {
		_ = closeService()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineOptions{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        tp.IsEnabled(),
		MeterProvider:  mp,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, sqlDB)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	router.NewRouter(engine).
		Register(handler.NewAdornedHandler(svc, cfg.Persistence.DefaultPageSize, cfg.Persistence.MaxPageSize)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// exporters flush last so shutdown spans and logs are delivered
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newAdornedService assembles the catalog registry, the cached metadata
// provider and the adorned target list orchestrator behind the service.
// The returned func stops the metadata cache.
func newAdornedService(db *persistence.Database, cfg *config.Config, mp *telemetry.MeterProvider, log *zap.Logger) (*adorned.Service, func() error, error) {
	reg := metadata.NewRegistry()
	if err := models.RegisterCatalog(reg); err != nil {
		return nil, nil, err
	}
	cols, err := adorned.NewCollections(reg, models.CatalogCollections()...)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := telemetry.NewAdminMetrics(mp.Meter("openadmin.adorned"))
	if err != nil {
		return nil, nil, err
	}

	provider := cache.NewMetadataCache(metadata.NewRegistryProvider(reg),
		cache.WithMetadataTTL(cfg.Persistence.MetadataCacheTTL),
		cache.WithMetadataLogger(log),
	)
	orchestrator := adorned.NewOrchestrator(reg,
		provider,
		persistence.NewDynamicEntityDao(db.DB, reg),
		rebalance.New(db.DB, log),
		adorned.WithIncrement(cfg.Persistence.RebalanceIncrement),
		adorned.WithLogger(log),
		adorned.WithRecorder(metrics),
	)
	svc := adorned.NewService(orchestrator, cols, persistence.NewTransactor(db.DB),
		adorned.WithImmutableCollections(cfg.Admin.ImmutableCollections...),
		adorned.WithServiceRecorder(metrics),
		adorned.WithServiceLogger(log),
	)
	return svc, provider.Close, nil
}

// migrateSchema applies the embedded migrations of driver. The migrator
// shares the pool of db and is left open, closing it would close the pool.
func migrateSchema(db *persistence.Database, driver string, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	src, err := migration.EmbeddedSource(migrations.FS, driver)
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, driver, src, log)
	if err != nil {
		return err
	}
	return m.Up()
}
