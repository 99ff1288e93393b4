package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	reportapp "github.com/magpieiq/backend/internal/application/report"
	"github.com/magpieiq/backend/internal/bootstrap"
	"github.com/magpieiq/backend/internal/infrastructure/auth"
	"github.com/magpieiq/backend/internal/infrastructure/cache"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"github.com/magpieiq/backend/internal/infrastructure/persistence"
	"github.com/magpieiq/backend/internal/infrastructure/scheduler"
	"github.com/magpieiq/backend/internal/infrastructure/telemetry"
	"github.com/magpieiq/backend/internal/interfaces/http/handler"
	"github.com/magpieiq/backend/internal/interfaces/http/middleware"
	"github.com/magpieiq/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting MagpieIQ backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Traces and log export share the collector used for metrics
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, log.Level())

	// Database with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if tracerProvider.IsEnabled() {
		if err := db.EnableTracing(tracerProvider.Provider(), persistence.TracingOptions{
			DBSystem:   cfg.Database.Driver,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		}); err != nil {
			log.Fatal("Failed to instrument database", zap.Error(err))
		}
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Metrics: OTLP for HTTP traffic, Prometheus for the sync job
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	syncMetrics := telemetry.NewSyncMetrics()

	// Redis-backed cache and run lock, with in-process fallbacks
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}()
	dashboardCache := cacheFactory.DashboardCache()

	orchestrator, err := bootstrap.NewOrchestrator(bootstrap.SyncDeps{
		Config:      cfg,
		DB:          db,
		Logger:      log,
		Metrics:     syncMetrics,
		Cache:       cacheFactory,
		Invalidator: dashboardCache,
		Tracer:      tracerProvider,
	})
	if err != nil {
		log.Fatal("Failed to build sync pipeline", zap.Error(err))
	}

	dashboardService := reportapp.NewDashboardService(
		persistence.NewGormDashboardRepository(db.DB),
		log,
		reportapp.WithCache(dashboardCache, cfg.Dashboard.CacheTTL),
	)

	// Hourly trigger
	var triggerStatus handler.TriggerStatusProvider
	var trigger *scheduler.SyncCronTrigger
	if cfg.Sync.Enabled {
		trigger, err = scheduler.NewSyncCronTrigger(scheduler.SyncCronTriggerConfig{
			Minute:        cfg.Sync.Minute,
			CheckInterval: cfg.Sync.CheckInterval,
			RunOnStart:    cfg.Sync.RunOnStart,
		}, orchestrator, log)
		if err != nil {
			log.Fatal("Failed to create sync trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		triggerStatus = trigger
	} else {
		log.Info("Scheduled sync disabled; runs only start from the API or the sync CLI")
	}

	// Authentication
	jwtCfg := cfg.JWT
	if jwtCfg.Secret == "" {
		jwtCfg.Secret = randomSecret()
		log.Warn("JWT secret not configured; using a random per-process secret. Tokens will not survive a restart.")
	}
	tokens := auth.NewJWTService(jwtCfg)
	credentials, err := auth.NewCredentialChecker(cfg.Auth)
	if err != nil {
		log.Fatal("Invalid dashboard credentials", zap.Error(err))
	}

	// HTTP engine and routes
	engine, err := router.NewEngine(cfg.HTTP, log, meterProvider, tracerProvider)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	var loginLimiter *middleware.RateLimiter
	if cfg.HTTP.AuthRateLimitRequests > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	}
	router.RegisterRoutes(engine, router.Handlers{
		Health:    handler.NewHealthHandler(db),
		Auth:      handler.NewAuthHandler(credentials, tokens, log),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Sync:      handler.NewSyncHandler(orchestrator, triggerStatus),
		Metrics:   syncMetrics.Handler(),
	}, router.Security{Tokens: tokens, LoginLimiter: loginLimiter}, log)

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

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sync trigger did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown failed", zap.Error(err))
	}
	if id, running := orchestrator.Running(); running {
		log.Warn("Exiting with a sync run in flight", zap.String("run_id", id))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Log export shutdown failed", zap.Error(err))
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
