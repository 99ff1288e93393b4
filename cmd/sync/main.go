package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/bootstrap"
	"github.com/magpieiq/backend/internal/infrastructure/cache"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"github.com/magpieiq/backend/internal/infrastructure/persistence"
	"github.com/magpieiq/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	var (
		logLevel string
		timeout  time.Duration
	)
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Abort the run after this long")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	os.Exit(run(log, timeout))
}

func run(log *zap.Logger, timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(logLevelOf(cfg))))
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer db.Close()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Error("Failed to migrate sqlite schema", zap.Error(err))
			return 1
		}
	}

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Error("Failed to initialize tracing", zap.Error(err))
		return 1
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()
	if tracerProvider.IsEnabled() {
		if err := db.EnableTracing(tracerProvider.Provider(), persistence.TracingOptions{
			DBSystem:   cfg.Database.Driver,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		}); err != nil {
			log.Error("Failed to instrument database", zap.Error(err))
			return 1
		}
	}

	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	defer cacheFactory.Close()

	orchestrator, err := bootstrap.NewOrchestrator(bootstrap.SyncDeps{
		Config:      cfg,
		DB:          db,
		Logger:      log,
		Cache:       cacheFactory,
		Invalidator: cacheFactory.DashboardCache(),
		Tracer:      tracerProvider,
	})
	if err != nil {
		log.Error("Failed to build sync pipeline", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := orchestrator.TryRun(ctx, ingest.TriggerCLI)
	if errors.Is(err, ingest.ErrRunInProgress) {
		log.Warn("Another sync run holds the lock; nothing to do")
		return 2
	}
	if err != nil {
		log.Error("Sync run could not start", zap.Error(err))
		return 1
	}

	if err := renderSummary(os.Stdout, result); err != nil {
		log.Warn("Failed to print summary", zap.Error(err))
	}
	if !result.Success {
		return 1
	}
	return 0
}

// logLevelOf keeps SQL statements quiet unless debug logging was configured
func logLevelOf(cfg *config.Config) string {
	if cfg.Log.Level == "debug" {
		return "debug"
	}
	return "warn"
}
