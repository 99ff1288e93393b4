// Package bootstrap assembles the sync pipeline from configuration so the
// server and the one-shot CLI run the same wiring.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/infrastructure/cache"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/magpieiq/backend/internal/infrastructure/ecommerce"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"github.com/magpieiq/backend/internal/infrastructure/persistence"
	"github.com/magpieiq/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SyncDeps are the collaborators of the sync pipeline. Everything after
// Logger is optional.
type SyncDeps struct {
	Config  *config.Config
	DB      *persistence.Database
	Logger  *zap.Logger
	Metrics *telemetry.SyncMetrics
	// Cache supplies the cross-process run lock when Redis is reachable
	Cache *cache.Factory
	// Invalidator is dropped after every run that wrote to the store
	Invalidator ingest.CacheInvalidator
	// Tracer opens a span per run; nil or disabled means no spans
	Tracer *telemetry.TracerProvider
}

const ingestTracerName = "github.com/magpieiq/backend/ingest"

// NewOrchestrator builds the feed client, repositories and run policies and
// returns the orchestrator driving them.
func NewOrchestrator(d SyncDeps) (*ingest.Orchestrator, error) {
	var feedOpts []ecommerce.FeedClientOption
	if d.Metrics != nil {
		feedOpts = append(feedOpts, ecommerce.WithBreakerStateFunc(d.Metrics.ObserveBreakerState))
	}
	feed, err := ecommerce.NewFeedClient(d.Config.Feed, d.Logger, feedOpts...)
	if err != nil {
		return nil, fmt.Errorf("feed client: %w", err)
	}

	runCfg, err := SyncPolicies(d.Config.Sync)
	if err != nil {
		return nil, fmt.Errorf("sync policies: %w", err)
	}

	rng := ingest.NewSeededRandom(Seed(d.Config.Sync.Seed, time.Now()))
	products := persistence.NewGormProductRepository(d.DB.DB)
	uow := persistence.NewGormUnitOfWork(d.DB.DB)

	opts := []ingest.OrchestratorOption{
		ingest.WithRunContext(func(ctx context.Context, runID string) context.Context {
			ctx, _ = logger.WithRunID(ctx, d.Logger, runID)
			return ctx
		}),
	}
	if d.Tracer.IsEnabled() {
		opts = append(opts, ingest.WithTracer(d.Tracer.Tracer(ingestTracerName)))
	}
	if d.Metrics != nil {
		opts = append(opts, ingest.WithObserver(d.Metrics))
	}
	if d.Invalidator != nil {
		opts = append(opts, ingest.WithCacheInvalidator(d.Invalidator))
	}
	if d.Cache != nil {
		if lock := d.Cache.RunLock(d.Config.Sync); lock != nil {
			opts = append(opts, ingest.WithRunLock(lock))
		}
	}

	return ingest.NewOrchestrator(
		feed,
		ingest.NewReconciler(products, d.DB, d.Logger),
		ingest.NewMaterializer(uow, d.DB, runCfg, rng, d.Logger),
		d.DB,
		runCfg,
		rng,
		d.Logger,
		opts...,
	), nil
}

// Seed returns the configured seed, or one derived from now when unset
func Seed(configured int64, now time.Time) uint64 {
	if configured != 0 {
		return uint64(configured)
	}
	return uint64(now.UnixNano())
}
