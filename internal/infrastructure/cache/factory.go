package cache

import (
	"github.com/magpieiq/backend/internal/application/report"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed components when Redis is configured and
// falls back to process-local ones otherwise
type Factory struct {
	redisConfig config.RedisConfig
	logger      *zap.Logger
	connect     func(config.RedisConfig) (*redis.Client, error)
	client      *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new factory. Redis is dialled at most once, lazily.
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
		connect:     NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the shared Redis client, or nil when Redis is disabled or
// unreachable
func (f *Factory) Client() *redis.Client {
	if f.client != nil || !f.redisConfig.Enabled {
		return f.client
	}
	client, err := f.connect(f.redisConfig)
	if err != nil {
		f.logger.Warn("Redis unavailable, using in-process cache and run guard only. "+
			"Concurrent instances may run overlapping syncs.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		f.redisConfig.Enabled = false
		return nil
	}
	f.client = client
	return client
}

// DashboardCache returns the Redis cache when available, in-memory otherwise
func (f *Factory) DashboardCache() report.DashboardCache {
	if client := f.Client(); client != nil {
		f.logger.Info("Using Redis dashboard cache")
		return NewRedisDashboardCache(client)
	}
	return NewInMemoryDashboardCache()
}

// RunLock returns the Redis run lock, or nil without Redis
func (f *Factory) RunLock(cfg config.SyncConfig) *RedisRunLock {
	client := f.Client()
	if client == nil {
		return nil
	}
	return NewRedisRunLock(client, cfg.LockTTL, f.logger)
}

// Close closes the Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
