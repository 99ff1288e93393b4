package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDashboardCache(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryDashboardCache()
	c.now = func() time.Time { return clock }

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache")

	d := &report.Dashboard{GeneratedAt: clock}
	require.NoError(t, c.Set(ctx, d, time.Minute))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, d, got)

	clock = clock.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "expired")

	require.NoError(t, c.Set(ctx, d, time.Minute))
	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "invalidated")

	require.NoError(t, c.Set(ctx, d, 0))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "zero ttl disables caching")
}

func TestFactory_FallsBackWithoutRedis(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := NewFactory(config.RedisConfig{Enabled: false})
		assert.Nil(t, f.Client())
		assert.IsType(t, &InMemoryDashboardCache{}, f.DashboardCache())
		assert.Nil(t, f.RunLock(config.SyncConfig{LockTTL: time.Minute}))
		assert.NoError(t, f.Close())
	})

	t.Run("unreachable", func(t *testing.T) {
		dials := 0
		f := NewFactory(config.RedisConfig{Enabled: true, Host: "localhost", Port: 1})
		f.connect = func(config.RedisConfig) (*redis.Client, error) {
			dials++
			return nil, errors.New("connection refused")
		}

		assert.IsType(t, &InMemoryDashboardCache{}, f.DashboardCache())
		assert.Nil(t, f.RunLock(config.SyncConfig{LockTTL: time.Minute}))
		assert.Equal(t, 1, dials)
	})
}
