//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func newRedisTestClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisDashboardCache(t *testing.T) {
	ctx := context.Background()
	c := NewRedisDashboardCache(newRedisTestClient(t))

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	d := &report.Dashboard{
		Metrics:     report.Metrics{TotalRevenue: decimal.RequireFromString("123.45"), TotalOrders: 3},
		GeneratedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, d, time.Minute))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Metrics.TotalRevenue.Equal(d.Metrics.TotalRevenue))
	assert.Equal(t, int64(3), got.Metrics.TotalOrders)
	assert.True(t, got.GeneratedAt.Equal(d.GeneratedAt))

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRunLock(t *testing.T) {
	ctx := context.Background()
	client := newRedisTestClient(t)
	first := NewRedisRunLock(client, time.Minute, zap.NewNop())
	second := NewRedisRunLock(client, time.Minute, zap.NewNop())

	release, ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "held by the first instance")

	release()

	releaseSecond, ok, err := second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale release must not drop a lock now held by someone else
	release()
	_, ok, err = first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	releaseSecond()
}
