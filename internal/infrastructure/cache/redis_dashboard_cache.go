package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	appreport "github.com/magpieiq/backend/internal/application/report"
	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/redis/go-redis/v9"
)

// RedisDashboardCache stores the assembled dashboard as one JSON value,
// shared by every API instance
type RedisDashboardCache struct {
	client *redis.Client
	key    string
}

// NewRedisDashboardCache creates a dashboard cache on an existing client
func NewRedisDashboardCache(client *redis.Client) *RedisDashboardCache {
	return &RedisDashboardCache{client: client, key: KeyPrefix + "dashboard"}
}

// Get returns the cached dashboard, ok=false on a miss
func (c *RedisDashboardCache) Get(ctx context.Context) (*report.Dashboard, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dashboard cache: %w", err)
	}

	var d report.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		// a value we cannot read is a miss; the next Set replaces it
		return nil, false, nil
	}
	return &d, true, nil
}

// Set stores the dashboard for ttl
func (c *RedisDashboardCache) Set(ctx context.Context, d *report.Dashboard, ttl time.Duration) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached dashboard
func (c *RedisDashboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

var _ appreport.DashboardCache = (*RedisDashboardCache)(nil)
