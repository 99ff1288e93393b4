package cache

import (
	"context"
	"sync"
	"time"

	appreport "github.com/magpieiq/backend/internal/application/report"
	"github.com/magpieiq/backend/internal/domain/report"
)

// InMemoryDashboardCache holds the dashboard in process memory.
// Suitable for single-instance deployments and testing.
type InMemoryDashboardCache struct {
	mu        sync.RWMutex
	dashboard *report.Dashboard
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemoryDashboardCache creates an empty in-memory cache
func NewInMemoryDashboardCache() *InMemoryDashboardCache {
	return &InMemoryDashboardCache{now: time.Now}
}

// Get returns the cached dashboard unless it has expired
func (c *InMemoryDashboardCache) Get(_ context.Context) (*report.Dashboard, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dashboard == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	return c.dashboard, true, nil
}

// Set stores the dashboard for ttl. A non-positive ttl stores nothing.
func (c *InMemoryDashboardCache) Set(_ context.Context, d *report.Dashboard, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.dashboard = nil
		return nil
	}
	c.dashboard = d
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the cached dashboard
func (c *InMemoryDashboardCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboard = nil
	return nil
}

var _ appreport.DashboardCache = (*InMemoryDashboardCache)(nil)
