package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"go.uber.org/zap"
)

// SyncRunner performs one sync run; *ingest.Orchestrator implements it
type SyncRunner interface {
	TryRun(ctx context.Context, trigger ingest.Trigger) (ingest.RunResult, error)
}

// SyncCronTriggerConfig holds configuration for the sync cron trigger
type SyncCronTriggerConfig struct {
	// Minute is the minute of every hour the run fires at
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// RunOnStart fires one run as soon as the trigger starts
	RunOnStart bool
}

// DefaultSyncCronTriggerConfig fires at the top of every hour
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		Minute:        0,
		CheckInterval: 15 * time.Second,
	}
}

// Validate checks the configuration
func (c SyncCronTriggerConfig) Validate() error {
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: minute must be within 0..59, got %d", ErrInvalidConfig, c.Minute)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// TriggerStatus is a snapshot of the trigger for the status endpoint
type TriggerStatus struct {
	Running   bool       `json:"running"`
	Minute    int        `json:"minute"`
	LastFired *time.Time `json:"lastFired,omitempty"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
	Skipped   int        `json:"skipped"`
}

// SyncCronTrigger fires one sync run per hour at the configured minute.
// Each run is dispatched on its own goroutine so the clock keeps being
// checked; a tick that finds a run in flight is skipped and logged.
type SyncCronTrigger struct {
	config SyncCronTriggerConfig
	runner SyncRunner
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastSlot  string // hour slot of the last fire, "2006-01-02T15"
	lastFired time.Time
	skipped   int
}

// NewSyncCronTrigger creates a new sync cron trigger
func NewSyncCronTrigger(config SyncCronTriggerConfig, runner SyncRunner, logger *zap.Logger) (*SyncCronTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncCronTrigger{
		config: config,
		runner: runner,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start starts the trigger loop. Calling it twice is a no-op.
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync cron trigger started",
		zap.Int("minute", c.config.Minute),
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.Bool("run_on_start", c.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for it and any dispatched run, bounded by ctx.
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the trigger state
func (c *SyncCronTrigger) Status() TriggerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := TriggerStatus{
		Running: c.isRunning,
		Minute:  c.config.Minute,
		Skipped: c.skipped,
	}
	if !c.lastFired.IsZero() {
		last := c.lastFired
		status.LastFired = &last
	}
	if c.isRunning {
		next := NextFireTime(c.now(), c.config.Minute)
		status.NextRun = &next
	}
	return status
}

// NextFireTime returns the first time at or after now whose minute equals
// minute, truncated to the minute.
func NextFireTime(now time.Time, minute int) time.Time {
	next := now.Truncate(time.Hour).Add(time.Duration(minute) * time.Minute)
	if next.Before(now.Truncate(time.Minute)) {
		next = next.Add(time.Hour)
	}
	return next
}

func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	if c.config.RunOnStart {
		c.dispatch(ctx, ingest.TriggerStartup, "")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires once per hour slot when the clock is on the configured minute
func (c *SyncCronTrigger) checkAndTrigger(ctx context.Context) {
	now := c.now()
	if now.Minute() != c.config.Minute {
		return
	}

	slot := now.Format("2006-01-02T15")
	c.mu.Lock()
	if c.lastSlot == slot {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.dispatch(ctx, ingest.TriggerSchedule, slot)
}

func (c *SyncCronTrigger) dispatch(ctx context.Context, trigger ingest.Trigger, slot string) {
	c.mu.Lock()
	c.lastSlot = slot
	c.lastFired = c.now()
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		result, err := c.runner.TryRun(ctx, trigger)
		if errors.Is(err, ingest.ErrRunInProgress) {
			c.mu.Lock()
			c.skipped++
			c.mu.Unlock()
			c.logger.Warn("Sync run skipped, previous run still in flight",
				zap.String("trigger", string(trigger)),
				zap.String("slot", slot),
			)
			return
		}
		if err != nil {
			c.logger.Error("Sync run could not start", zap.String("trigger", string(trigger)), zap.Error(err))
			return
		}
		c.logger.Debug("Scheduled sync run completed",
			zap.String("run_id", result.RunID),
			zap.Bool("success", result.Success),
		)
	}()
}
