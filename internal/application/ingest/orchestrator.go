package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// RunState is a step of the sync state machine:
// Idle -> Fetching -> Reconciling -> Materializing -> Done | Failed
type RunState string

const (
	StateIdle          RunState = "Idle"
	StateFetching      RunState = "Fetching"
	StateReconciling   RunState = "Reconciling"
	StateMaterializing RunState = "Materializing"
	StateDone          RunState = "Done"
	StateFailed        RunState = "Failed"
)

// Trigger records what started a run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerStartup  Trigger = "startup"
	TriggerCLI      Trigger = "cli"
)

// DefaultHistorySize is the number of finished runs kept in memory
const DefaultHistorySize = 50

// RunResult is the structured outcome of one run
type RunResult struct {
	RunID           string        `json:"runId"`
	Trigger         Trigger       `json:"trigger"`
	Success         bool          `json:"success"`
	State           RunState      `json:"state"`
	ProductsSynced  int           `json:"productsSynced"`
	ProductsCreated int           `json:"productsCreated"`
	ProductsUpdated int           `json:"productsUpdated"`
	ProductsFailed  int           `json:"productsFailed"`
	SourceOrders    int           `json:"sourceOrders"`
	Multiplier      int           `json:"multiplier"`
	OrdersSynced    int           `json:"ordersSynced"`
	OrdersFailed    int           `json:"ordersFailed"`
	SyncedAt        time.Time     `json:"syncedAt"`
	Duration        time.Duration `json:"duration"`
	Error           string        `json:"error,omitempty"`
}

// Wrote reports whether the run changed the store
func (r RunResult) Wrote() bool {
	return r.ProductsSynced > 0 || r.OrdersSynced > 0
}

// RunObserver receives every finished run, e.g. to export metrics
type RunObserver interface {
	ObserveRun(result RunResult)
}

// CacheInvalidator drops cached read models after a run changed the store
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RunLock guards against runs in other processes.
// TryAcquire returns acquired=false when another holder owns the lock.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// RunContextFunc decorates the context of a run, e.g. so SQL logs carry the run id
type RunContextFunc func(ctx context.Context, runID string) context.Context

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithObserver registers a run observer
func WithObserver(obs RunObserver) OrchestratorOption {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithCacheInvalidator registers a cache to drop after writing runs
func WithCacheInvalidator(inv CacheInvalidator) OrchestratorOption {
	return func(o *Orchestrator) { o.invalidator = inv }
}

// WithRunLock adds a cross-process lock around each run
func WithRunLock(lock RunLock) OrchestratorOption {
	return func(o *Orchestrator) { o.lock = lock }
}

// WithTracer opens a span per run with tracer
func WithTracer(tracer trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithRunContext decorates every run context with fn
func WithRunContext(fn RunContextFunc) OrchestratorOption {
	return func(o *Orchestrator) { o.runContext = fn }
}

// WithHistorySize sets how many finished runs are kept
func WithHistorySize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.historySize = n
		}
	}
}

// Orchestrator sequences fetch, reconcile and materialize for one run at a time.
type Orchestrator struct {
	source       integration.FeedSource
	reconciler   *Reconciler
	materializer *Materializer
	probe        StoreProbe
	cfg          Config
	rng          Randomizer
	logger       *zap.Logger

	now         func() time.Time
	observers   []RunObserver
	invalidator CacheInvalidator
	lock        RunLock
	tracer      trace.Tracer
	runContext  RunContextFunc
	historySize int

	running atomic.Bool

	mu      sync.RWMutex
	state   RunState
	current string
	history []RunResult
}

// NewOrchestrator creates an Orchestrator. probe may be nil.
func NewOrchestrator(
	source integration.FeedSource,
	reconciler *Reconciler,
	materializer *Materializer,
	probe StoreProbe,
	cfg Config,
	rng Randomizer,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		source:       source,
		reconciler:   reconciler,
		materializer: materializer,
		probe:        probe,
		cfg:          cfg,
		rng:          rng,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		tracer:       noop.NewTracerProvider().Tracer(""),
		historySize:  DefaultHistorySize,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the state of the current or last run
func (o *Orchestrator) State() RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Running reports whether a run is in flight, and its id
func (o *Orchestrator) Running() (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current, o.running.Load()
}

// History returns finished runs, newest first
func (o *Orchestrator) History() []RunResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]RunResult, len(o.history))
	for i, r := range o.history {
		out[len(o.history)-1-i] = r
	}
	return out
}

// LastResult returns the newest finished run
func (o *Orchestrator) LastResult() (RunResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.history) == 0 {
		return RunResult{}, false
	}
	return o.history[len(o.history)-1], true
}

// Run performs one run. A refused run comes back as an unsuccessful result.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	result, err := o.TryRun(ctx, TriggerManual)
	if errors.Is(err, ErrRunInProgress) {
		return RunResult{
			Trigger:  TriggerManual,
			State:    o.State(),
			SyncedAt: o.now(),
			Error:    err.Error(),
		}
	}
	return result
}

// TryRun performs one run unless another is in flight, in which case it
// returns ErrRunInProgress without touching the store.
func (o *Orchestrator) TryRun(ctx context.Context, trigger Trigger) (RunResult, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	return o.execute(ctx, trigger, uuid.NewString()), nil
}

// Start claims the run slot synchronously and performs the run in the
// background. The run outlives ctx cancellation but keeps its values.
// The returned channel yields the result once and is then closed.
func (o *Orchestrator) Start(ctx context.Context, trigger Trigger) (string, <-chan RunResult, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return "", nil, err
	}

	runID := uuid.NewString()
	done := make(chan RunResult, 1)
	go func() {
		defer close(done)
		defer release()
		done <- o.execute(context.WithoutCancel(ctx), trigger, runID)
	}()
	return runID, done, nil
}

func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	releaseLocal := func() { o.running.Store(false) }

	if o.lock == nil {
		return releaseLocal, nil
	}
	releaseLock, acquired, err := o.lock.TryAcquire(ctx)
	switch {
	case err != nil:
		o.logger.Warn("Run lock unavailable, continuing with the local guard only", zap.Error(err))
		return releaseLocal, nil
	case !acquired:
		releaseLocal()
		return nil, ErrRunInProgress
	}
	return func() {
		releaseLock()
		releaseLocal()
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, trigger Trigger, runID string) RunResult {
	started := o.now()
	ctx, span := o.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String("sync.run_id", runID),
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()
	if o.runContext != nil {
		ctx = o.runContext(ctx, runID)
	}
	log := o.logger.With(zap.String("run_id", runID))
	if sc := span.SpanContext(); sc.IsValid() {
		log = log.With(zap.String("trace_id", sc.TraceID().String()))
	}

	o.mu.Lock()
	o.current = runID
	o.mu.Unlock()

	result := RunResult{RunID: runID, Trigger: trigger, SyncedAt: started}
	log.Info("Sync run started", zap.String("trigger", string(trigger)))

	err := o.steps(ctx, log, started, &result)
	result.Duration = o.now().Sub(started)
	if err != nil {
		result.Success = false
		result.State = StateFailed
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.transition(ctx, log, StateFailed)
		log.Error("Sync run failed",
			zap.Error(err),
			zap.Int("products_synced", result.ProductsSynced),
			zap.Int("orders_synced", result.OrdersSynced),
			zap.Duration("duration", result.Duration),
		)
	} else {
		result.Success = true
		result.State = StateDone
		o.transition(ctx, log, StateDone)
		log.Info("Sync run finished",
			zap.Int("products_synced", result.ProductsSynced),
			zap.Int("products_failed", result.ProductsFailed),
			zap.Int("orders_synced", result.OrdersSynced),
			zap.Int("orders_failed", result.OrdersFailed),
			zap.Int("multiplier", result.Multiplier),
			zap.Duration("duration", result.Duration),
		)
	}

	span.SetAttributes(
		attribute.Int("sync.products_synced", result.ProductsSynced),
		attribute.Int("sync.products_failed", result.ProductsFailed),
		attribute.Int("sync.orders_synced", result.OrdersSynced),
		attribute.Int("sync.orders_failed", result.OrdersFailed),
		attribute.Int("sync.multiplier", result.Multiplier),
	)

	o.record(result)
	if result.Wrote() && o.invalidator != nil {
		if err := o.invalidator.Invalidate(ctx); err != nil {
			log.Warn("Dashboard cache invalidation failed", zap.Error(err))
		}
	}
	for _, obs := range o.observers {
		obs.ObserveRun(result)
	}
	return result
}

func (o *Orchestrator) steps(ctx context.Context, log *zap.Logger, started time.Time, result *RunResult) error {
	if o.probe != nil {
		if err := o.probe.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	o.transition(ctx, log, StateFetching)
	snapshot, err := o.source.FetchCatalogAndOrders(ctx)
	if err != nil {
		return err
	}
	result.SourceOrders = len(snapshot.Orders)

	o.transition(ctx, log, StateReconciling)
	rec, err := o.reconciler.ReconcileProducts(ctx, snapshot.Products, started)
	result.ProductsSynced = rec.Synced()
	result.ProductsCreated = rec.Created
	result.ProductsUpdated = rec.Updated
	result.ProductsFailed = rec.Failed
	if err != nil {
		return err
	}

	o.transition(ctx, log, StateMaterializing)
	catalog := NewCatalogSnapshot(rec.Written)
	run := RunContext{StartedAt: started, Multiplier: o.cfg.Multiplier.Draw(o.rng)}
	result.Multiplier = run.Multiplier

	for _, src := range snapshot.Orders {
		mres, err := o.materializer.Materialize(ctx, src, catalog, run)
		result.OrdersSynced += len(mres.Orders)
		result.OrdersFailed += len(mres.Errors)
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, log *zap.Logger, next RunState) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()
	trace.SpanFromContext(ctx).AddEvent("sync.state", trace.WithAttributes(attribute.String("sync.state", string(next))))
	log.Info("Sync state changed", zap.String("from", string(prev)), zap.String("to", string(next)))
}

func (o *Orchestrator) record(result RunResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = ""
	o.history = append(o.history, result)
	if over := len(o.history) - o.historySize; over > 0 {
		o.history = append([]RunResult(nil), o.history[over:]...)
	}
}
