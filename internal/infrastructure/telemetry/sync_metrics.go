package telemetry

import (
	"net/http"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

const syncNamespace = "magpie"

// SyncMetrics exports sync run outcomes and feed breaker state as
// Prometheus collectors on a private registry.
type SyncMetrics struct {
	registry        *prometheus.Registry
	runs            *prometheus.CounterVec
	products        *prometheus.CounterVec
	orders          *prometheus.CounterVec
	duration        prometheus.Histogram
	lastSuccess     prometheus.Gauge
	breakerState    *prometheus.GaugeVec
	breakerOpenings prometheus.Counter
}

var _ ingest.RunObserver = (*SyncMetrics)(nil)

// NewSyncMetrics registers the sync collectors, plus the Go runtime and
// process collectors, on a fresh registry.
func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: syncNamespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: syncNamespace,
			Subsystem: "sync",
			Name:      "products_total",
			Help:      "Products processed by sync runs.",
		}, []string{"result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: syncNamespace,
			Subsystem: "sync",
			Name:      "orders_total",
			Help:      "Orders materialized by sync runs.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: syncNamespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: syncNamespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync run.",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: syncNamespace,
			Subsystem: "feed",
			Name:      "breaker_state",
			Help:      "Feed circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),
		breakerOpenings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: syncNamespace,
			Subsystem: "feed",
			Name:      "breaker_openings_total",
			Help:      "Times the feed circuit breaker opened.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.products,
		m.orders,
		m.duration,
		m.lastSuccess,
		m.breakerState,
		m.breakerOpenings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records a finished sync run.
func (m *SyncMetrics) ObserveRun(r ingest.RunResult) {
	outcome := "success"
	if !r.Success {
		outcome = "failure"
	}
	m.runs.WithLabelValues(string(r.Trigger), outcome).Inc()
	m.duration.Observe(r.Duration.Seconds())

	m.products.WithLabelValues("created").Add(float64(r.ProductsCreated))
	m.products.WithLabelValues("updated").Add(float64(r.ProductsUpdated))
	m.products.WithLabelValues("failed").Add(float64(r.ProductsFailed))
	m.orders.WithLabelValues("synced").Add(float64(r.OrdersSynced))
	m.orders.WithLabelValues("failed").Add(float64(r.OrdersFailed))

	if r.Success {
		m.lastSuccess.Set(float64(r.SyncedAt.Unix()))
	}
}

// ObserveBreakerState matches the feed client's breaker state callback.
func (m *SyncMetrics) ObserveBreakerState(name, _, to string) {
	m.breakerState.WithLabelValues(name).Set(breakerStateValue(to))
	if to == gobreaker.StateOpen.String() {
		m.breakerOpenings.Inc()
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func breakerStateValue(state string) float64 {
	switch state {
	case gobreaker.StateHalfOpen.String():
		return 1
	case gobreaker.StateOpen.String():
		return 2
	default:
		return 0
	}
}
