package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingExporter keeps exported log bodies in memory.
type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestLoggerProvider_BridgeTeesEntries(t *testing.T) {
	exporter := &recordingExporter{}
	lp := NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(exporter), zap.NewNop())

	core, logs := observer.New(zapcore.DebugLevel)
	log := lp.Bridge(zap.New(core), "magpie-backend", zapcore.InfoLevel)

	log.Debug("below threshold")
	log.Info("Sync run started")
	log.Warn("Run lock unavailable")

	assert.Equal(t, 3, logs.Len(), "local output keeps every entry")
	assert.Equal(t, []string{"Sync run started", "Run lock unavailable"}, exporter.Bodies())
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_DisabledReturnsBase(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)

	base := zap.NewNop()
	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base, "magpie-backend", zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}
