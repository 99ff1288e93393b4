package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := renderSummary(&buf, ingest.RunResult{
		RunID:          "run-42",
		Success:        true,
		State:          ingest.StateDone,
		ProductsSynced: 1250,
		OrdersSynced:   3,
		Multiplier:     3,
		SyncedAt:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "1,250")
	assert.Contains(t, out, "2026-03-10T12:00:00Z")
	assert.Contains(t, out, "1.5s")
	assert.NotContains(t, out, "Error")
}

func TestRenderSummary_Failure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderSummary(&buf, ingest.RunResult{
		RunID: "run-43",
		State: ingest.StateFailed,
		Error: "failed to fetch data: products 503, orders 200",
	}))

	out := buf.String()
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "products 503")
	assert.NotContains(t, out, "Synced at")
}
