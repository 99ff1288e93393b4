package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/infrastructure/scheduler"
)

// SyncController is the orchestrator surface the sync endpoints need
type SyncController interface {
	Start(ctx context.Context, trigger ingest.Trigger) (string, <-chan ingest.RunResult, error)
	State() ingest.RunState
	Running() (string, bool)
	History() []ingest.RunResult
	LastResult() (ingest.RunResult, bool)
}

// TriggerStatusProvider reports scheduler state; nil when scheduling is disabled
type TriggerStatusProvider interface {
	Status() scheduler.TriggerStatus
}

// StartRunResponse acknowledges an accepted manual run
type StartRunResponse struct {
	RunID   string         `json:"runId"`
	Trigger ingest.Trigger `json:"trigger"`
}

// SyncStatusResponse combines orchestrator and scheduler state
type SyncStatusResponse struct {
	State        ingest.RunState          `json:"state"`
	Running      bool                     `json:"running"`
	CurrentRunID string                   `json:"currentRunId,omitempty"`
	LastRun      *ingest.RunResult        `json:"lastRun,omitempty"`
	Scheduler    *scheduler.TriggerStatus `json:"scheduler,omitempty"`
}

// SyncHandler exposes manual triggering and run history
type SyncHandler struct {
	BaseHandler
	sync    SyncController
	trigger TriggerStatusProvider
}

// NewSyncHandler creates a new sync handler. trigger may be nil.
func NewSyncHandler(sync SyncController, trigger TriggerStatusProvider) *SyncHandler {
	return &SyncHandler{sync: sync, trigger: trigger}
}

// StartRun triggers a run now and answers 202, or 409 when one is in flight.
// POST /api/v1/sync/runs
func (h *SyncHandler) StartRun(c *gin.Context) {
	runID, _, err := h.sync.Start(c.Request.Context(), ingest.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, StartRunResponse{RunID: runID, Trigger: ingest.TriggerManual})
}

// ListRuns GET /api/v1/sync/runs
func (h *SyncHandler) ListRuns(c *gin.Context) {
	h.Success(c, h.sync.History())
}

// GetStatus GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	currentID, running := h.sync.Running()
	resp := SyncStatusResponse{
		State:        h.sync.State(),
		Running:      running,
		CurrentRunID: currentID,
	}
	if last, ok := h.sync.LastResult(); ok {
		resp.LastRun = &last
	}
	if h.trigger != nil {
		status := h.trigger.Status()
		resp.Scheduler = &status
	}
	h.Success(c, resp)
}
