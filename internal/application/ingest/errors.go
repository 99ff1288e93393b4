package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the relational store cannot be reached.
	// It aborts the run.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRunInProgress is returned when a run is requested while another is in flight
	ErrRunInProgress = errors.New("sync run already in progress")
)

// ReconcileError reports a single product that could not be upserted.
// It is counted and logged; the run continues.
type ReconcileError struct {
	ExternalID string
	Err        error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile product %s: %v", e.ExternalID, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// MaterializeError reports one expansion of a source order that was rolled back.
type MaterializeError struct {
	SourceOrderID string
	Expansion     int
	Err           error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize order %s expansion %d: %v", e.SourceOrderID, e.Expansion, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}
