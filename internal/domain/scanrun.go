package domain

import (
	"fmt"
	"time"
)

// RunState is the lifecycle state of a ScanRun.
type RunState string

const (
	RunDraft     RunState = "draft"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s RunState) Terminal() bool { return s == RunCompleted || s == RunFailed }

// ScanRun is one execution of the pipeline.
type ScanRun struct {
	ID                string      `json:"id"`
	State             RunState    `json:"state"`
	CreatedAt         time.Time   `json:"created_at"`
	StartedAt         time.Time   `json:"started_at,omitzero"`
	FinishedAt        time.Time   `json:"finished_at,omitzero"`
	Duration          float64     `json:"duration_seconds"`
	InputPath         string      `json:"input_path"`
	ModuleFilter      []string    `json:"module_filter,omitempty"`
	IncludeRegistry   bool        `json:"include_registry,omitempty"`
	CommitHash        string      `json:"commit_hash,omitempty"`
	Branch            string      `json:"branch,omitempty"`
	HealthScore       int         `json:"health_score"`
	HealthStatus      string      `json:"health_status,omitempty"`
	Statistics        *Statistics `json:"statistics,omitempty"`
	CriticalCount     int         `json:"critical_count"`
	WarningCount      int         `json:"warning_count"`
	InfoCount         int         `json:"info_count"`
	FindingsNew       int         `json:"findings_new"`
	FindingsRecurring int         `json:"findings_recurring"`
	Error             string      `json:"error,omitempty"`
}

// NewScanRun creates a run in draft.
func NewScanRun(id, inputPath string, modules []string, includeRegistry bool, now time.Time) *ScanRun {
	return &ScanRun{
		ID:              id,
		State:           RunDraft,
		CreatedAt:       now,
		InputPath:       inputPath,
		ModuleFilter:    modules,
		IncludeRegistry: includeRegistry,
	}
}

// Start moves the run to running. Only draft and failed runs may start.
func (r *ScanRun) Start(now time.Time) error {
	if r.State != RunDraft && r.State != RunFailed {
		return fmt.Errorf("%w: cannot start run in state %s", ErrInvalidTransition, r.State)
	}
	r.State = RunRunning
	r.StartedAt = now
	r.Error = ""
	return nil
}

// Complete records a successful run.
func (r *ScanRun) Complete(report *Report, now time.Time) error {
	if r.State != RunRunning {
		return fmt.Errorf("%w: cannot complete run in state %s", ErrInvalidTransition, r.State)
	}
	r.State = RunCompleted
	r.FinishedAt = now
	r.Duration = now.Sub(r.StartedAt).Seconds()
	r.HealthScore = report.HealthScore
	r.HealthStatus = report.HealthStatus
	stats := report.Statistics
	r.Statistics = &stats
	r.CriticalCount = len(report.CriticalIssues)
	r.WarningCount = len(report.Warnings)
	return nil
}

// Fail records an unrecoverable error. Failing a terminal run is a no-op error.
func (r *ScanRun) Fail(cause error, now time.Time) error {
	if r.State.Terminal() {
		return fmt.Errorf("%w: cannot fail run in state %s", ErrInvalidTransition, r.State)
	}
	r.State = RunFailed
	r.FinishedAt = now
	if !r.StartedAt.IsZero() {
		r.Duration = now.Sub(r.StartedAt).Seconds()
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	return nil
}

// Stale reports whether a non-terminal run has outlived maxAge.
func (r *ScanRun) Stale(now time.Time, maxAge time.Duration) bool {
	if r.State.Terminal() || maxAge <= 0 {
		return false
	}
	ref := r.StartedAt
	if ref.IsZero() {
		ref = r.CreatedAt
	}
	return now.Sub(ref) > maxAge
}
