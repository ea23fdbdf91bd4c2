// Package ledger defines the append-only run record that makes re-runs
// resumable. The ledger is the sole source of truth for "did this step
// already complete": entries are appended as steps execute and never
// mutated retroactively, and files are retained after a run for audit.
package ledger

import (
	"errors"
	"time"
)

// Status is the recorded state of a step within a run.
type Status string

const (
	// StatusPending is recorded when a step is about to execute.
	StatusPending Status = "pending"
	// StatusSatisfied means the precondition already held; no action ran.
	StatusSatisfied Status = "satisfied"
	// StatusSucceeded means the action ran and the postcondition holds.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the action errored or the postcondition does
	// not hold.
	StatusFailed Status = "failed"
	// StatusSkipped means the step never ran, either because a
	// dependency failed or because confirmation was withheld.
	StatusSkipped Status = "skipped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Terminal returns true if this status is a final state for a step.
func (s Status) Terminal() bool {
	switch s {
	case StatusSatisfied, StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	case StatusPending:
		return false
	}
	return false
}

// Completed returns true if the step's desired state is known to hold.
func (s Status) Completed() bool {
	return s == StatusSatisfied || s == StatusSucceeded
}

// Entry is one ledger record. One row per (run id, step id, timestamp);
// a step may appear twice in a run (pending, then its terminal status).
type Entry struct {
	RunID     string    `json:"run_id"`
	StepID    string    `json:"step_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	// Output is the captured stdout of the step's action, if any.
	Output string `json:"output,omitempty"`
	// Stderr is the captured stderr of the step's action, if any.
	Stderr string `json:"stderr,omitempty"`
	// Error is the failure description for failed steps.
	Error string `json:"error,omitempty"`
	// BlockedBy names the step whose failure caused a skip.
	BlockedBy string `json:"blocked_by,omitempty"`
	// DurationMs is how long the action took, in milliseconds.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewEntry creates an Entry stamped with the current UTC time.
func NewEntry(runID, stepID string, status Status) Entry {
	return Entry{
		RunID:     runID,
		StepID:    stepID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the entry has all required fields.
func (e Entry) Validate() error {
	if e.RunID == "" {
		return errors.New("entry run ID is required")
	}
	if e.StepID == "" {
		return errors.New("entry step ID is required")
	}
	if e.Status == "" {
		return errors.New("entry status is required")
	}
	if e.Timestamp.IsZero() {
		return errors.New("entry timestamp is required")
	}
	return nil
}
