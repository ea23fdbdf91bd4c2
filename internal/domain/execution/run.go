package execution

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal status of one execution attempt.
type RunStatus string

const (
	// RunComplete means every step ended satisfied or succeeded.
	RunComplete RunStatus = "complete"
	// RunPartial means at least one step failed or was skipped.
	RunPartial RunStatus = "partial"
	// RunAborted means the run stopped before reaching its last step.
	RunAborted RunStatus = "aborted"
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	return string(s)
}

// Run identifies one execution attempt. A rerun is a new Run that
// reads the prior Run's ledger; runs themselves are never reused.
type Run struct {
	id        string
	startedAt time.Time
}

// NewRun creates a Run with a fresh UUID.
func NewRun() Run {
	return Run{
		id:        uuid.NewString(),
		startedAt: time.Now().UTC(),
	}
}

// ID returns the run's unique identifier.
func (r Run) ID() string {
	return r.id
}

// StartedAt returns when the run began.
func (r Run) StartedAt() time.Time {
	return r.startedAt
}

// RunResult is the outcome of executing a plan. Err is non-nil when
// the run aborted because an outcome could not be recorded.
type RunResult struct {
	RunID   string
	Status  RunStatus
	Results []StepResult
	Err     error
}

// Success returns true if every step ended satisfied or succeeded.
func (r RunResult) Success() bool {
	if r.Err != nil || r.Status != RunComplete {
		return false
	}
	for i := range r.Results {
		if !r.Results[i].Completed() {
			return false
		}
	}
	return true
}
