// Package execution handles step orchestration and runtime execution.
package execution

import (
	"time"

	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// FailureKind classifies how a failed step failed.
type FailureKind string

const (
	// FailureNone means the step did not fail.
	FailureNone FailureKind = ""
	// FailureProbe means the precondition probe was ambiguous and the
	// step was not attempted.
	FailureProbe FailureKind = "probe-ambiguous"
	// FailureVerified means the action completed but the postcondition
	// observably does not hold.
	FailureVerified FailureKind = "failed-verified"
	// FailureUnknown means the action errored or the postcondition
	// could not be observed; machine state is unclear.
	FailureUnknown FailureKind = "failed-unknown"
)

// StepResult captures the outcome of executing a single step.
type StepResult struct {
	stepID    runbook.StepID
	status    ledger.Status
	failure   FailureKind
	err       error
	blockedBy string
	duration  time.Duration
	simulated bool
}

// NewStepResult creates a new StepResult.
func NewStepResult(stepID runbook.StepID, status ledger.Status, err error) StepResult {
	return StepResult{stepID: stepID, status: status, err: err}
}

// StepID returns the ID of the step that was executed.
func (r StepResult) StepID() runbook.StepID {
	return r.stepID
}

// Status returns the final status of the step.
func (r StepResult) Status() ledger.Status {
	return r.status
}

// Failure returns the failure classification for failed steps.
func (r StepResult) Failure() FailureKind {
	return r.failure
}

// Error returns any error that occurred during execution.
func (r StepResult) Error() error {
	return r.err
}

// BlockedBy names the step whose failure caused a skip, if any.
func (r StepResult) BlockedBy() string {
	return r.blockedBy
}

// Duration returns how long the step's action took.
func (r StepResult) Duration() time.Duration {
	return r.duration
}

// Simulated returns true for dry-run results.
func (r StepResult) Simulated() bool {
	return r.simulated
}

// Completed returns true if the step's desired state is known to hold.
func (r StepResult) Completed() bool {
	return r.status.Completed()
}

// Skipped returns true if the step was skipped.
func (r StepResult) Skipped() bool {
	return r.status == ledger.StatusSkipped
}

// WithFailure returns a new StepResult with failure kind set.
func (r StepResult) WithFailure(kind FailureKind) StepResult {
	r.failure = kind
	return r
}

// WithBlockedBy returns a new StepResult with the blocking step set.
func (r StepResult) WithBlockedBy(stepID string) StepResult {
	r.blockedBy = stepID
	return r
}

// WithDuration returns a new StepResult with duration set.
func (r StepResult) WithDuration(d time.Duration) StepResult {
	r.duration = d
	return r
}

// WithSimulated returns a new StepResult marked as a dry-run outcome.
func (r StepResult) WithSimulated(simulated bool) StepResult {
	r.simulated = simulated
	return r
}
