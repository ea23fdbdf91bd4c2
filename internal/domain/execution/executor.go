package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// DefaultStepTimeout bounds a single action. Package-manager operations
// are slow, so the default is generous.
const DefaultStepTimeout = 10 * time.Minute

// OutputTap drains command output captured while a step's action ran,
// so the ledger can record raw text for audit.
type OutputTap interface {
	Drain() (stdout, stderr string)
}

// Executor runs a Plan sequentially. Steps mutate shared, order
// sensitive machine state (firewall, sshd config, package database),
// so no parallelism is permitted even between logically independent
// steps.
type Executor struct {
	dryRun     bool
	timeout    time.Duration
	confirmAll bool
	confirmed  map[string]bool
	repo       ledger.Repository
	prior      *ledger.Ledger
	tap        OutputTap
}

// NewExecutor creates an Executor with the default step timeout.
func NewExecutor() *Executor {
	return &Executor{
		timeout:   DefaultStepTimeout,
		confirmed: make(map[string]bool),
	}
}

func (e *Executor) clone() *Executor {
	confirmed := make(map[string]bool, len(e.confirmed))
	for k, v := range e.confirmed {
		confirmed[k] = v
	}
	return &Executor{
		dryRun:     e.dryRun,
		timeout:    e.timeout,
		confirmAll: e.confirmAll,
		confirmed:  confirmed,
		repo:       e.repo,
		prior:      e.prior,
		tap:        e.tap,
	}
}

// WithDryRun returns an Executor that simulates execution: no action
// runs, no ledger entry is written, and the postcondition is assumed
// to be the precondition's negation.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	c := e.clone()
	c.dryRun = dryRun
	return c
}

// WithTimeout returns an Executor with the given per-action timeout.
func (e *Executor) WithTimeout(timeout time.Duration) *Executor {
	c := e.clone()
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithConfirmed returns an Executor that treats the given step IDs as
// explicitly confirmed by the operator.
func (e *Executor) WithConfirmed(stepIDs ...string) *Executor {
	c := e.clone()
	for _, id := range stepIDs {
		c.confirmed[id] = true
	}
	return c
}

// WithConfirmAll returns an Executor with the blanket confirmation
// flag set. The fallback-access gate still applies.
func (e *Executor) WithConfirmAll(confirm bool) *Executor {
	c := e.clone()
	c.confirmAll = confirm
	return c
}

// WithLedger returns an Executor that appends entries to repo and uses
// prior history for the fallback-access gate.
func (e *Executor) WithLedger(repo ledger.Repository, prior *ledger.Ledger) *Executor {
	c := e.clone()
	c.repo = repo
	c.prior = prior
	return c
}

// WithOutputTap returns an Executor that records captured command
// output into ledger entries.
func (e *Executor) WithOutputTap(tap OutputTap) *Executor {
	c := e.clone()
	c.tap = tap
	return c
}

// Execute runs all plan entries in order and returns the run outcome.
// A failed step never aborts the run: independent steps still execute,
// and transitive dependents are skipped with the blocking step named.
// A failed ledger write does abort: a mutation whose record is lost
// would poison the next run's trust-ledger seeding, so the run stops
// rather than continuing unrecorded.
func (e *Executor) Execute(ctx context.Context, plan *Plan) RunResult {
	run := NewRun()
	results := make([]StepResult, 0, plan.Len())

	// Latest terminal state per step within this run.
	terminal := make(map[string]ledger.Status, plan.Len())
	blockers := make(map[string]string, plan.Len())

	fallbackOK := e.prior != nil && e.prior.HasSucceeded(runbook.FallbackStepID.String())
	aborted := false
	var runErr error

	for _, entry := range plan.Entries() {
		// The shared resource is the remote machine: stop cleanly
		// between steps on cancellation, never mid-mutation.
		if ctx.Err() != nil {
			aborted = true
			break
		}

		result, err := e.executeEntry(ctx, run, entry, terminal, blockers, fallbackOK)
		results = append(results, result)
		if err != nil {
			aborted = true
			runErr = err
			break
		}

		id := entry.Step().ID().String()
		terminal[id] = result.Status()
		if !result.Status().Completed() {
			if result.BlockedBy() != "" {
				blockers[id] = result.BlockedBy()
			} else {
				blockers[id] = id
			}
		}

		if id == runbook.FallbackStepID.String() && result.Completed() {
			fallbackOK = true
		}
	}

	status := RunComplete
	if aborted {
		status = RunAborted
	} else {
		for i := range results {
			if !results[i].Completed() {
				status = RunPartial
				break
			}
		}
	}

	return RunResult{RunID: run.ID(), Status: status, Results: results, Err: runErr}
}

// executeEntry executes a single plan entry. A non-nil error means the
// ledger could not record the outcome and the run must stop.
func (e *Executor) executeEntry(ctx context.Context, run Run, entry PlanEntry, terminal map[string]ledger.Status, blockers map[string]string, fallbackOK bool) (StepResult, error) {
	step := entry.Step()
	stepID := step.ID()
	id := stepID.String()

	// A dependency that did not complete blocks this step, transitively.
	for _, depID := range step.DependsOn() {
		dep := depID.String()
		if status, ok := terminal[dep]; ok && !status.Completed() {
			root := blockers[dep]
			if root == "" {
				root = dep
			}
			result := NewStepResult(stepID, ledger.StatusSkipped, nil).WithBlockedBy(root)
			return result, e.record(ctx, run, result, "", "")
		}
	}

	// An ambiguous probe is a reported failure, never a green light to
	// re-run a possibly destructive action.
	if entry.Probe() == runbook.ProbeUnknown {
		result := NewStepResult(stepID, ledger.StatusFailed, entry.ProbeErr()).
			WithFailure(FailureProbe)
		return result, e.record(ctx, run, result, "", "")
	}

	if entry.Probe() == runbook.ProbeSatisfied {
		result := NewStepResult(stepID, ledger.StatusSatisfied, nil)
		return result, e.record(ctx, run, result, "", "")
	}

	// Connectivity-risk gate: a verified fallback path and explicit
	// operator consent, in that order.
	if step.Risk() == runbook.RiskConnectivity {
		if !fallbackOK {
			err := runbook.NewConfirmationRequiredError(id,
				"connectivity-risk step blocked: fallback access has not been verified")
			result := NewStepResult(stepID, ledger.StatusSkipped, err).WithBlockedBy(id)
			return result, e.record(ctx, run, result, "", "")
		}
		if !e.confirmAll && !e.confirmed[id] {
			err := runbook.NewConfirmationRequiredError(id,
				"connectivity-risk step blocked: explicit confirmation required")
			result := NewStepResult(stepID, ledger.StatusSkipped, err).WithBlockedBy(id)
			return result, e.record(ctx, run, result, "", "")
		}
	}

	if e.dryRun {
		return NewStepResult(stepID, ledger.StatusSucceeded, nil).WithSimulated(true), nil
	}

	// The pending record lands before the mutation: if the ledger is
	// already unwritable the action must not run at all.
	if err := e.record(ctx, run, NewStepResult(stepID, ledger.StatusPending, nil), "", ""); err != nil {
		return NewStepResult(stepID, ledger.StatusSkipped, err), err
	}
	if e.tap != nil {
		e.tap.Drain() // discard output captured by earlier probes
	}

	result := e.apply(ctx, step)

	var stdout, stderr string
	if e.tap != nil {
		stdout, stderr = e.tap.Drain()
	}
	return result, e.record(ctx, run, result, stdout, stderr)
}

// apply runs the step's mutation under the bounded timeout and
// classifies the outcome from the postcondition probe, not the exit
// status.
func (e *Executor) apply(ctx context.Context, step runbook.Step) StepResult {
	stepID := step.ID()
	base := ctx
	if step.Risk() == runbook.RiskConnectivity {
		// A half-applied sshd or netplan change is exactly the lockout
		// this tool exists to prevent: finish or fully fail the step,
		// then stop before the next one.
		base = context.WithoutCancel(ctx)
	}

	applyCtx, cancel := context.WithTimeout(base, e.timeout)
	defer cancel()
	runCtx := runbook.NewRunContext(applyCtx)

	start := time.Now()
	err := step.Apply(runCtx)
	duration := time.Since(start)

	if err != nil {
		return NewStepResult(stepID, ledger.StatusFailed, runbook.NewActionError(stepID.String(), err)).
			WithFailure(FailureUnknown).
			WithDuration(duration)
	}

	verified, verifyErr := step.Verify(runCtx)
	switch {
	case verifyErr != nil:
		return NewStepResult(stepID, ledger.StatusFailed, runbook.NewVerifyError(stepID.String(), verifyErr)).
			WithFailure(FailureUnknown).
			WithDuration(duration)
	case verified == runbook.ProbeSatisfied:
		return NewStepResult(stepID, ledger.StatusSucceeded, nil).WithDuration(duration)
	case verified == runbook.ProbeUnsatisfied:
		err := runbook.NewVerifyError(stepID.String(),
			fmt.Errorf("postcondition unsatisfied after action completed"))
		return NewStepResult(stepID, ledger.StatusFailed, err).
			WithFailure(FailureVerified).
			WithDuration(duration)
	default:
		err := runbook.NewVerifyError(stepID.String(),
			fmt.Errorf("postcondition could not be observed"))
		return NewStepResult(stepID, ledger.StatusFailed, err).
			WithFailure(FailureUnknown).
			WithDuration(duration)
	}
}

// record appends a ledger entry for the result. Dry runs write nothing.
// An append failure is fatal to the run: the ledger is what the next
// run trusts, and an unrecorded outcome would corrupt that trust.
func (e *Executor) record(ctx context.Context, run Run, result StepResult, stdout, stderr string) error {
	if e.repo == nil || e.dryRun || result.Simulated() {
		return nil
	}

	entry := ledger.NewEntry(run.ID(), result.StepID().String(), result.Status())
	entry.Output = stdout
	entry.Stderr = stderr
	entry.BlockedBy = result.BlockedBy()
	entry.DurationMs = result.Duration().Milliseconds()
	if result.Error() != nil {
		entry.Error = result.Error().Error()
	}

	if err := e.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s for step %s: %w", entry.Status, entry.StepID, err)
	}
	return nil
}
