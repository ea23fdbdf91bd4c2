package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// fakeStep is a scriptable runbook.Step for executor tests.
type fakeStep struct {
	id       runbook.StepID
	deps     []runbook.StepID
	risk     runbook.RiskClass
	applied  int
	probeFn  func() (runbook.ProbeStatus, error)
	applyFn  func() error
	verifyFn func() (runbook.ProbeStatus, error)
}

func newFakeStep(id string, deps ...string) *fakeStep {
	depIDs := make([]runbook.StepID, len(deps))
	for i, d := range deps {
		depIDs[i] = runbook.MustNewStepID(d)
	}
	return &fakeStep{
		id:       runbook.MustNewStepID(id),
		deps:     depIDs,
		risk:     runbook.RiskSafe,
		probeFn:  func() (runbook.ProbeStatus, error) { return runbook.ProbeUnsatisfied, nil },
		applyFn:  func() error { return nil },
		verifyFn: func() (runbook.ProbeStatus, error) { return runbook.ProbeSatisfied, nil },
	}
}

func (s *fakeStep) ID() runbook.StepID          { return s.id }
func (s *fakeStep) DependsOn() []runbook.StepID { return s.deps }
func (s *fakeStep) Risk() runbook.RiskClass     { return s.risk }
func (s *fakeStep) Probe(runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeFn()
}
func (s *fakeStep) Apply(runbook.RunContext) error {
	s.applied++
	return s.applyFn()
}
func (s *fakeStep) Verify(runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.verifyFn()
}
func (s *fakeStep) Explain() runbook.Explanation {
	return runbook.NewExplanation("fake", "for tests")
}

// memRepo is an in-memory ledger.Repository.
type memRepo struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (r *memRepo) Append(_ context.Context, entry ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memRepo) Entries(_ context.Context) ([]ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func planOf(entries ...PlanEntry) *Plan {
	plan := NewPlan()
	for _, e := range entries {
		plan.Add(e)
	}
	return plan
}

func resultFor(t *testing.T, result RunResult, id string) StepResult {
	t.Helper()
	for _, r := range result.Results {
		if r.StepID().String() == id {
			return r
		}
	}
	t.Fatalf("no result for step %q", id)
	return StepResult{}
}

func TestExecutor_FreshMachine_AppliesEverything(t *testing.T) {
	a := newFakeStep("apt:update")
	b := newFakeStep("apt:package:ufw", "apt:update")
	repo := &memRepo{}

	result := NewExecutor().
		WithLedger(repo, ledger.NewLedger(nil)).
		Execute(context.Background(), planOf(
			NewPlanEntry(a, runbook.ProbeUnsatisfied),
			NewPlanEntry(b, runbook.ProbeUnsatisfied),
		))

	if result.Status != RunComplete {
		t.Fatalf("Status = %q, want complete", result.Status)
	}
	if a.applied != 1 || b.applied != 1 {
		t.Errorf("applied counts = %d, %d; want 1, 1", a.applied, b.applied)
	}
	if !result.Success() {
		t.Error("Success() should be true")
	}
}

func TestExecutor_SatisfiedStep_NeverApplies(t *testing.T) {
	a := newFakeStep("apt:update")

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(a, runbook.ProbeSatisfied),
	))

	if a.applied != 0 {
		t.Errorf("applied = %d, want 0 for a satisfied step", a.applied)
	}
	if got := resultFor(t, result, "apt:update").Status(); got != ledger.StatusSatisfied {
		t.Errorf("Status = %q, want satisfied", got)
	}
}

func TestExecutor_FailureBlocksDependents_NotIndependents(t *testing.T) {
	a := newFakeStep("commands:a")
	a.verifyFn = func() (runbook.ProbeStatus, error) { return runbook.ProbeUnsatisfied, nil }
	b := newFakeStep("commands:b", "commands:a")
	c := newFakeStep("commands:c", "commands:b")
	d := newFakeStep("commands:d")

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(a, runbook.ProbeUnsatisfied),
		NewPlanEntry(b, runbook.ProbeUnsatisfied),
		NewPlanEntry(c, runbook.ProbeUnsatisfied),
		NewPlanEntry(d, runbook.ProbeUnsatisfied),
	))

	if result.Status != RunPartial {
		t.Fatalf("Status = %q, want partial", result.Status)
	}

	ra := resultFor(t, result, "commands:a")
	if ra.Status() != ledger.StatusFailed || ra.Failure() != FailureVerified {
		t.Errorf("a: status %q failure %q, want failed/failed-verified", ra.Status(), ra.Failure())
	}

	rb := resultFor(t, result, "commands:b")
	if rb.Status() != ledger.StatusSkipped || rb.BlockedBy() != "commands:a" {
		t.Errorf("b: status %q blockedBy %q, want skipped/commands:a", rb.Status(), rb.BlockedBy())
	}

	// Transitive skip names the root cause, not the intermediate skip.
	rc := resultFor(t, result, "commands:c")
	if rc.BlockedBy() != "commands:a" {
		t.Errorf("c blockedBy = %q, want commands:a", rc.BlockedBy())
	}
	if b.applied != 0 || c.applied != 0 {
		t.Error("blocked steps must not apply")
	}

	rd := resultFor(t, result, "commands:d")
	if rd.Status() != ledger.StatusSucceeded {
		t.Errorf("independent step d = %q, want succeeded", rd.Status())
	}
}

func TestExecutor_ProbeUnknown_IsFailureNotApply(t *testing.T) {
	a := newFakeStep("apt:update")
	entry := NewPlanEntry(a, runbook.ProbeUnknown).
		withProbeErr(runbook.NewProbeError("apt:update", fmt.Errorf("probe broke")))

	result := NewExecutor().Execute(context.Background(), planOf(entry))

	ra := resultFor(t, result, "apt:update")
	if ra.Status() != ledger.StatusFailed || ra.Failure() != FailureProbe {
		t.Errorf("status %q failure %q, want failed/probe-ambiguous", ra.Status(), ra.Failure())
	}
	if a.applied != 0 {
		t.Error("unknown probe must never trigger the action")
	}
}

func TestExecutor_ActionError_FailedUnknown(t *testing.T) {
	a := newFakeStep("commands:a")
	a.applyFn = func() error { return errors.New("boom") }

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(a, runbook.ProbeUnsatisfied),
	))

	ra := resultFor(t, result, "commands:a")
	if ra.Status() != ledger.StatusFailed || ra.Failure() != FailureUnknown {
		t.Errorf("status %q failure %q, want failed/failed-unknown", ra.Status(), ra.Failure())
	}
}

func TestExecutor_VerifyDecides_NotExitStatus(t *testing.T) {
	// Apply "succeeds" but the postcondition is observed absent.
	a := newFakeStep("commands:a")
	a.verifyFn = func() (runbook.ProbeStatus, error) { return runbook.ProbeUnknown, nil }

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(a, runbook.ProbeUnsatisfied),
	))

	ra := resultFor(t, result, "commands:a")
	if ra.Status() != ledger.StatusFailed || ra.Failure() != FailureUnknown {
		t.Errorf("status %q failure %q, want failed/failed-unknown", ra.Status(), ra.Failure())
	}
}

func TestExecutor_ConnectivityGate_RequiresFallback(t *testing.T) {
	risky := newFakeStep("sshd:harden")
	risky.risk = runbook.RiskConnectivity

	result := NewExecutor().
		WithConfirmAll(true).
		Execute(context.Background(), planOf(
			NewPlanEntry(risky, runbook.ProbeUnsatisfied),
		))

	r := resultFor(t, result, "sshd:harden")
	if r.Status() != ledger.StatusSkipped {
		t.Errorf("status = %q, want skipped without verified fallback", r.Status())
	}
	if risky.applied != 0 {
		t.Error("gated step must not apply")
	}
}

func TestExecutor_ConnectivityGate_RequiresConfirmation(t *testing.T) {
	fallback := newFakeStep("access:verify-fallback")
	risky := newFakeStep("sshd:harden", "access:verify-fallback")
	risky.risk = runbook.RiskConnectivity

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(fallback, runbook.ProbeUnsatisfied),
		NewPlanEntry(risky, runbook.ProbeUnsatisfied),
	))

	r := resultFor(t, result, "sshd:harden")
	if r.Status() != ledger.StatusSkipped {
		t.Errorf("status = %q, want skipped without confirmation", r.Status())
	}

	var stepErr *runbook.StepError
	if !errors.As(r.Error(), &stepErr) || stepErr.Code != runbook.ErrCodeConfirmationRequired {
		t.Errorf("error = %v, want CONFIRMATION_REQUIRED", r.Error())
	}
}

func TestExecutor_ConnectivityGate_OpensAfterInRunFallback(t *testing.T) {
	fallback := newFakeStep("access:verify-fallback")
	risky := newFakeStep("sshd:harden", "access:verify-fallback")
	risky.risk = runbook.RiskConnectivity

	result := NewExecutor().
		WithConfirmed("sshd:harden").
		Execute(context.Background(), planOf(
			NewPlanEntry(fallback, runbook.ProbeUnsatisfied),
			NewPlanEntry(risky, runbook.ProbeUnsatisfied),
		))

	r := resultFor(t, result, "sshd:harden")
	if r.Status() != ledger.StatusSucceeded {
		t.Errorf("status = %q, want succeeded once fallback passed in-run", r.Status())
	}
	if risky.applied != 1 {
		t.Errorf("applied = %d, want 1", risky.applied)
	}
}

func TestExecutor_ConnectivityGate_TrustsPriorLedger(t *testing.T) {
	risky := newFakeStep("sshd:harden")
	risky.risk = runbook.RiskConnectivity

	prior := ledger.NewLedger([]ledger.Entry{
		ledger.NewEntry("run-0", "access:verify-fallback", ledger.StatusSucceeded),
	})

	result := NewExecutor().
		WithLedger(&memRepo{}, prior).
		WithConfirmed("sshd:harden").
		Execute(context.Background(), planOf(
			NewPlanEntry(risky, runbook.ProbeUnsatisfied),
		))

	r := resultFor(t, result, "sshd:harden")
	if r.Status() != ledger.StatusSucceeded {
		t.Errorf("status = %q, want succeeded with ledger-recorded fallback", r.Status())
	}
}

func TestExecutor_DryRun_NoActionsNoLedger(t *testing.T) {
	a := newFakeStep("apt:update")
	repo := &memRepo{}

	result := NewExecutor().
		WithDryRun(true).
		WithLedger(repo, ledger.NewLedger(nil)).
		Execute(context.Background(), planOf(
			NewPlanEntry(a, runbook.ProbeUnsatisfied),
		))

	if a.applied != 0 {
		t.Error("dry run must not apply")
	}
	if len(repo.entries) != 0 {
		t.Errorf("dry run wrote %d ledger entries, want 0", len(repo.entries))
	}
	if r := resultFor(t, result, "apt:update"); !r.Simulated() {
		t.Error("dry-run result should be marked simulated")
	}
}

func TestExecutor_SecondRun_IsIdempotent(t *testing.T) {
	// Same step, now satisfied: nothing applies, outcome stays complete.
	a := newFakeStep("apt:update")

	result := NewExecutor().Execute(context.Background(), planOf(
		NewPlanEntry(a, runbook.ProbeSatisfied),
	))

	if result.Status != RunComplete || a.applied != 0 {
		t.Errorf("second run: status %q applied %d, want complete/0", result.Status, a.applied)
	}
}

func TestExecutor_ContextCancel_AbortsBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := newFakeStep("commands:a")
	a.applyFn = func() error {
		cancel() // cancel while the first step runs
		return nil
	}
	b := newFakeStep("commands:b")

	result := NewExecutor().Execute(ctx, planOf(
		NewPlanEntry(a, runbook.ProbeUnsatisfied),
		NewPlanEntry(b, runbook.ProbeUnsatisfied),
	))

	if result.Status != RunAborted {
		t.Fatalf("Status = %q, want aborted", result.Status)
	}
	if len(result.Results) != 1 {
		t.Errorf("results = %d, want 1 (run stopped before step b)", len(result.Results))
	}
	if b.applied != 0 {
		t.Error("step after cancellation must not run")
	}
}

func TestExecutor_RecordsPendingThenTerminal(t *testing.T) {
	a := newFakeStep("commands:a")
	repo := &memRepo{}

	NewExecutor().
		WithLedger(repo, ledger.NewLedger(nil)).
		Execute(context.Background(), planOf(
			NewPlanEntry(a, runbook.ProbeUnsatisfied),
		))

	if len(repo.entries) != 2 {
		t.Fatalf("ledger entries = %d, want pending + terminal", len(repo.entries))
	}
	if repo.entries[0].Status != ledger.StatusPending {
		t.Errorf("first entry = %q, want pending", repo.entries[0].Status)
	}
	if repo.entries[1].Status != ledger.StatusSucceeded {
		t.Errorf("second entry = %q, want succeeded", repo.entries[1].Status)
	}
	if repo.entries[0].RunID != repo.entries[1].RunID {
		t.Error("entries should share one run ID")
	}
}

// failRepo rejects appends after the first n succeed.
type failRepo struct {
	memRepo
	failAfter int
}

func (r *failRepo) Append(ctx context.Context, entry ledger.Entry) error {
	r.mu.Lock()
	appended := len(r.entries)
	r.mu.Unlock()
	if appended >= r.failAfter {
		return errors.New("disk full")
	}
	return r.memRepo.Append(ctx, entry)
}

func TestExecutor_UnwritableLedger_AbortsBeforeAction(t *testing.T) {
	a := newFakeStep("apt:update")
	b := newFakeStep("apt:package:ufw", "apt:update")
	repo := &failRepo{failAfter: 0}

	result := NewExecutor().
		WithLedger(repo, ledger.NewLedger(nil)).
		Execute(context.Background(), planOf(
			NewPlanEntry(a, runbook.ProbeUnsatisfied),
			NewPlanEntry(b, runbook.ProbeUnsatisfied),
		))

	if result.Status != RunAborted {
		t.Fatalf("Status = %q, want aborted when the ledger cannot be written", result.Status)
	}
	if result.Err == nil {
		t.Fatal("Err should carry the ledger failure")
	}
	if result.Success() {
		t.Error("Success() must be false when the run aborted")
	}
	// The pending record failed, so the mutation never ran.
	if a.applied != 0 || b.applied != 0 {
		t.Errorf("applied counts = %d, %d; want 0, 0", a.applied, b.applied)
	}
	if len(result.Results) != 1 {
		t.Errorf("results = %d, want 1 (run stopped at the first step)", len(result.Results))
	}
}

func TestExecutor_LedgerAppendFailure_AbortsRun(t *testing.T) {
	// Pending lands, the action runs, then the terminal record fails.
	a := newFakeStep("apt:update")
	b := newFakeStep("apt:package:ufw", "apt:update")
	repo := &failRepo{failAfter: 1}

	result := NewExecutor().
		WithLedger(repo, ledger.NewLedger(nil)).
		Execute(context.Background(), planOf(
			NewPlanEntry(a, runbook.ProbeUnsatisfied),
			NewPlanEntry(b, runbook.ProbeUnsatisfied),
		))

	if result.Status != RunAborted {
		t.Fatalf("Status = %q, want aborted", result.Status)
	}
	if result.Err == nil || !strings.Contains(result.Err.Error(), "disk full") {
		t.Errorf("Err = %v, want the append failure surfaced", result.Err)
	}
	if a.applied != 1 {
		t.Errorf("a applied = %d, want 1 (action ran before the record failed)", a.applied)
	}
	if b.applied != 0 {
		t.Error("steps after the failed record must not run")
	}
	if len(repo.entries) != 1 || repo.entries[0].Status != ledger.StatusPending {
		t.Errorf("ledger = %v, want only the pending entry", repo.entries)
	}
}
