package execution

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// PlanEntry is a single step's planned execution: the step, what the
// state prober observed, and whether that observation was seeded from
// a prior run's ledger instead of a live probe.
type PlanEntry struct {
	step     runbook.Step
	probe    runbook.ProbeStatus
	seeded   bool
	probeErr error
}

// NewPlanEntry creates a new PlanEntry.
func NewPlanEntry(step runbook.Step, probe runbook.ProbeStatus) PlanEntry {
	return PlanEntry{step: step, probe: probe}
}

// Step returns the step to be executed.
func (e PlanEntry) Step() runbook.Step {
	return e.step
}

// Probe returns the observed precondition status.
func (e PlanEntry) Probe() runbook.ProbeStatus {
	return e.probe
}

// Seeded returns true if the status came from the ledger, not a probe.
func (e PlanEntry) Seeded() bool {
	return e.seeded
}

// ProbeErr returns the probe failure when Probe() is unknown.
func (e PlanEntry) ProbeErr() error {
	return e.probeErr
}

// withSeeded marks the entry as ledger-seeded.
func (e PlanEntry) withSeeded() PlanEntry {
	e.seeded = true
	return e
}

// withProbeErr attaches the probe failure.
func (e PlanEntry) withProbeErr(err error) PlanEntry {
	e.probeErr = err
	return e
}

// PlanSummary provides aggregate statistics about the execution plan.
type PlanSummary struct {
	Total     int
	ToApply   int
	Satisfied int
	Unknown   int
}

// Plan is the ordered execution plan for a run. Entry order is the
// graph's deterministic topological order.
type Plan struct {
	entries []PlanEntry
}

// NewPlan creates an empty Plan.
func NewPlan() *Plan {
	return &Plan{entries: make([]PlanEntry, 0)}
}

// Add appends a plan entry.
func (p *Plan) Add(entry PlanEntry) {
	p.entries = append(p.entries, entry)
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// IsEmpty returns true if there are no entries.
func (p *Plan) IsEmpty() bool {
	return len(p.entries) == 0
}

// Entries returns all plan entries in execution order.
func (p *Plan) Entries() []PlanEntry {
	return p.entries
}

// HasChanges returns true if any steps need to be applied.
func (p *Plan) HasChanges() bool {
	for _, e := range p.entries {
		if e.probe == runbook.ProbeUnsatisfied {
			return true
		}
	}
	return false
}

// ConnectivityRiskSteps returns the IDs of unsatisfied steps that need
// an explicit confirmation gate.
func (p *Plan) ConnectivityRiskSteps() []string {
	ids := make([]string, 0)
	for _, e := range p.entries {
		if e.step.Risk() == runbook.RiskConnectivity && e.probe == runbook.ProbeUnsatisfied {
			ids = append(ids, e.step.ID().String())
		}
	}
	return ids
}

// Summary returns aggregate statistics.
func (p *Plan) Summary() PlanSummary {
	summary := PlanSummary{Total: len(p.entries)}
	for _, e := range p.entries {
		switch e.probe {
		case runbook.ProbeUnsatisfied:
			summary.ToApply++
		case runbook.ProbeSatisfied:
			summary.Satisfied++
		case runbook.ProbeUnknown:
			summary.Unknown++
		}
	}
	return summary
}
