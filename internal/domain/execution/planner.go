package execution

import (
	"context"

	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// Planner generates a Plan from a step graph. It is the state prober's
// orchestrator: each step's precondition is checked against the live
// machine, or seeded from the prior run's ledger when the reverify
// policy allows it.
type Planner struct {
	policy ledger.ReverifyPolicy
}

// NewPlanner creates a Planner with the trust-ledger policy.
func NewPlanner() *Planner {
	return &Planner{policy: ledger.PolicyTrustLedger}
}

// WithPolicy returns a Planner using the given reverify policy.
func (p *Planner) WithPolicy(policy ledger.ReverifyPolicy) *Planner {
	return &Planner{policy: policy}
}

// Plan probes each step in deterministic topological order. A cycle in
// the graph fails the whole plan before anything executes. A failed
// probe does not: the entry is recorded as unknown with the failure
// attached, and the executor refuses to act on it.
func (p *Planner) Plan(ctx context.Context, graph *runbook.Graph, prior *ledger.Ledger) (*Plan, error) {
	steps, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	plan := NewPlan()
	runCtx := runbook.NewRunContext(ctx)

	for _, step := range steps {
		id := step.ID().String()

		if p.policy == ledger.PolicyTrustLedger && prior != nil && prior.HasSucceeded(id) {
			plan.Add(NewPlanEntry(step, runbook.ProbeSatisfied).withSeeded())
			continue
		}

		status, probeErr := step.Probe(runCtx)
		if probeErr != nil {
			status = runbook.ProbeUnknown
		}

		entry := NewPlanEntry(step, status)
		if status == runbook.ProbeUnknown {
			entry = entry.withProbeErr(runbook.NewProbeError(id, probeErr))
		}
		plan.Add(entry)
	}

	return plan, nil
}
