package runbook

import (
	"testing"
)

// mockStep is a configurable test implementation of Step.
type mockStep struct {
	id       StepID
	deps     []StepID
	risk     RiskClass
	probeFn  func(RunContext) (ProbeStatus, error)
	applyFn  func(RunContext) error
	verifyFn func(RunContext) (ProbeStatus, error)
}

func newMockStep(id string, deps ...string) *mockStep {
	stepID, _ := NewStepID(id)
	depIDs := make([]StepID, len(deps))
	for i, d := range deps {
		depIDs[i], _ = NewStepID(d)
	}
	return &mockStep{
		id:   stepID,
		deps: depIDs,
		risk: RiskSafe,
		probeFn: func(RunContext) (ProbeStatus, error) {
			return ProbeUnsatisfied, nil
		},
		applyFn: func(RunContext) error {
			return nil
		},
		verifyFn: func(RunContext) (ProbeStatus, error) {
			return ProbeSatisfied, nil
		},
	}
}

func (m *mockStep) ID() StepID                                 { return m.id }
func (m *mockStep) DependsOn() []StepID                        { return m.deps }
func (m *mockStep) Risk() RiskClass                            { return m.risk }
func (m *mockStep) Probe(ctx RunContext) (ProbeStatus, error)  { return m.probeFn(ctx) }
func (m *mockStep) Apply(ctx RunContext) error                 { return m.applyFn(ctx) }
func (m *mockStep) Verify(ctx RunContext) (ProbeStatus, error) { return m.verifyFn(ctx) }
func (m *mockStep) Explain() Explanation                       { return NewExplanation("Test step", "For testing") }

func TestStep_Interface(t *testing.T) {
	step := newMockStep("apt:package:ufw")

	if step.ID().String() != "apt:package:ufw" {
		t.Errorf("ID() = %q, want %q", step.ID().String(), "apt:package:ufw")
	}
	if len(step.DependsOn()) != 0 {
		t.Errorf("DependsOn() len = %d, want 0", len(step.DependsOn()))
	}
	if step.Risk() != RiskSafe {
		t.Errorf("Risk() = %q, want %q", step.Risk(), RiskSafe)
	}
}

func TestProbeStatus_Decided(t *testing.T) {
	tests := []struct {
		status ProbeStatus
		want   bool
	}{
		{ProbeSatisfied, true},
		{ProbeUnsatisfied, true},
		{ProbeUnknown, false},
	}

	for _, tt := range tests {
		if got := tt.status.Decided(); got != tt.want {
			t.Errorf("%q.Decided() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFallbackStepID(t *testing.T) {
	if FallbackStepID.String() != "access:verify-fallback" {
		t.Errorf("FallbackStepID = %q", FallbackStepID.String())
	}
}
