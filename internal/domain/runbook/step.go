// Package runbook defines the step model for host provisioning.
// A runbook compiles into a graph of idempotent steps, each bracketed
// by machine-state probes that are evaluated independently of the
// mutation's own exit status.
package runbook

// RiskClass categorizes the blast radius of a step's mutation.
type RiskClass string

const (
	// RiskSafe marks steps whose failure cannot sever the operator's
	// access path to the target machine.
	RiskSafe RiskClass = "safe"
	// RiskConnectivity marks steps that can lock the operator out if
	// applied prematurely (disabling password auth, restarting sshd,
	// rewriting network configuration).
	RiskConnectivity RiskClass = "connectivity-risk"
)

// String returns the string representation of the risk class.
func (r RiskClass) String() string {
	return string(r)
}

// FallbackStepID identifies the step that proves key-based access from
// the outside. Connectivity-risk steps never execute until this step
// has a recorded success.
var FallbackStepID = MustNewStepID("access:verify-fallback")

// Step represents one idempotent provisioning unit.
//
// Probe and Verify are pure observations of machine state: they must
// never mutate the target. Apply is the only mutating operation, and
// its exit status alone is never taken as proof of the transition;
// Verify re-derives the outcome from observable state.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() StepID

	// DependsOn returns the IDs of steps that must complete before this one.
	DependsOn() []StepID

	// Risk returns the step's risk class.
	Risk() RiskClass

	// Probe observes whether the step's desired state already holds.
	// A probe that cannot run or cannot decide reports ProbeUnknown;
	// it must never report ProbeUnsatisfied on ambiguity.
	Probe(ctx RunContext) (ProbeStatus, error)

	// Apply performs the step's mutation.
	Apply(ctx RunContext) error

	// Verify re-probes the postcondition after Apply.
	Verify(ctx RunContext) (ProbeStatus, error)

	// Explain returns human-readable context for this step.
	Explain() Explanation
}
