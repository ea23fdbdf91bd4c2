package runbook

// ProbeStatus is the result of observing machine state for a step's
// pre- or postcondition.
type ProbeStatus string

const (
	// ProbeSatisfied indicates the desired state already holds.
	ProbeSatisfied ProbeStatus = "satisfied"
	// ProbeUnsatisfied indicates the desired state does not hold and
	// the step's action is required.
	ProbeUnsatisfied ProbeStatus = "unsatisfied"
	// ProbeUnknown indicates the observation itself failed or was
	// ambiguous. Unknown is never treated as unsatisfied: re-running a
	// destructive action on ambiguous state is worse than stopping.
	ProbeUnknown ProbeStatus = "unknown"
)

// String returns the string representation of the probe status.
func (s ProbeStatus) String() string {
	return string(s)
}

// Decided returns true if the probe reached a definite answer.
func (s ProbeStatus) Decided() bool {
	return s == ProbeSatisfied || s == ProbeUnsatisfied
}
