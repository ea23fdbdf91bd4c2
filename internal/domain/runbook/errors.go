package runbook

import (
	"fmt"
	"strings"
)

// Error codes for runbook operations.
const (
	ErrCodeProviderFailed       = "PROVIDER_FAILED"
	ErrCodeStepDuplicate        = "STEP_DUPLICATE"
	ErrCodeDependencyMissing    = "DEPENDENCY_MISSING"
	ErrCodeCyclicDependency     = "CYCLIC_DEPENDENCY"
	ErrCodeProbeFailed          = "PROBE_FAILED"
	ErrCodeActionFailed         = "ACTION_FAILED"
	ErrCodeVerifyFailed         = "VERIFY_FAILED"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
)

// StepError is a coded runbook error with an actionable suggestion.
type StepError struct {
	Code       string // Error code for categorization
	Message    string // User-facing error message
	StepID     string // Step ID if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %q: %s", e.StepID, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Format returns a fully formatted error with all details.
func (e *StepError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.StepID != "" {
		b.WriteString(fmt.Sprintf("\n  Step: %s", e.StepID))
	}
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  Suggestion: %s", e.Suggestion))
	}
	if e.Underlying != nil {
		b.WriteString(fmt.Sprintf("\n  Cause: %s", e.Underlying.Error()))
	}

	return b.String()
}

// CycleError reports a dependency cycle, naming the minimal cycle so
// the operator knows exactly which edge to break. It is always raised
// before any mutation occurs.
type CycleError struct {
	Cycle []string
}

// NewCycleError creates a CycleError for the given cycle path.
func NewCycleError(cycle []string) *CycleError {
	return &CycleError{Cycle: cycle}
}

// Error returns the formatted cycle description.
func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "cyclic dependency detected"
	}
	closed := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(closed, " -> "))
}

// Unwrap lets errors.Is match ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// NewProviderFailedError creates an error for provider compilation failure.
func NewProviderFailedError(provider string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeProviderFailed,
		Message:    fmt.Sprintf("provider %q failed to compile steps", provider),
		Suggestion: fmt.Sprintf("Check the %s section of your runbook for syntax errors or missing required fields.", provider),
		Underlying: err,
	}
}

// NewProbeError creates an error for an ambiguous precondition probe.
func NewProbeError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeProbeFailed,
		Message:    "precondition probe could not determine machine state",
		StepID:     stepID,
		Suggestion: "Resolve the probe failure before re-running; ambiguous state is never treated as \"needs apply\".",
		Underlying: err,
	}
}

// NewActionError creates an error for a mutation that failed to run.
func NewActionError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeActionFailed,
		Message:    "action failed to execute",
		StepID:     stepID,
		Suggestion: "Check connectivity to the target and that the required binary exists, then re-run; completed steps are skipped.",
		Underlying: err,
	}
}

// NewVerifyError creates an error for a postcondition that did not hold
// after the action reported success.
func NewVerifyError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeVerifyFailed,
		Message:    "action ran but the postcondition does not hold",
		StepID:     stepID,
		Suggestion: "The command's exit status claimed success but machine state disagrees. Inspect the captured output in the ledger.",
		Underlying: err,
	}
}

// NewConfirmationRequiredError creates an error for a connectivity-risk
// step attempted without a verified fallback path or explicit consent.
func NewConfirmationRequiredError(stepID, reason string) *StepError {
	return &StepError{
		Code:       ErrCodeConfirmationRequired,
		Message:    reason,
		StepID:     stepID,
		Suggestion: fmt.Sprintf("Run %q first, then re-run with --confirm %s (or --yes).", FallbackStepID.String(), stepID),
	}
}
