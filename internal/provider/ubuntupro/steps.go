package ubuntupro

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// proStatus mirrors the fields of `pro status --format json` this
// provider reads.
type proStatus struct {
	Attached bool `json:"attached"`
	Services []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"services"`
}

func queryStatus(ctx runbook.RunContext, runner ports.CommandRunner) (*proStatus, error) {
	result, err := runner.Run(ctx.Context(), "sudo", "pro", "status", "--format", "json")
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, fmt.Errorf("pro status failed: %s", result.Stderr)
	}

	var status proStatus
	if err := json.Unmarshal([]byte(result.Stdout), &status); err != nil {
		return nil, fmt.Errorf("parse pro status: %w", err)
	}
	return &status, nil
}

// AttachStep attaches the machine to an Ubuntu Pro subscription.
type AttachStep struct {
	token  string
	id     runbook.StepID
	runner ports.CommandRunner
}

// NewAttachStep creates a new AttachStep.
func NewAttachStep(token string, runner ports.CommandRunner) *AttachStep {
	return &AttachStep{
		token:  token,
		id:     runbook.MustNewStepID("pro:attach"),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *AttachStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *AttachStep) DependsOn() []runbook.StepID {
	return nil
}

// Risk returns the step's risk class.
func (s *AttachStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks the attachment state. An unreadable or unparseable
// status is not proof of detachment.
func (s *AttachStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeAttached(ctx)
}

// Apply attaches with the configured token.
func (s *AttachStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "pro", "attach", s.token)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("pro attach failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-reads the attachment state.
func (s *AttachStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeAttached(ctx)
}

func (s *AttachStep) probeAttached(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	status, err := queryStatus(ctx, s.runner)
	if err != nil {
		return runbook.ProbeUnknown, nil
	}
	if status.Attached {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *AttachStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Attach Ubuntu Pro",
		"Attaches the host to an Ubuntu Pro subscription for extended security maintenance.",
	)
}

// ServiceStep enables one Ubuntu Pro service on an attached machine.
type ServiceStep struct {
	service string
	id      runbook.StepID
	deps    []runbook.StepID
	runner  ports.CommandRunner
}

// NewServiceStep creates a new ServiceStep.
func NewServiceStep(service string, attachID runbook.StepID, runner ports.CommandRunner) *ServiceStep {
	return &ServiceStep{
		service: service,
		id:      runbook.MustNewStepID("pro:service:" + service),
		deps:    []runbook.StepID{attachID},
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *ServiceStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *ServiceStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *ServiceStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks the service's enablement state.
func (s *ServiceStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeEnabled(ctx)
}

// Apply enables the service.
func (s *ServiceStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "pro", "enable", s.service, "--assume-yes")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("pro enable %s failed: %s", s.service, result.Stderr)
	}
	return nil
}

// Verify re-reads the service state.
func (s *ServiceStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeEnabled(ctx)
}

func (s *ServiceStep) probeEnabled(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	status, err := queryStatus(ctx, s.runner)
	if err != nil {
		return runbook.ProbeUnknown, nil
	}
	for _, svc := range status.Services {
		if svc.Name != s.service {
			continue
		}
		switch svc.Status {
		case "enabled":
			return runbook.ProbeSatisfied, nil
		case "disabled":
			return runbook.ProbeUnsatisfied, nil
		default:
			return runbook.ProbeUnknown, nil
		}
	}
	return runbook.ProbeUnknown, nil
}

// Explain provides a human-readable explanation.
func (s *ServiceStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Enable Ubuntu Pro service",
		fmt.Sprintf("Enables the %s service on the attached subscription.", s.service),
	)
}
