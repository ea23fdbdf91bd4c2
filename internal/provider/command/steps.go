package command

import (
	"fmt"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// RawStep executes operator-supplied command lines through sh -c.
type RawStep struct {
	spec   Spec
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewRawStep creates a new RawStep from a parsed spec.
func NewRawStep(spec Spec, runner ports.CommandRunner) (*RawStep, error) {
	id, err := runbook.NewStepID("commands:" + spec.Name)
	if err != nil {
		return nil, fmt.Errorf("command name %q: %w", spec.Name, err)
	}

	deps := make([]runbook.StepID, 0, len(spec.Needs))
	for _, need := range spec.Needs {
		depID, err := runbook.NewStepID(need)
		if err != nil {
			return nil, fmt.Errorf("command %q needs %q: %w", spec.Name, need, err)
		}
		deps = append(deps, depID)
	}

	return &RawStep{
		spec:   spec,
		id:     id,
		deps:   deps,
		runner: runner,
	}, nil
}

// ID returns the step identifier.
func (s *RawStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *RawStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the declared risk class.
func (s *RawStep) Risk() runbook.RiskClass {
	if s.spec.Risk == "connectivity-risk" {
		return runbook.RiskConnectivity
	}
	return runbook.RiskSafe
}

// Probe runs the check command, falling back to the verify command
// when no check was declared. Exit 0 and 1 are decisive; anything else
// means the check itself broke.
func (s *RawStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.observe(ctx, s.checkCommand())
}

// Apply runs the step's run command.
func (s *RawStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sh", "-c", s.spec.Run)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("command %s failed: %s", s.spec.Name, result.Stderr)
	}
	return nil
}

// Verify runs the verify command, falling back to the check command
// when no verify was declared.
func (s *RawStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.observe(ctx, s.verifyCommand())
}

func (s *RawStep) checkCommand() string {
	if s.spec.Check != "" {
		return s.spec.Check
	}
	return s.spec.Verify
}

func (s *RawStep) verifyCommand() string {
	if s.spec.Verify != "" {
		return s.spec.Verify
	}
	return s.spec.Check
}

func (s *RawStep) observe(ctx runbook.RunContext, command string) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "sh", "-c", command)
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	switch result.ExitCode {
	case 0:
		return runbook.ProbeSatisfied, nil
	case 1:
		return runbook.ProbeUnsatisfied, nil
	default:
		return runbook.ProbeUnknown, nil
	}
}

// Explain provides a human-readable explanation.
func (s *RawStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Run raw command",
		fmt.Sprintf("Runs %q, judged by its declared check/verify command.", s.spec.Run),
	)
}
