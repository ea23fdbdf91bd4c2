package fail2ban

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// JailFileStep writes the rendered jail.local to the target host.
type JailFileStep struct {
	content string
	id      runbook.StepID
	deps    []runbook.StepID
	runner  ports.CommandRunner
}

// NewJailFileStep creates a new JailFileStep.
func NewJailFileStep(content string, deps []runbook.StepID, runner ports.CommandRunner) *JailFileStep {
	return &JailFileStep{
		content: content,
		id:      runbook.MustNewStepID("fail2ban:jail-config"),
		deps:    deps,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *JailFileStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *JailFileStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *JailFileStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe compares the file on disk against the rendered content. A
// missing file is a decisive answer; a read failure for any other
// reason is not.
func (s *JailFileStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeContent(ctx)
}

// Apply writes jail.local through tee and nudges a running fail2ban to
// pick up the change. try-restart is a no-op when the service is not
// yet running; starting it is the service step's job.
func (s *JailFileStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.RunInput(ctx.Context(), s.content, "sudo", "tee", JailLocalPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("write %s failed: %s", JailLocalPath, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "systemctl", "try-restart", "fail2ban")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("restart fail2ban failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-reads the file and compares content.
func (s *JailFileStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeContent(ctx)
}

func (s *JailFileStep) probeContent(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "sudo", "cat", JailLocalPath)
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		if strings.Contains(result.Stderr, "No such file") {
			return runbook.ProbeUnsatisfied, nil
		}
		return runbook.ProbeUnknown, nil
	}
	if strings.TrimRight(result.Stdout, "\n") == strings.TrimRight(s.content, "\n") {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *JailFileStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Write fail2ban jail configuration",
		fmt.Sprintf("Renders jail.local to %s with the runbook's ban policy and enabled jails.", JailLocalPath),
	)
}

// ServiceStep ensures the fail2ban service is enabled and running.
type ServiceStep struct {
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewServiceStep creates a new ServiceStep.
func NewServiceStep(deps []runbook.StepID, runner ports.CommandRunner) *ServiceStep {
	return &ServiceStep{
		id:     runbook.MustNewStepID("fail2ban:service"),
		deps:   deps,
		runner: runner,
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

// Probe checks the service's active state. systemctl is-active exits
// non-zero for inactive units, which is still a decisive answer.
func (s *ServiceStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeActive(ctx)
}

// Apply enables and starts the service.
func (s *ServiceStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "systemctl", "enable", "--now", "fail2ban")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("enable fail2ban failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-checks the active state.
func (s *ServiceStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeActive(ctx)
}

func (s *ServiceStep) probeActive(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "systemctl", "is-active", "fail2ban")
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	switch strings.TrimSpace(result.Stdout) {
	case "active":
		return runbook.ProbeSatisfied, nil
	case "inactive", "failed":
		return runbook.ProbeUnsatisfied, nil
	default:
		return runbook.ProbeUnknown, nil
	}
}

// Explain provides a human-readable explanation.
func (s *ServiceStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Run fail2ban service",
		"Enables fail2ban at boot and starts it so the configured jails take effect.",
	)
}
