package ufw

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/validation"
)

// AllowStep adds a single ufw allow rule.
type AllowStep struct {
	rule   string
	id     runbook.StepID
	runner ports.CommandRunner
}

// NewAllowStep creates a new AllowStep.
func NewAllowStep(rule string, runner ports.CommandRunner) *AllowStep {
	// Sanitize the rule for use in a step ID (application profiles may
	// contain spaces).
	sanitized := strings.ReplaceAll(rule, " ", "-")
	return &AllowStep{
		rule:   rule,
		id:     runbook.MustNewStepID("ufw:allow:" + sanitized),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *AllowStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *AllowStep) DependsOn() []runbook.StepID {
	return nil
}

// Risk returns the step's risk class.
func (s *AllowStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks whether the rule is already present. `ufw show added`
// lists stored rules even while the firewall is inactive, which
// `ufw status` does not.
func (s *AllowStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeRule(ctx)
}

// Apply adds the allow rule.
func (s *AllowStep) Apply(ctx runbook.RunContext) error {
	if err := validation.ValidateFirewallRule(s.rule); err != nil {
		return fmt.Errorf("invalid firewall rule: %w", err)
	}

	args := append([]string{"ufw", "allow"}, strings.Fields(s.rule)...)
	result, err := s.runner.Run(ctx.Context(), "sudo", args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("ufw allow %s failed: %s", s.rule, result.Stderr)
	}
	return nil
}

// Verify re-checks the stored rule set.
func (s *AllowStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeRule(ctx)
}

func (s *AllowStep) probeRule(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "sudo", "ufw", "show", "added")
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}
	if strings.Contains(result.Stdout, "ufw allow "+s.rule) {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *AllowStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Allow firewall traffic",
		fmt.Sprintf("Adds a ufw allow rule for %s.", s.rule),
	)
}

// EnableStep turns the ufw firewall on.
type EnableStep struct {
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewEnableStep creates a new EnableStep. It depends on every allow
// rule and, when the runbook installs ufw itself, on that install.
func NewEnableStep(deps []runbook.StepID, runner ports.CommandRunner) *EnableStep {
	return &EnableStep{
		id:     runbook.MustNewStepID("ufw:enable"),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *EnableStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *EnableStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *EnableStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks whether the firewall is active.
func (s *EnableStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeActive(ctx)
}

// Apply enables the firewall without the interactive warning prompt.
func (s *EnableStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "ufw", "--force", "enable")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("ufw enable failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-checks the firewall status.
func (s *EnableStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeActive(ctx)
}

func (s *EnableStep) probeActive(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "sudo", "ufw", "status")
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}
	switch {
	case strings.Contains(result.Stdout, "Status: active"):
		return runbook.ProbeSatisfied, nil
	case strings.Contains(result.Stdout, "Status: inactive"):
		return runbook.ProbeUnsatisfied, nil
	default:
		return runbook.ProbeUnknown, nil
	}
}

// Explain provides a human-readable explanation.
func (s *EnableStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Enable firewall",
		"Activates ufw once all allow rules are in place, so enabling never cuts off SSH.",
	)
}
