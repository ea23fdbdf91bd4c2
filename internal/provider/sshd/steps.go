package sshd

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// HardenStep writes the hardening drop-in and reloads sshd. The step
// is connectivity-risk: a bad config here is how operators lock
// themselves out.
type HardenStep struct {
	cfg    *Config
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewHardenStep creates a new HardenStep.
func NewHardenStep(cfg *Config, deps []runbook.StepID, runner ports.CommandRunner) *HardenStep {
	return &HardenStep{
		cfg:    cfg,
		id:     runbook.MustNewStepID("sshd:harden"),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *HardenStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *HardenStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *HardenStep) Risk() runbook.RiskClass {
	return runbook.RiskConnectivity
}

// Probe asks the daemon for its effective configuration via sshd -T
// and compares every desired directive. Effective values catch drift
// from any config file, not just the drop-in.
func (s *HardenStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeEffective(ctx)
}

// Apply writes the drop-in, syntax-checks the combined configuration,
// and only then reloads the daemon. A failed syntax check leaves the
// running daemon untouched.
func (s *HardenStep) Apply(ctx runbook.RunContext) error {
	content := s.cfg.Render()

	result, err := s.runner.RunInput(ctx.Context(), content, "sudo", "tee", DropInPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("write %s failed: %s", DropInPath, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "sshd", "-t")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("sshd config syntax check failed, daemon not reloaded: %s", result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "systemctl", "reload", "ssh")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("reload ssh failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-reads the effective configuration after the reload.
func (s *HardenStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeEffective(ctx)
}

func (s *HardenStep) probeEffective(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "sudo", "sshd", "-T")
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}

	effective := parseEffective(result.Stdout)
	for _, d := range s.cfg.Directives() {
		got, ok := effective[strings.ToLower(d[0])]
		if !ok {
			return runbook.ProbeUnknown, nil
		}
		if !strings.EqualFold(got, d[1]) {
			return runbook.ProbeUnsatisfied, nil
		}
	}
	return runbook.ProbeSatisfied, nil
}

// parseEffective parses `sshd -T` output into a directive map. The
// daemon prints lowercase keywords, one per line.
func parseEffective(out string) map[string]string {
	effective := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(parts) == 2 {
			effective[parts[0]] = parts[1]
		}
	}
	return effective
}

// Explain provides a human-readable explanation.
func (s *HardenStep) Explain() runbook.Explanation {
	directives := s.cfg.Directives()
	names := make([]string, 0, len(directives))
	for _, d := range directives {
		names = append(names, d[0])
	}
	return runbook.NewExplanation(
		"Harden sshd",
		fmt.Sprintf("Writes %s setting %s and reloads sshd. Runs only after fallback access is proven.",
			DropInPath, strings.Join(names, ", ")),
	)
}
