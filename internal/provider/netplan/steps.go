package netplan

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// StaticAddressStep pins a static address on an interface through a
// netplan overlay. Rewriting network configuration on the interface
// that carries the operator's own session is the riskiest mutation in
// the runbook.
type StaticAddressStep struct {
	cfg     *Config
	content string
	id      runbook.StepID
	deps    []runbook.StepID
	runner  ports.CommandRunner
}

// NewStaticAddressStep creates a new StaticAddressStep.
func NewStaticAddressStep(cfg *Config, content string, deps []runbook.StepID, runner ports.CommandRunner) *StaticAddressStep {
	return &StaticAddressStep{
		cfg:     cfg,
		content: content,
		id:      runbook.MustNewStepID("network:static:" + cfg.Interface),
		deps:    deps,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *StaticAddressStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *StaticAddressStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *StaticAddressStep) Risk() runbook.RiskClass {
	return runbook.RiskConnectivity
}

// Probe checks whether the interface already carries the address. A
// missing interface is not a decisive "needs apply": applying cannot
// fix it either, so the answer stays unknown.
func (s *StaticAddressStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeAddress(ctx)
}

// Apply writes the overlay with tight permissions and applies it.
func (s *StaticAddressStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.RunInput(ctx.Context(), s.content, "sudo", "tee", OverlayPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("write %s failed: %s", OverlayPath, result.Stderr)
	}

	// netplan refuses world-readable configs.
	result, err = s.runner.Run(ctx.Context(), "sudo", "chmod", "600", OverlayPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("chmod %s failed: %s", OverlayPath, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "netplan", "apply")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("netplan apply failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-reads the interface's addresses.
func (s *StaticAddressStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeAddress(ctx)
}

func (s *StaticAddressStep) probeAddress(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "ip", "-br", "addr", "show", "dev", s.cfg.Interface)
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}
	if strings.Contains(result.Stdout, s.cfg.Address) {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *StaticAddressStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Configure static address",
		fmt.Sprintf("Writes %s pinning %s on %s and runs netplan apply. Runs only after fallback access is proven.",
			OverlayPath, s.cfg.Address, s.cfg.Interface),
	)
}
