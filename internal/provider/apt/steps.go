package apt

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/validation"
)

// indexFreshMinutes is how recently the apt lists must have been
// refreshed for the update step to count as satisfied.
const indexFreshMinutes = 60

// UpdateStep refreshes the apt package index.
type UpdateStep struct {
	id     runbook.StepID
	runner ports.CommandRunner
}

// NewUpdateStep creates a new UpdateStep.
func NewUpdateStep(runner ports.CommandRunner) *UpdateStep {
	return &UpdateStep{
		id:     runbook.MustNewStepID("apt:update"),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *UpdateStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *UpdateStep) DependsOn() []runbook.StepID {
	return nil
}

// Risk returns the step's risk class.
func (s *UpdateStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks the modification time of the apt lists directory. A
// refresh within the last hour counts as satisfied.
func (s *UpdateStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeIndexAge(ctx)
}

// Apply refreshes the package index.
func (s *UpdateStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "apt-get", "update")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get update failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-checks the index age after a refresh.
func (s *UpdateStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeIndexAge(ctx)
}

func (s *UpdateStep) probeIndexAge(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "find", "/var/lib/apt/lists", "-maxdepth", "0",
		"-mmin", fmt.Sprintf("-%d", indexFreshMinutes))
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}
	if strings.TrimSpace(result.Stdout) != "" {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *UpdateStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Refresh apt index",
		"Runs apt-get update so subsequent installs resolve against a current package index.",
	)
}

// PackageStep installs a single apt package.
type PackageStep struct {
	name   string
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewPackageStep creates a new PackageStep. When updateID is non-nil
// the install waits for the index refresh.
func NewPackageStep(name string, updateID *runbook.StepID, runner ports.CommandRunner) *PackageStep {
	var deps []runbook.StepID
	if updateID != nil {
		deps = []runbook.StepID{*updateID}
	}
	return &PackageStep{
		name:   name,
		id:     runbook.MustNewStepID("apt:package:" + name),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *PackageStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *PackageStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *PackageStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe checks whether the package is installed via dpkg-query. An
// exit code of 1 means "not found" and is a decisive answer; anything
// else unexpected stays unknown.
func (s *PackageStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeInstalled(ctx)
}

// Apply installs the package.
func (s *PackageStep) Apply(ctx runbook.RunContext) error {
	if err := validation.ValidatePackageName(s.name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "sudo", "apt-get", "install", "-y", s.name)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get install %s failed: %s", s.name, result.Stderr)
	}
	return nil
}

// Verify re-queries dpkg for the installed state.
func (s *PackageStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeInstalled(ctx)
}

func (s *PackageStep) probeInstalled(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "dpkg-query", "-W", "-f=${db:Status-Status}", s.name)
	if err != nil {
		return runbook.ProbeUnknown, err
	}

	switch result.ExitCode {
	case 0:
		if strings.TrimSpace(result.Stdout) == "installed" {
			return runbook.ProbeSatisfied, nil
		}
		return runbook.ProbeUnsatisfied, nil
	case 1:
		// dpkg-query exits 1 when the package is not in the database.
		return runbook.ProbeUnsatisfied, nil
	default:
		return runbook.ProbeUnknown, nil
	}
}

// Explain provides a human-readable explanation.
func (s *PackageStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Install apt package",
		fmt.Sprintf("Installs the %s package via apt-get.", s.name),
	)
}

// UpgradeStep upgrades all installed packages to their latest versions.
type UpgradeStep struct {
	id     runbook.StepID
	deps   []runbook.StepID
	runner ports.CommandRunner
}

// NewUpgradeStep creates a new UpgradeStep.
func NewUpgradeStep(deps []runbook.StepID, runner ports.CommandRunner) *UpgradeStep {
	return &UpgradeStep{
		id:     runbook.MustNewStepID("apt:upgrade"),
		deps:   deps,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *UpgradeStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *UpgradeStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *UpgradeStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe simulates an upgrade and checks whether anything would change.
func (s *UpgradeStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probePending(ctx)
}

// Apply upgrades all packages non-interactively.
func (s *UpgradeStep) Apply(ctx runbook.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "sudo", "DEBIAN_FRONTEND=noninteractive",
		"apt-get", "upgrade", "-y")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get upgrade failed: %s", result.Stderr)
	}
	return nil
}

// Verify re-simulates the upgrade; nothing pending means it worked.
func (s *UpgradeStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probePending(ctx)
}

func (s *UpgradeStep) probePending(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	result, err := s.runner.Run(ctx.Context(), "apt-get", "-s", "upgrade")
	if err != nil {
		return runbook.ProbeUnknown, err
	}
	if !result.Success() {
		return runbook.ProbeUnknown, nil
	}
	if strings.Contains(result.Stdout, "0 upgraded, 0 newly installed") {
		return runbook.ProbeSatisfied, nil
	}
	return runbook.ProbeUnsatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *UpgradeStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Upgrade installed packages",
		"Runs a full apt-get upgrade so the host starts from current package versions.",
	)
}
