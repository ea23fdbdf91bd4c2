package apt

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles apt configuration into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new apt Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "apt"
}

// Compile transforms apt configuration into executable steps.
// Package installs depend on the index refresh when one is requested,
// and the full upgrade runs after both.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("apt")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	steps := make([]runbook.Step, 0, len(cfg.Packages)+2)

	var updateID *runbook.StepID
	if cfg.Update {
		update := NewUpdateStep(p.runner)
		id := update.ID()
		updateID = &id
		steps = append(steps, update)
	}

	packageIDs := make([]runbook.StepID, 0, len(cfg.Packages))
	for _, pkg := range cfg.Packages {
		step := NewPackageStep(pkg, updateID, p.runner)
		packageIDs = append(packageIDs, step.ID())
		steps = append(steps, step)
	}

	if cfg.Upgrade {
		deps := make([]runbook.StepID, 0, len(packageIDs)+1)
		if updateID != nil {
			deps = append(deps, *updateID)
		}
		deps = append(deps, packageIDs...)
		steps = append(steps, NewUpgradeStep(deps, p.runner))
	}

	return steps, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
