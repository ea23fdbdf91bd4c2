package ufw

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles firewall configuration into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new ufw Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "firewall"
}

// Compile transforms firewall configuration into executable steps.
// Enabling the firewall always waits for every allow rule, so the SSH
// rule is in place before ufw starts filtering.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("firewall")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	steps := make([]runbook.Step, 0, len(cfg.Allow)+1)

	allowIDs := make([]runbook.StepID, 0, len(cfg.Allow))
	for _, rule := range cfg.Allow {
		step := NewAllowStep(rule, p.runner)
		allowIDs = append(allowIDs, step.ID())
		steps = append(steps, step)
	}

	if cfg.Enabled {
		deps := allowIDs
		if ctx.HasAptPackage("ufw") {
			deps = append(deps, runbook.MustNewStepID("apt:package:ufw"))
		}
		steps = append(steps, NewEnableStep(deps, p.runner))
	}

	return steps, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
