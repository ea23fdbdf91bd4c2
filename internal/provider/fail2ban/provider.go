package fail2ban

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles fail2ban configuration into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new fail2ban Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "fail2ban"
}

// Compile transforms fail2ban configuration into executable steps:
// the rendered jail.local, then the running service.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("fail2ban")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	content, err := cfg.Render()
	if err != nil {
		return nil, err
	}

	var packageDeps []runbook.StepID
	if ctx.HasAptPackage("fail2ban") {
		packageDeps = append(packageDeps, runbook.MustNewStepID("apt:package:fail2ban"))
	}

	jailFile := NewJailFileStep(content, packageDeps, p.runner)
	service := NewServiceStep([]runbook.StepID{jailFile.ID()}, p.runner)

	return []runbook.Step{jailFile, service}, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
