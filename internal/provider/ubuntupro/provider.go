package ubuntupro

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles Ubuntu Pro configuration into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new ubuntupro Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "pro"
}

// Compile transforms pro configuration into executable steps: the
// attach, then one enable per requested service.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("pro")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	attach := NewAttachStep(cfg.Token, p.runner)
	steps := []runbook.Step{attach}

	for _, svc := range cfg.Services {
		steps = append(steps, NewServiceStep(svc, attach.ID(), p.runner))
	}

	return steps, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
