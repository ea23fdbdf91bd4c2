package command

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles the commands section into raw steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new command Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "commands"
}

// Compile transforms the commands section into executable steps.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	raw, ok := ctx.Config()["commands"]
	if !ok {
		return nil, nil
	}

	specs, err := ParseSpecs(raw)
	if err != nil {
		return nil, err
	}

	steps := make([]runbook.Step, 0, len(specs))
	for _, spec := range specs {
		step, err := NewRawStep(spec, p.runner)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
