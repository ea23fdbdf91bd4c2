package netplan

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/validation"
)

// Provider compiles network configuration into executable steps.
type Provider struct {
	runner           ports.CommandRunner
	fallbackPossible bool
}

// NewProvider creates a new netplan Provider.
func NewProvider(runner ports.CommandRunner, fallbackPossible bool) *Provider {
	return &Provider{runner: runner, fallbackPossible: fallbackPossible}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "network"
}

// Compile transforms network configuration into executable steps.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("network")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateInterfaceName(cfg.Interface); err != nil {
		return nil, err
	}

	content, err := cfg.Render()
	if err != nil {
		return nil, err
	}

	var deps []runbook.StepID
	if p.fallbackPossible && fallbackConfigured(ctx) {
		deps = append(deps, runbook.FallbackStepID)
	}

	return []runbook.Step{NewStaticAddressStep(cfg, content, deps, p.runner)}, nil
}

// fallbackConfigured mirrors the access provider's decision to emit
// the fallback verification step.
func fallbackConfigured(ctx runbook.CompileContext) bool {
	section := ctx.GetSection("access")
	if section == nil {
		return false
	}
	if v, ok := section["verify_fallback"].(bool); ok && !v {
		return false
	}
	return true
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
