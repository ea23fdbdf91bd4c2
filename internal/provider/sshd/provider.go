package sshd

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles sshd hardening configuration into executable steps.
type Provider struct {
	runner           ports.CommandRunner
	fallbackPossible bool
}

// NewProvider creates a new sshd Provider. fallbackPossible reports
// whether the run has an out-of-band access verifier at all; without
// one the hardening step cannot depend on a fallback proof that will
// never exist in the graph.
func NewProvider(runner ports.CommandRunner, fallbackPossible bool) *Provider {
	return &Provider{runner: runner, fallbackPossible: fallbackPossible}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sshd"
}

// Compile transforms sshd configuration into executable steps.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("sshd")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}
	if len(cfg.Directives()) == 0 {
		return nil, nil
	}

	var deps []runbook.StepID
	if p.fallbackPossible && fallbackConfigured(ctx) {
		deps = append(deps, runbook.FallbackStepID)
	}
	if ctx.HasAptPackage("openssh-server") {
		deps = append(deps, runbook.MustNewStepID("apt:package:openssh-server"))
	}

	return []runbook.Step{NewHardenStep(cfg, deps, p.runner)}, nil
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
