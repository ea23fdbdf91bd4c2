package access

import (
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Provider compiles access configuration into executable steps.
type Provider struct {
	runner   ports.CommandRunner
	verifier ports.AccessVerifier
}

// NewProvider creates a new access Provider. verifier may be nil when
// no out-of-band connection is possible (local runs); the fallback
// verification step is then omitted and connectivity-risk steps stay
// gated.
func NewProvider(runner ports.CommandRunner, verifier ports.AccessVerifier) *Provider {
	return &Provider{runner: runner, verifier: verifier}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "access"
}

// Compile transforms access configuration into executable steps: one
// per authorized key, then the fallback access verification that
// depends on all of them.
func (p *Provider) Compile(ctx runbook.CompileContext) ([]runbook.Step, error) {
	rawConfig := ctx.GetSection("access")
	if rawConfig == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	steps := make([]runbook.Step, 0, len(cfg.AuthorizedKeys)+1)

	keyIDs := make([]runbook.StepID, 0, len(cfg.AuthorizedKeys))
	for i, key := range cfg.AuthorizedKeys {
		step, err := NewAuthorizedKeyStep(cfg.User, key, KeyLabel(key, i), p.runner)
		if err != nil {
			return nil, err
		}
		keyIDs = append(keyIDs, step.ID())
		steps = append(steps, step)
	}

	if cfg.VerifyFallback && p.verifier != nil {
		steps = append(steps, NewFallbackAccessStep(keyIDs, p.verifier))
	}

	return steps, nil
}

// Ensure Provider implements runbook.Provider.
var _ runbook.Provider = (*Provider)(nil)
