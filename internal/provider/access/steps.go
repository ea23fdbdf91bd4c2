package access

import (
	"fmt"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/validation"
)

// AuthorizedKeyStep installs one public key into a user's
// authorized_keys file.
type AuthorizedKeyStep struct {
	user   string
	key    string
	id     runbook.StepID
	runner ports.CommandRunner
}

// NewAuthorizedKeyStep creates a new AuthorizedKeyStep.
func NewAuthorizedKeyStep(user, key, label string, runner ports.CommandRunner) (*AuthorizedKeyStep, error) {
	if err := validation.ValidateUsername(user); err != nil {
		return nil, err
	}
	if err := validation.ValidatePublicKey(key); err != nil {
		return nil, err
	}
	return &AuthorizedKeyStep{
		user:   user,
		key:    key,
		id:     runbook.MustNewStepID("access:key:" + user + ":" + label),
		runner: runner,
	}, nil
}

// ID returns the step identifier.
func (s *AuthorizedKeyStep) ID() runbook.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *AuthorizedKeyStep) DependsOn() []runbook.StepID {
	return nil
}

// Risk returns the step's risk class. Adding a key never removes an
// access path.
func (s *AuthorizedKeyStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe greps for the exact key line. Exit 0 and 1 are decisive; exit
// 2 usually means the file does not exist yet, which a follow-up test
// disambiguates from a real read failure.
func (s *AuthorizedKeyStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeKey(ctx)
}

// Apply creates ~/.ssh with tight permissions and appends the key.
func (s *AuthorizedKeyStep) Apply(ctx runbook.RunContext) error {
	sshDir := s.sshDir()

	result, err := s.runner.Run(ctx.Context(), "sudo", "install", "-d", "-m", "700",
		"-o", s.user, "-g", s.user, sshDir)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("create %s failed: %s", sshDir, result.Stderr)
	}

	path := s.authorizedKeysPath()
	result, err = s.runner.RunInput(ctx.Context(), s.key+"\n", "sudo", "tee", "-a", path)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("append to %s failed: %s", path, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "chmod", "600", path)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("chmod %s failed: %s", path, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "chown", s.user+":"+s.user, path)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("chown %s failed: %s", path, result.Stderr)
	}
	return nil
}

// Verify re-greps for the key line.
func (s *AuthorizedKeyStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	return s.probeKey(ctx)
}

func (s *AuthorizedKeyStep) probeKey(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	path := s.authorizedKeysPath()
	result, err := s.runner.Run(ctx.Context(), "sudo", "grep", "-qF", "--", s.key, path)
	if err != nil {
		return runbook.ProbeUnknown, err
	}

	switch result.ExitCode {
	case 0:
		return runbook.ProbeSatisfied, nil
	case 1:
		return runbook.ProbeUnsatisfied, nil
	default:
		// grep exits 2 both for a missing file and for real errors.
		exists, err := s.runner.Run(ctx.Context(), "sudo", "test", "-f", path)
		if err != nil {
			return runbook.ProbeUnknown, err
		}
		if !exists.Success() {
			return runbook.ProbeUnsatisfied, nil
		}
		return runbook.ProbeUnknown, nil
	}
}

func (s *AuthorizedKeyStep) sshDir() string {
	if s.user == "root" {
		return "/root/.ssh"
	}
	return "/home/" + s.user + "/.ssh"
}

func (s *AuthorizedKeyStep) authorizedKeysPath() string {
	return s.sshDir() + "/authorized_keys"
}

// Explain provides a human-readable explanation.
func (s *AuthorizedKeyStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Install authorized key",
		fmt.Sprintf("Appends a public key to %s so key-based login works for %s.", s.authorizedKeysPath(), s.user),
	)
}

// FallbackAccessStep proves key-based access from the outside. The
// target cannot self-certify that a new key works while the operator's
// own session is the one under test, so both Probe and Verify open an
// independent connection through the injected verifier.
type FallbackAccessStep struct {
	deps     []runbook.StepID
	verifier ports.AccessVerifier
}

// NewFallbackAccessStep creates the fallback verification step. It
// depends on every authorized-key install.
func NewFallbackAccessStep(deps []runbook.StepID, verifier ports.AccessVerifier) *FallbackAccessStep {
	return &FallbackAccessStep{deps: deps, verifier: verifier}
}

// ID returns the well-known fallback step identifier.
func (s *FallbackAccessStep) ID() runbook.StepID {
	return runbook.FallbackStepID
}

// DependsOn returns the step dependencies.
func (s *FallbackAccessStep) DependsOn() []runbook.StepID {
	return s.deps
}

// Risk returns the step's risk class.
func (s *FallbackAccessStep) Risk() runbook.RiskClass {
	return runbook.RiskSafe
}

// Probe attempts the out-of-band connection. Success is decisive; a
// failure is reported as unsatisfied so the step runs and its Verify
// gives the authoritative answer after the key steps have settled.
func (s *FallbackAccessStep) Probe(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	if err := s.verifier.VerifyAccess(ctx.Context()); err != nil {
		return runbook.ProbeUnsatisfied, nil
	}
	return runbook.ProbeSatisfied, nil
}

// Apply performs no mutation. The keys this step depends on are the
// mutation; this step only observes.
func (s *FallbackAccessStep) Apply(_ runbook.RunContext) error {
	return nil
}

// Verify opens a fresh connection with the fallback credential.
func (s *FallbackAccessStep) Verify(ctx runbook.RunContext) (runbook.ProbeStatus, error) {
	if err := s.verifier.VerifyAccess(ctx.Context()); err != nil {
		return runbook.ProbeUnsatisfied, nil
	}
	return runbook.ProbeSatisfied, nil
}

// Explain provides a human-readable explanation.
func (s *FallbackAccessStep) Explain() runbook.Explanation {
	return runbook.NewExplanation(
		"Verify fallback access",
		"Opens an independent SSH connection with the new key and runs a no-op. Lockout-capable steps stay blocked until this succeeds.",
	)
}
