// Package command provides command execution adapters for local and
// remote targets.
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// LocalRunner executes commands on the machine running hostprep.
// Used when the target is the local host (e.g. provisioning over an
// already-open console session).
type LocalRunner struct{}

// NewLocalRunner creates a new LocalRunner.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// Run executes a command and returns the result.
func (r *LocalRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	return r.RunInput(ctx, "", command, args...)
}

// RunInput executes a command with data piped to stdin.
func (r *LocalRunner) RunInput(ctx context.Context, input string, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// Ensure LocalRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*LocalRunner)(nil)
