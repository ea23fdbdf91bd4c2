// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// CommandResult represents the result of executing a shell command on
// the target machine.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
	Input   string
}

// CommandRunner executes shell commands against the target machine.
// The same interface drives a local shell and a remote host over SSH;
// steps never know which one they are talking to.
type CommandRunner interface {
	// Run executes a command and captures its output and exit status.
	// A non-zero exit is reported through CommandResult, not the error;
	// the error is reserved for failures to run the command at all.
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)

	// RunInput is Run with data piped to the command's stdin. Used to
	// write remote files through tee without shell quoting.
	RunInput(ctx context.Context, input string, command string, args ...string) (CommandResult, error)
}

// AccessVerifier proves key-based access to the target from the
// outside. The target machine cannot self-certify that a new key works
// while the operator's own session is the one under test, so
// verification opens an independent connection.
type AccessVerifier interface {
	// VerifyAccess opens a fresh connection using only the fallback
	// credential and runs a no-op. A nil return means the fallback
	// path is usable.
	VerifyAccess(ctx context.Context) error
}
