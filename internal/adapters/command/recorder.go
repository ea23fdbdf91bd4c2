package command

import (
	"context"
	"strings"
	"sync"

	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// Recorder wraps a CommandRunner and buffers everything executed
// through it. The executor drains the buffer around each step so the
// ledger records the raw text output of the step's action.
type Recorder struct {
	mu     sync.Mutex
	inner  ports.CommandRunner
	stdout strings.Builder
	stderr strings.Builder
}

// NewRecorder creates a Recorder around the given runner.
func NewRecorder(inner ports.CommandRunner) *Recorder {
	return &Recorder{inner: inner}
}

// Run executes through the wrapped runner and buffers the output.
func (r *Recorder) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	result, err := r.inner.Run(ctx, command, args...)
	r.capture(command, args, result)
	return result, err
}

// RunInput executes through the wrapped runner and buffers the output.
func (r *Recorder) RunInput(ctx context.Context, input string, command string, args ...string) (ports.CommandResult, error) {
	result, err := r.inner.RunInput(ctx, input, command, args...)
	r.capture(command, args, result)
	return result, err
}

// Drain returns and clears the buffered output.
func (r *Recorder) Drain() (stdout, stderr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stdout = r.stdout.String()
	stderr = r.stderr.String()
	r.stdout.Reset()
	r.stderr.Reset()
	return stdout, stderr
}

func (r *Recorder) capture(command string, args []string, result ports.CommandResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	header := "$ " + command
	if len(args) > 0 {
		header += " " + strings.Join(args, " ")
	}
	r.stdout.WriteString(header + "\n")
	if result.Stdout != "" {
		r.stdout.WriteString(result.Stdout)
		if !strings.HasSuffix(result.Stdout, "\n") {
			r.stdout.WriteString("\n")
		}
	}
	if result.Stderr != "" {
		r.stderr.WriteString(result.Stderr)
		if !strings.HasSuffix(result.Stderr, "\n") {
			r.stderr.WriteString("\n")
		}
	}
}

// Ensure Recorder implements ports.CommandRunner.
var _ ports.CommandRunner = (*Recorder)(nil)
