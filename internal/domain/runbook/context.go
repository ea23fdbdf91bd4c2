package runbook

import "context"

// RunContext carries execution context through Probe, Apply, and Verify.
type RunContext struct {
	ctx context.Context
}

// NewRunContext creates a new RunContext with the given context.
func NewRunContext(ctx context.Context) RunContext {
	return RunContext{ctx: ctx}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}
