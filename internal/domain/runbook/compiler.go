package runbook

import "fmt"

// Provider compiles one section of a runbook into executable steps.
// Each provider handles a specific concern (apt, ufw, sshd, ...).
type Provider interface {
	// Name returns the provider's identifier and runbook section key.
	Name() string

	// Compile transforms its configuration section into steps.
	// Cross-provider ordering is expressed through Step.DependsOn().
	Compile(ctx CompileContext) ([]Step, error)
}

// CompileContext provides the parsed runbook to providers during
// compilation.
type CompileContext struct {
	config map[string]interface{}
}

// NewCompileContext creates a CompileContext for the given runbook data.
func NewCompileContext(config map[string]interface{}) CompileContext {
	return CompileContext{config: config}
}

// Config returns the full runbook document.
func (c CompileContext) Config() map[string]interface{} {
	return c.config
}

// GetSection returns a section of the runbook by key.
// Returns nil if the section doesn't exist or isn't a map.
func (c CompileContext) GetSection(key string) map[string]interface{} {
	if c.config == nil {
		return nil
	}
	section, ok := c.config[key]
	if !ok {
		return nil
	}
	sectionMap, ok := section.(map[string]interface{})
	if !ok {
		return nil
	}
	return sectionMap
}

// HasAptPackage reports whether the apt section lists the given
// package. Providers use this to depend on their tool's install step
// only when the runbook actually installs it.
func (c CompileContext) HasAptPackage(name string) bool {
	section := c.GetSection("apt")
	if section == nil {
		return false
	}
	packages, ok := section["packages"].([]interface{})
	if !ok {
		return false
	}
	for _, p := range packages {
		if s, ok := p.(string); ok && s == name {
			return true
		}
	}
	return false
}

// Compiler turns a runbook document into a validated step graph by
// invoking each registered provider in order.
type Compiler struct {
	providers []Provider
}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{providers: make([]Provider, 0)}
}

// RegisterProvider adds a provider. Providers run in registration
// order, which also fixes the declaration order of their steps.
func (c *Compiler) RegisterProvider(provider Provider) {
	c.providers = append(c.providers, provider)
}

// Providers returns all registered providers.
func (c *Compiler) Providers() []Provider {
	return c.providers
}

// Compile transforms a runbook into a validated Graph.
// Returns an error if any provider fails, a step ID is duplicated, a
// dependency is missing, or the dependency graph contains a cycle.
// All of these are caught before any mutation occurs.
func (c *Compiler) Compile(config map[string]interface{}) (*Graph, error) {
	ctx := NewCompileContext(config)
	graph := NewGraph()

	for _, provider := range c.providers {
		steps, err := provider.Compile(ctx)
		if err != nil {
			return nil, NewProviderFailedError(provider.Name(), err)
		}
		for _, step := range steps {
			if err := graph.Add(step); err != nil {
				return nil, fmt.Errorf("provider %q: %w", provider.Name(), err)
			}
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	// Surface cycles now, before anything executes.
	if _, err := graph.TopologicalSort(); err != nil {
		return nil, err
	}

	return graph, nil
}
