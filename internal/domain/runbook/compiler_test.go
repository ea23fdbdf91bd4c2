package runbook

import (
	"errors"
	"fmt"
	"testing"
)

// mockProvider compiles a fixed set of steps.
type mockProvider struct {
	name  string
	steps []Step
	err   error
}

func (p *mockProvider) Name() string { return p.name }
func (p *mockProvider) Compile(_ CompileContext) ([]Step, error) {
	return p.steps, p.err
}

func TestCompiler_Compile(t *testing.T) {
	c := NewCompiler()
	c.RegisterProvider(&mockProvider{
		name:  "apt",
		steps: []Step{newMockStep("apt:update"), newMockStep("apt:package:ufw", "apt:update")},
	})

	graph, err := c.Compile(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if graph.Len() != 2 {
		t.Errorf("graph Len() = %d, want 2", graph.Len())
	}
}

func TestCompiler_Compile_ProviderError(t *testing.T) {
	c := NewCompiler()
	c.RegisterProvider(&mockProvider{name: "apt", err: fmt.Errorf("bad section")})

	_, err := c.Compile(map[string]interface{}{})
	if err == nil {
		t.Fatal("Compile() should fail when a provider fails")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error %v is not a StepError", err)
	}
	if stepErr.Code != ErrCodeProviderFailed {
		t.Errorf("Code = %q, want %q", stepErr.Code, ErrCodeProviderFailed)
	}
}

func TestCompiler_Compile_CycleFailsBeforeExecution(t *testing.T) {
	c := NewCompiler()
	c.RegisterProvider(&mockProvider{
		name: "commands",
		steps: []Step{
			newMockStep("commands:a", "commands:b"),
			newMockStep("commands:b", "commands:a"),
		},
	})

	_, err := c.Compile(map[string]interface{}{})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("Compile() error = %v, want %v", err, ErrCyclicDependency)
	}
}

func TestCompileContext_GetSection(t *testing.T) {
	ctx := NewCompileContext(map[string]interface{}{
		"apt": map[string]interface{}{"update": true},
	})

	if ctx.GetSection("apt") == nil {
		t.Error("GetSection(apt) should return the section")
	}
	if ctx.GetSection("missing") != nil {
		t.Error("GetSection(missing) should return nil")
	}
}

func TestCompileContext_HasAptPackage(t *testing.T) {
	ctx := NewCompileContext(map[string]interface{}{
		"apt": map[string]interface{}{
			"packages": []interface{}{"ufw", "fail2ban"},
		},
	})

	if !ctx.HasAptPackage("ufw") {
		t.Error("HasAptPackage(ufw) should be true")
	}
	if ctx.HasAptPackage("nginx") {
		t.Error("HasAptPackage(nginx) should be false")
	}

	empty := NewCompileContext(nil)
	if empty.HasAptPackage("ufw") {
		t.Error("HasAptPackage on empty config should be false")
	}
}
