// Package app provides the main application logic for hostprep.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/hostprep/internal/adapters/command"
	ledgeradapter "github.com/felixgeelhaar/hostprep/internal/adapters/ledger"
	"github.com/felixgeelhaar/hostprep/internal/adapters/logging"
	"github.com/felixgeelhaar/hostprep/internal/domain/config"
	"github.com/felixgeelhaar/hostprep/internal/domain/execution"
	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/provider/access"
	"github.com/felixgeelhaar/hostprep/internal/provider/apt"
	rawcmd "github.com/felixgeelhaar/hostprep/internal/provider/command"
	"github.com/felixgeelhaar/hostprep/internal/provider/fail2ban"
	"github.com/felixgeelhaar/hostprep/internal/provider/netplan"
	"github.com/felixgeelhaar/hostprep/internal/provider/sshd"
	"github.com/felixgeelhaar/hostprep/internal/provider/ubuntupro"
	"github.com/felixgeelhaar/hostprep/internal/provider/ufw"
)

// Options configure a Hostprep instance.
type Options struct {
	// Host is the target. Empty or "local" runs commands on the local
	// machine; anything else is an SSH destination.
	Host string
	// SSH holds connection settings for remote targets.
	SSH command.SSHConfig
	// LedgerDir is the directory holding per-host ledger files.
	LedgerDir string
	// Timeout bounds a single step action; zero uses the default.
	Timeout time.Duration
	// ReverifyPolicy controls ledger seeding during planning.
	ReverifyPolicy ledger.ReverifyPolicy
	// Logger receives structured progress output; nil disables it.
	Logger ports.Logger
}

// ApplyOptions configure a single apply invocation.
type ApplyOptions struct {
	DryRun     bool
	ConfirmAll bool
	Confirmed  []string
}

// Hostprep is the main application orchestrator: it wires the runbook
// loader, providers, planner, executor, and ledger for one target host.
type Hostprep struct {
	loader   *config.Loader
	compiler *runbook.Compiler
	planner  *execution.Planner
	executor *execution.Executor
	recorder *command.Recorder
	repo     *ledgeradapter.JSONLRepository
	remote   *command.SSHRunner
	logger   ports.Logger
}

// New creates a Hostprep for the given target. Remote targets are
// dialed immediately so connection problems surface before planning.
func New(opts Options) (*Hostprep, error) {
	var (
		runner   ports.CommandRunner
		remote   *command.SSHRunner
		verifier ports.AccessVerifier
	)
	if isLocal(opts.Host) {
		runner = command.NewLocalRunner()
	} else {
		sshRunner, err := command.DialSSH(opts.SSH)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", opts.Host, err)
		}
		runner = sshRunner
		remote = sshRunner
		verifier = command.NewKeyProbe(opts.SSH)
	}

	return assemble(opts, runner, remote, verifier), nil
}

// assemble wires the compiler, planner, executor, and ledger around an
// already-connected runner.
func assemble(opts Options, runner ports.CommandRunner, remote *command.SSHRunner, verifier ports.AccessVerifier) *Hostprep {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	recorder := command.NewRecorder(runner)
	fallbackPossible := verifier != nil

	// Registration order fixes the declaration order of steps, which in
	// turn fixes tie-breaking in the topological sort.
	comp := runbook.NewCompiler()
	comp.RegisterProvider(apt.NewProvider(recorder))
	comp.RegisterProvider(ufw.NewProvider(recorder))
	comp.RegisterProvider(fail2ban.NewProvider(recorder))
	comp.RegisterProvider(access.NewProvider(recorder, verifier))
	comp.RegisterProvider(sshd.NewProvider(recorder, fallbackPossible))
	comp.RegisterProvider(netplan.NewProvider(recorder, fallbackPossible))
	comp.RegisterProvider(ubuntupro.NewProvider(recorder))
	comp.RegisterProvider(rawcmd.NewProvider(recorder))

	policy := opts.ReverifyPolicy
	if policy == "" {
		policy = ledger.PolicyTrustLedger
	}

	repo := ledgeradapter.NewJSONLRepository(LedgerPathFor(opts.LedgerDir, opts.Host))

	return &Hostprep{
		loader:   config.NewLoader(),
		compiler: comp,
		planner:  execution.NewPlanner().WithPolicy(policy),
		executor: execution.NewExecutor().WithTimeout(opts.Timeout),
		recorder: recorder,
		repo:     repo,
		remote:   remote,
		logger:   logger,
	}
}

// Close releases the remote connection, if any.
func (h *Hostprep) Close() error {
	if h.remote != nil {
		return h.remote.Close()
	}
	return nil
}

// LedgerPath returns the ledger file backing this target.
func (h *Hostprep) LedgerPath() string {
	return h.repo.Path()
}

// Compile loads the runbook and compiles it into a validated step
// graph. When only is non-empty the graph is restricted to those steps
// plus their transitive dependencies.
func (h *Hostprep) Compile(ctx context.Context, runbookPath string, only []string) (*runbook.Graph, error) {
	doc, err := h.loader.Load(runbookPath)
	if err != nil {
		return nil, err
	}

	graph, err := h.compiler.Compile(doc)
	if err != nil {
		return nil, err
	}

	if len(only) > 0 {
		ids := make([]runbook.StepID, 0, len(only))
		for _, raw := range only {
			id, err := runbook.NewStepID(raw)
			if err != nil {
				return nil, fmt.Errorf("--only %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		graph, err = graph.Subgraph(ids)
		if err != nil {
			return nil, err
		}
	}

	h.logger.Info(ctx, "runbook compiled",
		ports.F("path", runbookPath),
		ports.F("steps", graph.Len()))
	return graph, nil
}

// Plan compiles the runbook and probes every step against the target,
// seeding from the prior ledger per the reverify policy.
func (h *Hostprep) Plan(ctx context.Context, runbookPath string, only []string) (*execution.Plan, error) {
	graph, err := h.Compile(ctx, runbookPath, only)
	if err != nil {
		return nil, err
	}

	prior, err := h.History(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := h.planner.Plan(ctx, graph, prior)
	if err != nil {
		return nil, err
	}

	summary := plan.Summary()
	h.logger.Info(ctx, "plan ready",
		ports.F("total", summary.Total),
		ports.F("to_apply", summary.ToApply),
		ports.F("satisfied", summary.Satisfied),
		ports.F("unknown", summary.Unknown))
	return plan, nil
}

// Apply executes a plan against the target and returns the run result.
func (h *Hostprep) Apply(ctx context.Context, plan *execution.Plan, opts ApplyOptions) (execution.RunResult, error) {
	prior, err := h.History(ctx)
	if err != nil {
		return execution.RunResult{}, err
	}

	executor := h.executor.
		WithDryRun(opts.DryRun).
		WithConfirmAll(opts.ConfirmAll).
		WithConfirmed(opts.Confirmed...).
		WithLedger(h.repo, prior).
		WithOutputTap(h.recorder)

	result := executor.Execute(ctx, plan)
	h.logger.Info(ctx, "run finished",
		ports.F("run_id", result.RunID),
		ports.F("status", string(result.Status)))
	return result, nil
}

// History reads the target's recorded ledger.
func (h *Hostprep) History(ctx context.Context) (*ledger.Ledger, error) {
	entries, err := h.repo.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return ledger.NewLedger(entries), nil
}

func isLocal(host string) bool {
	return host == "" || host == "local"
}

// LedgerPathFor derives the per-host ledger file.
func LedgerPathFor(dir, host string) string {
	label := host
	if isLocal(host) {
		label = "local"
	}
	return filepath.Join(dir, label+".jsonl")
}
