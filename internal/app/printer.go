package app

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/hostprep/internal/domain/execution"
	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
)

// Printer renders plans, run results, and ledger history for the
// terminal.
type Printer struct {
	out io.Writer

	title     lipgloss.Style
	satisfied lipgloss.Style
	apply     lipgloss.Style
	unknown   lipgloss.Style
	failed    lipgloss.Style
	skipped   lipgloss.Style
	risk      lipgloss.Style
	dim       lipgloss.Style
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:       out,
		title:     lipgloss.NewStyle().Bold(true),
		satisfied: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		apply:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		unknown:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		risk:      lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// PrintPlan renders the execution plan.
func (p *Printer) PrintPlan(plan *execution.Plan) {
	p.printf("\n%s\n\n", p.title.Render("Hostprep Plan"))

	if plan.IsEmpty() {
		p.printf("Runbook compiled to no steps.\n")
		return
	}

	for _, entry := range plan.Entries() {
		step := entry.Step()
		var marker, note string
		switch {
		case entry.Probe() == runbook.ProbeSatisfied && entry.Seeded():
			marker = p.satisfied.Render("✓")
			note = p.dim.Render(" (ledger)")
		case entry.Probe() == runbook.ProbeSatisfied:
			marker = p.satisfied.Render("✓")
		case entry.Probe() == runbook.ProbeUnsatisfied:
			marker = p.apply.Render("+")
		default:
			marker = p.unknown.Render("?")
			if entry.ProbeErr() != nil {
				note = p.dim.Render(" (probe failed)")
			}
		}

		riskTag := ""
		if step.Risk() == runbook.RiskConnectivity {
			riskTag = " " + p.risk.Render("[connectivity-risk]")
		}

		p.printf("  %s %s%s%s\n", marker, step.ID().String(), riskTag, note)
		if detail := step.Explain().Summary(); detail != "" {
			p.printf("      %s\n", p.dim.Render(detail))
		}
	}

	summary := plan.Summary()
	p.printf("\nSteps: %d total, %d to apply, %d satisfied, %d unknown\n",
		summary.Total, summary.ToApply, summary.Satisfied, summary.Unknown)

	if risky := plan.ConnectivityRiskSteps(); len(risky) > 0 {
		p.printf("\n%s\n", p.risk.Render("Connectivity-risk steps require verified fallback access and confirmation:"))
		for _, id := range risky {
			p.printf("  %s\n", id)
		}
	}
}

// PrintRunResult renders the outcome of an apply.
func (p *Printer) PrintRunResult(result execution.RunResult, dryRun bool) {
	header := "Apply"
	if dryRun {
		header = "Apply (dry run)"
	}
	p.printf("\n%s\n\n", p.title.Render(header))

	for _, r := range result.Results {
		var marker string
		switch r.Status() {
		case ledger.StatusSatisfied:
			marker = p.satisfied.Render("✓")
		case ledger.StatusSucceeded:
			marker = p.satisfied.Render("✓")
		case ledger.StatusFailed:
			marker = p.failed.Render("✗")
		case ledger.StatusSkipped:
			marker = p.skipped.Render("-")
		default:
			marker = "?"
		}

		line := fmt.Sprintf("  %s %s", marker, r.StepID().String())
		switch {
		case r.Status() == ledger.StatusSkipped && r.BlockedBy() != "":
			line += p.dim.Render(fmt.Sprintf(" (blocked by %s)", r.BlockedBy()))
		case r.Status() == ledger.StatusFailed && r.Failure() != execution.FailureNone:
			line += p.dim.Render(fmt.Sprintf(" (%s)", r.Failure()))
		case r.Simulated():
			line += p.dim.Render(" (would apply)")
		}
		p.printf("%s\n", line)

		if r.Error() != nil && r.Status() == ledger.StatusFailed {
			p.printf("      %s\n", p.dim.Render(r.Error().Error()))
		}
	}

	p.printf("\nRun %s: %s\n", result.RunID, string(result.Status))
	if result.Err != nil {
		p.printf("%s\n", p.failed.Render(fmt.Sprintf("Run aborted: %s", result.Err)))
	}
}

// PrintStatus renders ledger history for the target.
func (p *Printer) PrintStatus(history *ledger.Ledger) {
	p.printf("\n%s\n\n", p.title.Render("Ledger"))

	if history.Len() == 0 {
		p.printf("No recorded runs for this host.\n")
		return
	}

	latest := history.LatestRunID()
	for _, entry := range history.RunEntries(latest) {
		var marker string
		switch entry.Status {
		case ledger.StatusSatisfied, ledger.StatusSucceeded:
			marker = p.satisfied.Render("✓")
		case ledger.StatusFailed:
			marker = p.failed.Render("✗")
		case ledger.StatusSkipped:
			marker = p.skipped.Render("-")
		default:
			marker = p.dim.Render("…")
		}
		line := fmt.Sprintf("  %s %-40s %s", marker, entry.StepID, entry.Status)
		if entry.BlockedBy != "" {
			line += p.dim.Render(fmt.Sprintf("  blocked by %s", entry.BlockedBy))
		}
		p.printf("%s\n", line)
	}

	p.printf("\nRuns recorded: %d (latest %s)\n", len(history.RunIDs()), latest)
}

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}
