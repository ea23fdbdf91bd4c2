package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostprep/internal/app"
)

var (
	applyDryRun    bool
	applyReverify  bool
	applyOnly      []string
	applyConfirmed []string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the runbook to the target",
	Long: `Apply plans and then executes the runbook against the target.
Already-satisfied steps are skipped, every action's outcome is
verified against observable machine state, and each step is recorded
in the per-host ledger.

Connectivity-risk steps (sshd hardening, network changes) execute
only after fallback access has been verified and the step has been
explicitly confirmed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := buildOptions(applyReverify)
		if err != nil {
			printError(err)
			return err
		}

		hp, err := app.New(opts)
		if err != nil {
			printError(err)
			return err
		}
		defer func() { _ = hp.Close() }()

		plan, err := hp.Plan(cmd.Context(), runbookFile, applyOnly)
		if err != nil {
			printError(err)
			return err
		}

		printer := app.NewPrinter(os.Stdout)
		printer.PrintPlan(plan)

		confirmed := applyConfirmed
		if !applyDryRun {
			risky := pendingConfirmation(plan, confirmed)
			if len(risky) > 0 && !yesFlag {
				if !confirmConnectivityRisk(risky) {
					fmt.Println("Aborted. Connectivity-risk steps left unconfirmed.")
					return nil
				}
				confirmed = append(confirmed, risky...)
			}
		}

		result, err := hp.Apply(cmd.Context(), plan, app.ApplyOptions{
			DryRun:     applyDryRun,
			ConfirmAll: yesFlag,
			Confirmed:  confirmed,
		})
		if err != nil {
			printError(err)
			return err
		}

		printer.PrintRunResult(result, applyDryRun)

		if !applyDryRun && !result.Success() {
			return fmt.Errorf("run %s ended %s", result.RunID, result.Status)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "simulate: no action runs, no ledger entry is written")
	applyCmd.Flags().BoolVar(&applyReverify, "reverify", false, "re-probe every step instead of trusting the ledger")
	applyCmd.Flags().StringArrayVar(&applyOnly, "only", nil, "restrict to these steps and their dependencies (repeatable)")
	applyCmd.Flags().StringArrayVar(&applyConfirmed, "confirm", nil, "pre-confirm a connectivity-risk step (repeatable)")
	rootCmd.AddCommand(applyCmd)
}
