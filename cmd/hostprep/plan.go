package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostprep/internal/app"
)

var planOnly []string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Probe the target and show what apply would do",
	Long: `Plan compiles the runbook, probes each step's precondition against
the target machine, and prints the resulting execution plan. Nothing
is mutated and no ledger entry is written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := buildOptions(false)
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

		plan, err := hp.Plan(cmd.Context(), runbookFile, planOnly)
		if err != nil {
			printError(err)
			return err
		}

		app.NewPrinter(os.Stdout).PrintPlan(plan)
		return nil
	},
}

func init() {
	planCmd.Flags().StringArrayVar(&planOnly, "only", nil, "restrict to these steps and their dependencies (repeatable)")
	rootCmd.AddCommand(planCmd)
}
