package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ledgeradapter "github.com/felixgeelhaar/hostprep/internal/adapters/ledger"
	"github.com/felixgeelhaar/hostprep/internal/app"
	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the target's recorded run history",
	Long: `Status reads the per-host ledger and shows the latest run's step
records. The ledger is what a re-run trusts, so this is also the
answer to "where did the last run stop".

Only the local ledger file is read; the target is never contacted, so
an unreachable host can still be inspected.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := buildOptions(false)
		if err != nil {
			printError(err)
			return err
		}

		repo := ledgeradapter.NewJSONLRepository(app.LedgerPathFor(opts.LedgerDir, hostFlag))
		entries, err := repo.Entries(cmd.Context())
		if err != nil {
			printError(err)
			return err
		}

		fmt.Printf("Ledger file: %s\n", repo.Path())
		app.NewPrinter(os.Stdout).PrintStatus(ledger.NewLedger(entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
