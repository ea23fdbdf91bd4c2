package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostprep/internal/adapters/command"
	"github.com/felixgeelhaar/hostprep/internal/adapters/logging"
	"github.com/felixgeelhaar/hostprep/internal/app"
	"github.com/felixgeelhaar/hostprep/internal/domain/config"
	"github.com/felixgeelhaar/hostprep/internal/domain/ledger"
	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
)

var (
	// Global flags
	runbookFile string
	hostFlag    string
	userFlag    string
	identity    string
	knownHosts  string
	ledgerDir   string
	timeoutFlag string
	verbose     bool
	yesFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "hostprep",
	Short: "Idempotent Ubuntu server bootstrap",
	Long: `Hostprep turns a server provisioning runbook into a repeatable
plan/apply workflow.

Every step is bracketed by machine-state probes: already-satisfied
steps are skipped, outcomes are verified against observable state
rather than exit codes, and steps that can cut off your own SSH
session stay blocked until a fallback access path is proven.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&runbookFile, "runbook", "f", "hostprep.yaml", "runbook file")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "local", "target host (\"local\" or an SSH destination)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "SSH user (default from settings)")
	rootCmd.PersistentFlags().StringVar(&identity, "identity", "", "SSH identity file")
	rootCmd.PersistentFlags().StringVar(&knownHosts, "known-hosts", "", "known_hosts file for host key verification")
	rootCmd.PersistentFlags().StringVar(&ledgerDir, "ledger-dir", "", "directory for per-host ledger files")
	rootCmd.PersistentFlags().StringVar(&timeoutFlag, "timeout", "", "per-step action timeout (e.g. 15m)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "auto-confirm all prompts")

	rootCmd.AddCommand(versionCmd)
}

// buildOptions resolves settings (defaults, then the settings file,
// then flags) into app options.
func buildOptions(reverify bool) (app.Options, error) {
	settings, err := config.LoadSettings(config.DefaultSettingsPath())
	if err != nil {
		return app.Options{}, err
	}

	dir := settings.LedgerDir
	if ledgerDir != "" {
		dir = ledgerDir
	}

	timeout, err := settings.Timeout()
	if err != nil {
		return app.Options{}, err
	}
	if timeoutFlag != "" {
		timeout, err = time.ParseDuration(timeoutFlag)
		if err != nil {
			return app.Options{}, fmt.Errorf("invalid --timeout %q: %w", timeoutFlag, err)
		}
	}

	user := settings.SSH.User
	if userFlag != "" {
		user = userFlag
	}
	identityFile := settings.SSH.IdentityFile
	if identity != "" {
		identityFile = identity
	}
	knownHostsFile := settings.SSH.KnownHosts
	if knownHosts != "" {
		knownHostsFile = knownHosts
	}

	policy := ledger.ReverifyPolicy(settings.ReverifyPolicy)
	if reverify {
		policy = ledger.PolicyAlwaysReverify
	}

	var logger ports.Logger = logging.NewNopLogger()
	if verbose {
		logger = logging.NewConsoleLogger(
			logging.WithOutput(os.Stderr),
			logging.WithLevel(ports.LevelDebug),
		)
	}

	return app.Options{
		Host: hostFlag,
		SSH: command.SSHConfig{
			Host:           hostFlag,
			Port:           settings.SSH.Port,
			User:           user,
			IdentityFile:   identityFile,
			KnownHostsFile: knownHostsFile,
		},
		LedgerDir:      dir,
		Timeout:        timeout,
		ReverifyPolicy: policy,
		Logger:         logger,
	}, nil
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var stepErr *runbook.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Format()
	}

	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
