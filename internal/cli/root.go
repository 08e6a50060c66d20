// Package cli implements the cobra-based commands for cync.
//
// The root command watches a local subtree and mirrors changes onto
// the given targets; the reset subcommand performs a one-shot branch
// reconciliation. This file defines the root command, global flags,
// logger construction, and error-to-exit-code translation.
package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/goodCoderXD/cync/internal/model"
)

// Global flag variables bound to cobra flags on the root command.
var (
	// jsonOutput switches error reporting to structured JSON for
	// machine consumption.
	jsonOutput bool

	// verbose raises the log verbosity so filtered/skipped events are
	// printed too.
	verbose bool

	// extensionsFlag, when set, overrides the configured extension
	// allow-list (comma-separated, no dots).
	extensionsFlag string

	// createIfMissing creates each target's remote root before
	// watching starts.
	createIfMissing bool

	// resetTargets runs one branch reconciliation before watching
	// starts.
	resetTargets bool
)

// Version, Commit, and Date are injected from the main package, which
// receives them from ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The
// root command itself runs the watch loop; reset is a subcommand.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cync <path> [target...]",
		Short: "Mirror a local subtree onto remote SSH targets in near-real time",
		Long: `cync watches a local directory and replicates every relevant change
onto one or more remote targets over SSH, preserving the relative
directory structure under each target's root.

Targets use the grammar [[user@]host:]remote_root. A bare path is
mirrored onto localhost; a user@ prefix makes remote commands also run
under that principal. Short target aliases can be configured in
~/.config/cync/config.yaml.

Example:
  cync . computelab:/home/scratch/computelab/`,

		Args: cobra.MinimumNArgs(1),

		// Errors are formatted by Execute (text or JSON), not cobra.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args[0], args[1:])
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output errors in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&extensionsFlag, "extensions", "e", "",
		"Comma-separated extension allow-list overriding the configured one")

	rootCmd.Flags().BoolVarP(&createIfMissing, "create-if-missing", "c", false,
		"Create each target's remote root before watching")
	rootCmd.Flags().BoolVar(&resetTargets, "reset-targets", false,
		"Reconcile every target to the local branch tip before watching")

	rootCmd.AddCommand(NewResetCommand())

	return rootCmd
}

// Execute runs the root command and translates errors into process
// exit codes. CLIError values carry their own code; anything else
// exits 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// newLogger builds the stderr logger used across the engine and
// watcher. Verbosity 1 carries the filtered/skipped-event lines that
// are noise unless the user asked for them.
func newLogger() logr.Logger {
	if verbose {
		stdr.SetVerbosity(1)
	}
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// printError outputs an error in the format selected by --json.
// Errors go to stderr in both modes; stdout stays clean.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}
