// Package cli — reset.go implements the "cync reset" subcommand.
//
// reset performs one branch reconciliation and exits: force-push the
// active local branch, move every target onto its tip, and re-upload
// untracked files. It is the standalone form of the --reset-targets
// startup flag.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/goodCoderXD/cync/internal/engine"
	"github.com/goodCoderXD/cync/internal/gitrepo"
	"github.com/goodCoderXD/cync/internal/sshx"
)

// NewResetCommand creates the "reset" cobra command.
func NewResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <path> [target...]",
		Short: "Force every target onto the current local branch tip",
		Long: `Force-push the active branch of the repository at <path>, then reset
each target's checkout to the pushed tip (fetch, stash, checkout,
hard-reset, clean) and re-upload locally untracked files.

The push happens first: if it fails, no target is touched.

Examples:
  cync reset . computelab:/home/scratch/computelab/
  cync reset ~/project deploy@web1:/srv/app`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(args[0], args[1:])
		},
	}
}

// runReset is the main logic for the reset command: a short-lived
// engine with no watcher attached.
func runReset(pathArg string, targetArgs []string) error {
	root, settings, targets, err := resolveRun(pathArg, targetArgs)
	if err != nil {
		return err
	}

	logger := newLogger()

	pool := sshx.NewPool()
	defer pool.CloseAll()

	eng := engine.New(root, targets, pool, gitrepo.NewRepo(root), engineOptions(settings), logger)
	return eng.Reconcile()
}
