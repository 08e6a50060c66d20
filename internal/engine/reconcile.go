package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goodCoderXD/cync/internal/model"
)

// Reconcile forces every target onto the current local branch tip and
// repairs untracked-file drift. Steps are strictly ordered and
// short-circuit on failure:
//
//  1. no-op when the active branch equals the last reconciled one
//  2. raise the suppression flag
//  3. force-push the branch; on failure lower the flag and abort
//     before touching any target
//  4. per target, one chained fetch/stash/checkout/reset/clean command
//  5. upload every locally untracked file through the ordinary
//     single-file path
//  6. lower the flag and record the branch
//
// The per-target chains in step 4 are fire-and-forget: a chain that
// fails remotely short-circuits its own later steps via && but is
// visible only in logs, never as a returned error.
func (e *Engine) Reconcile() error {
	branch, err := e.git.CurrentBranch()
	if err != nil {
		return err
	}
	if branch == e.lastBranch {
		e.log.V(1).Info("branch unchanged, nothing to reconcile", "branch", branch)
		return nil
	}

	e.log.Info("branch changed, updating targets", "from", e.lastBranch, "to", branch)
	e.suppress = true

	if err := e.git.PushForce(branch); err != nil {
		e.suppress = false
		return model.WrapCLIError(model.ExitReconcileAborted,
			fmt.Sprintf("force-push of %s failed, targets untouched", branch), err)
	}

	chain := strings.Join([]string{
		"git fetch --all",
		"git stash",
		fmt.Sprintf("git checkout %s", branch),
		fmt.Sprintf("git reset --hard origin/%s", branch),
		"git clean -f",
	}, " && ")

	for _, target := range e.targets {
		// git checkout creates a tracking branch from the fetched
		// origin/<branch> when the target has never seen it.
		cmd := fmt.Sprintf("cd %s && %s", target.Root, chain)
		e.log.Info("reset target", "target", target.String(), "branch", branch)
		if err := e.runCommand(target, cmd); err != nil {
			e.log.Error(err, "reset chain not dispatched", "target", target.String())
		}
	}

	// The remote reset cannot recover files git never tracked; upload
	// them through the normal create path so presence-cache, principal
	// and executable rules apply uniformly.
	untracked, err := e.git.UntrackedFiles()
	if err != nil {
		e.suppress = false
		return err
	}
	for _, rel := range untracked {
		e.uploadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
	}

	e.suppress = false
	e.lastBranch = branch
	return nil
}
