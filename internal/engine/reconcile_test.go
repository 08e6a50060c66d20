package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodCoderXD/cync/internal/model"
)

// resetChain is the per-target chained command reconciliation issues,
// for target root /r and branch main.
const resetChain = "cd /r && git fetch --all && git stash && git checkout main" +
	" && git reset --hard origin/main && git clean -f"

// TestReconcile_FullRun walks the complete happy path: branch changed
// from "dev" to "main", so the branch is pushed, every target gets the
// fetch/stash/checkout/reset/clean chain, untracked files are uploaded
// through the ordinary single-file path, and the engine records the
// new branch with suppression lowered.
func TestReconcile_FullRun(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r", "web2:/r2")
	e.lastBranch = "dev"
	git.branch = "main"
	git.untracked = []string{"notes.txt", "scripts/run.sh"}

	require.NoError(t, e.Reconcile())

	assert.Equal(t, []string{"main"}, git.pushes, "active branch force-pushed first")

	assert.Contains(t, remote.runs("web1"), resetChain, opsSummary(remote.ops))
	assert.Contains(t, remote.runs("web2"),
		"cd /r2 && git fetch --all && git stash && git checkout main"+
			" && git reset --hard origin/main && git clean -f")

	// Untracked files go through the normal upload path: presence
	// cache for the parent dir and chmod +x for the script.
	assert.Contains(t, remote.uploads("web1"), "/w/notes.txt -> /r/notes.txt")
	assert.Contains(t, remote.uploads("web1"), "/w/scripts/run.sh -> /r/scripts/run.sh")
	assert.Contains(t, remote.runs("web1"), "mkdir -p /r/scripts")
	assert.Contains(t, remote.runs("web1"), "chmod +x /r/scripts/run.sh")

	assert.False(t, e.suppress, "suppression lowered at the end")
	assert.Equal(t, "main", e.lastBranch)
}

// TestReconcile_PushOrderedBeforeTargets verifies the local push is
// dispatched before any remote command.
func TestReconcile_PushOrderedBeforeTargets(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r")
	git.branch = "main"
	e.lastBranch = "dev"

	require.NoError(t, e.Reconcile())
	require.NotEmpty(t, remote.ops)
	require.Len(t, git.pushes, 1)
	// The recorder only sees remote ops, so it suffices that the first
	// remote op is the reset chain, which Reconcile issues only after
	// PushForce returned.
	assert.Contains(t, remote.ops[0].Arg, "git fetch --all")
}

// TestReconcile_NoOpWhenBranchUnchanged verifies invoking
// reconciliation twice with no branch change makes the second call a
// full no-op.
func TestReconcile_NoOpWhenBranchUnchanged(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r")
	git.branch = "main"

	require.NoError(t, e.Reconcile())
	opsAfterFirst := len(remote.ops)
	pushesAfterFirst := len(git.pushes)

	require.NoError(t, e.Reconcile())
	assert.Len(t, remote.ops, opsAfterFirst, "second reconcile must not touch targets")
	assert.Len(t, git.pushes, pushesAfterFirst, "second reconcile must not push")
}

// TestReconcile_PushFailureAbortsBeforeTargets verifies the abort
// invariant: when the force-push fails, no target receives any
// command and the suppression flag ends lowered.
func TestReconcile_PushFailureAbortsBeforeTargets(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r", "web2:/r2")
	e.lastBranch = "dev"
	git.branch = "main"
	git.pushErr = errors.New("remote rejected")

	err := e.Reconcile()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitReconcileAborted, cliErr.Code)

	assert.Empty(t, remote.ops, "no target may be touched after a failed push")
	assert.False(t, e.suppress, "suppression must end lowered")
	assert.Equal(t, "dev", e.lastBranch, "failed reconciliation must not record the branch")
}

// TestReconcile_BranchReadFailure verifies a failing branch lookup
// aborts before anything else happens.
func TestReconcile_BranchReadFailure(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r")
	git.branchErr = errors.New("not a repository")

	require.Error(t, e.Reconcile())
	assert.Empty(t, remote.ops)
	assert.Len(t, git.pushes, 0)
}

// TestReconcile_UntrackedListFailure verifies the flag is lowered and
// the branch left unrecorded when the untracked enumeration fails
// after the targets were reset.
func TestReconcile_UntrackedListFailure(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r")
	e.lastBranch = "dev"
	git.branch = "main"
	git.untrackedErr = errors.New("index locked")

	require.Error(t, e.Reconcile())
	assert.Contains(t, remote.runs("web1"), resetChain, "targets were already reset")
	assert.False(t, e.suppress)
	assert.Equal(t, "dev", e.lastBranch, "a later retry must re-run reconciliation")
}

// TestReconcile_ChainDispatchFailureIsPerTarget verifies a target
// whose chain cannot even be dispatched does not stop the others, and
// reconciliation still completes.
func TestReconcile_ChainDispatchFailureIsPerTarget(t *testing.T) {
	e, remote, git := newTestEngine(t, "web1:/r", "web2:/r2")
	e.lastBranch = "dev"
	git.branch = "main"
	remote.runErr = errors.New("channel refused")

	require.NoError(t, e.Reconcile(), "chain failures are logged, not propagated")
	assert.Len(t, remote.runs("web1"), 1)
	assert.Len(t, remote.runs("web2"), 1, "second target still attempted")
	assert.Equal(t, "main", e.lastBranch)
}

// TestReconcile_ElevatedTargetChain verifies the chain honors the
// principal rules: wrapped under sudo and issued unwrapped as well.
func TestReconcile_ElevatedTargetChain(t *testing.T) {
	e, remote, git := newTestEngine(t, "deploy@web1:/r")
	e.lastBranch = "dev"
	git.branch = "main"

	require.NoError(t, e.Reconcile())

	runs := remote.runs("web1")
	require.Len(t, runs, 2, opsSummary(remote.ops))
	assert.Contains(t, runs[0], "sudo su deploy bash -c")
	assert.Contains(t, runs[0], "git reset --hard origin/main")
	assert.Equal(t, resetChain, runs[1])
}
