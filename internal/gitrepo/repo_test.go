package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary directory with an initialized Git
// repository containing a single commit on branch "main". It
// configures a local user identity so `git commit` works in CI
// environments without global git config.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runTestGit(t, dir, "init", "-b", "main")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Repo\n"), 0o644))
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")

	return dir
}

// runTestGit runs a git command in dir and fails the test on non-zero
// exit, keeping setup code concise.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// TestCurrentBranch verifies the short branch name is reported and
// follows checkouts.
func TestCurrentBranch(t *testing.T) {
	dir := setupTestRepo(t)
	repo := NewRepo(dir)

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	runTestGit(t, dir, "checkout", "-b", "feature-sync")

	branch, err = repo.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "feature-sync", branch)
}

// TestUntrackedFiles verifies untracked paths are listed relative to
// the repo root, tracked files are excluded, and .gitignore entries
// are respected.
func TestUntrackedFiles(t *testing.T) {
	dir := setupTestRepo(t)
	repo := NewRepo(dir)

	files, err := repo.UntrackedFiles()
	require.NoError(t, err)
	assert.Empty(t, files, "fresh repo has no untracked files")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts/deploy.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("notes.txt\n"), 0o644))

	files, err = repo.UntrackedFiles()
	require.NoError(t, err)
	assert.Contains(t, files, "scripts/deploy.sh")
	assert.Contains(t, files, ".gitignore")
	assert.NotContains(t, files, "notes.txt", "ignored files are not untracked")
	assert.NotContains(t, files, "README.md", "tracked files are not untracked")
}

// TestPushForce verifies a force push to a local bare origin moves the
// remote branch tip, including after a non-fast-forward rewrite.
func TestPushForce(t *testing.T) {
	dir := setupTestRepo(t)
	repo := NewRepo(dir)

	// A bare repository stands in for the remote.
	origin := t.TempDir()
	runTestGit(t, origin, "init", "--bare", "-b", "main")
	runTestGit(t, dir, "remote", "add", "origin", origin)

	require.NoError(t, repo.PushForce("main"))

	// Rewrite history so a plain push would be rejected.
	runTestGit(t, dir, "commit", "--amend", "-m", "rewritten")
	require.NoError(t, repo.PushForce("main"))

	localHead := runTestGit(t, dir, "rev-parse", "main")
	remoteHead := runTestGit(t, origin, "rev-parse", "main")
	assert.Equal(t, localHead, remoteHead, "remote tip should match the rewritten local tip")
}

// TestPushForce_NoRemote verifies the error path wraps into an
// ExitGitError CLIError.
func TestPushForce_NoRemote(t *testing.T) {
	repo := NewRepo(setupTestRepo(t))

	err := repo.PushForce("main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git push --force origin main failed")
}

// TestRun_NotARepo verifies git failures in a non-repository surface
// as errors rather than empty results.
func TestRun_NotARepo(t *testing.T) {
	repo := NewRepo(t.TempDir())

	_, err := repo.CurrentBranch()
	assert.Error(t, err)
}
