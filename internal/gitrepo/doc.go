// Package gitrepo provides the local version-control operations cync
// needs for branch reconciliation: the active branch name, the
// untracked file list, and a force-push of the active branch.
//
// All Git operations are performed via os/exec calls to the git
// binary, rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Sidesteps go-git's gaps around porcelain output and push semantics
//
// Errors from git commands are wrapped in model.CLIError with
// ExitGitError for CLI exit-code handling.
package gitrepo
