package gitrepo

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/goodCoderXD/cync/internal/model"
)

// Repo provides Git operations for one local repository by invoking
// the git CLI. The zero value is not usable; construct with NewRepo.
type Repo struct {
	// dir is the repository working directory, passed to git via -C.
	dir string
}

// NewRepo creates a Repo rooted at dir. The directory is not validated
// here; the first git invocation surfaces a missing or non-repo
// directory as an ExitGitError.
func NewRepo(dir string) *Repo {
	return &Repo{dir: dir}
}

// CurrentBranch returns the short name of the checked-out branch
// (e.g. "main"). A detached HEAD reports as "HEAD", which the
// reconciliation loop treats like any other branch name.
func (r *Repo) CurrentBranch() (string, error) {
	output, err := r.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// UntrackedFiles returns the paths of files in the working tree that
// git does not track, relative to the repository root. Standard
// ignores (.gitignore and friends) are respected, so ignored files are
// never re-uploaded after a remote clean.
func (r *Repo) UntrackedFiles() ([]string, error) {
	output, err := r.run("ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// PushForce force-pushes the given branch to origin. This is the only
// mutating local-side git operation cync performs, and the
// reconciliation routine aborts before touching any target when it
// fails.
func (r *Repo) PushForce(branch string) error {
	_, err := r.run("push", "--force", "origin", branch)
	return err
}

// run executes a git command in the repository directory, returning
// stdout on success. On failure it returns a model.CLIError with
// ExitGitError, including stderr in the message for diagnostics.
//
// The -C flag makes git change into the repository before doing
// anything, which avoids touching the process working directory.
func (r *Repo) run(args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}
