package engine

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/goodCoderXD/cync/internal/model"
	"github.com/goodCoderXD/cync/internal/sshx"
)

// Remote is the remote-access collaborator: fire-and-forget command
// execution and blocking file upload, per host. Satisfied by
// sshx.Pool; tests substitute recorders.
type Remote interface {
	// Run starts command on host without capturing its exit status.
	Run(host, command string) error

	// Upload copies localPath to remotePath on host, blocking until
	// the transfer completes or fails.
	Upload(host, localPath, remotePath string) error
}

// Branches is the local version-control collaborator used by branch
// reconciliation. Satisfied by gitrepo.Repo.
type Branches interface {
	CurrentBranch() (string, error)
	UntrackedFiles() ([]string, error)
	PushForce(branch string) error
}

// Options carries the classifier and dispatcher tunables resolved from
// configuration.
type Options struct {
	// Extensions is the allow-list of file extensions (without dot)
	// that events must match.
	Extensions []string

	// Ignore lists extra path markers rejected in addition to the
	// fixed blacklist.
	Ignore []string

	// ScriptSuffix marks uploads that receive a follow-up chmod +x.
	ScriptSuffix string
}

// Engine is the replication core. It classifies incoming events, fans
// accepted ones out across every configured target, and runs branch
// reconciliation on demand.
type Engine struct {
	// root is the absolute local watch root. Event paths are
	// relativized against it.
	root string

	targets []model.Target
	remote  Remote
	git     Branches
	opts    Options
	log     logr.Logger

	// dirs is the per-host remote directory presence cache.
	dirs *sshx.DirCache

	// suppress, while set, makes the classifier reject every incoming
	// event. Raised for the duration of a reconciliation.
	suppress bool

	// lastBranch is the branch name the targets were last reconciled
	// to. Empty until the first reconciliation.
	lastBranch string
}

// New constructs an Engine mirroring root onto targets.
func New(root string, targets []model.Target, remote Remote, git Branches, opts Options, log logr.Logger) *Engine {
	e := &Engine{
		root:    root,
		targets: targets,
		remote:  remote,
		git:     git,
		opts:    opts,
		log:     log,
	}
	e.dirs = sshx.NewDirCache(e.remoteMkdir)
	return e
}

// CreateMissingRoots issues a recursive create for every target's
// remote root, for first runs against hosts that do not have the
// mirror directory yet.
func (e *Engine) CreateMissingRoots() error {
	for _, target := range e.targets {
		if err := e.dirs.Ensure(target, "."); err != nil {
			return err
		}
	}
	return nil
}

// remoteMkdir is the presence cache's creation callback: one recursive
// mkdir for relDir under the target root, through the same
// principal-aware command path as every other mutation.
func (e *Engine) remoteMkdir(target model.Target, relDir string) error {
	mapped := remotePath(target.Root, relDir)
	e.log.Info("mkdir", "target", target.String(), "path", mapped)
	return e.runCommand(target, fmt.Sprintf("mkdir -p %s", mapped))
}

// runCommand issues a remote command for one target. For targets with
// a non-default principal the command is issued once wrapped under
// privilege elevation AND once unwrapped; both execute. That double
// execution is inherited behavior kept for deployment parity (see
// DESIGN.md) — do not fold the two calls without a product decision.
func (e *Engine) runCommand(target model.Target, command string) error {
	if target.Elevated() {
		wrapped := fmt.Sprintf("sudo su %s bash -c %q", target.Principal, command)
		if err := e.remote.Run(target.Host, wrapped); err != nil {
			return err
		}
	}
	return e.remote.Run(target.Host, command)
}
