package engine

import (
	"fmt"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/goodCoderXD/cync/internal/model"
)

// remoteOp records one remote operation in dispatch order.
// Kind is "run" or "upload".
type remoteOp struct {
	Kind string
	Host string
	Arg  string // the command, or "local -> remote" for uploads
}

// remoteRecorder is a fake Remote that records every operation and
// optionally fails them, so tests can assert on exact fanout.
type remoteRecorder struct {
	ops       []remoteOp
	runErr    error
	uploadErr error
}

func (r *remoteRecorder) Run(host, command string) error {
	r.ops = append(r.ops, remoteOp{Kind: "run", Host: host, Arg: command})
	return r.runErr
}

func (r *remoteRecorder) Upload(host, localPath, remotePath string) error {
	r.ops = append(r.ops, remoteOp{Kind: "upload", Host: host, Arg: localPath + " -> " + remotePath})
	return r.uploadErr
}

// runs returns the recorded commands for one host, in order.
func (r *remoteRecorder) runs(host string) []string {
	var out []string
	for _, op := range r.ops {
		if op.Kind == "run" && op.Host == host {
			out = append(out, op.Arg)
		}
	}
	return out
}

// uploads returns the recorded uploads for one host, in order.
func (r *remoteRecorder) uploads(host string) []string {
	var out []string
	for _, op := range r.ops {
		if op.Kind == "upload" && op.Host == host {
			out = append(out, op.Arg)
		}
	}
	return out
}

// fakeGit is a canned Branches implementation for reconciliation
// tests.
type fakeGit struct {
	branch       string
	branchErr    error
	untracked    []string
	untrackedErr error
	pushErr      error
	pushes       []string
}

func (g *fakeGit) CurrentBranch() (string, error) {
	return g.branch, g.branchErr
}

func (g *fakeGit) UntrackedFiles() ([]string, error) {
	return g.untracked, g.untrackedErr
}

func (g *fakeGit) PushForce(branch string) error {
	if g.pushErr != nil {
		return g.pushErr
	}
	g.pushes = append(g.pushes, branch)
	return nil
}

// testOptions is the classifier/dispatcher configuration used across
// engine tests: a small allow-list and the stock script suffix.
func testOptions() Options {
	return Options{
		Extensions:   []string{"py", "sh", "txt", "yaml"},
		ScriptSuffix: ".sh",
	}
}

// newTestEngine builds an engine over /w with the given target
// descriptors, a recorder, and a fake git.
func newTestEngine(t *testing.T, descriptors ...string) (*Engine, *remoteRecorder, *fakeGit) {
	t.Helper()

	targets, err := model.ParseTargets(descriptors)
	require.NoError(t, err)

	remote := &remoteRecorder{}
	git := &fakeGit{branch: "main"}
	e := New("/w", targets, remote, git, testOptions(), logr.Discard())
	return e, remote, git
}

// opsSummary formats recorded operations for failure messages.
func opsSummary(ops []remoteOp) string {
	s := ""
	for _, op := range ops {
		s += fmt.Sprintf("%s %s: %s\n", op.Kind, op.Host, op.Arg)
	}
	return s
}
