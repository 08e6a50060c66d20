package engine

import (
	"path/filepath"
	"strings"

	"github.com/goodCoderXD/cync/internal/model"
)

// blacklist contains path markers that are never mirrored: compiled
// build artifacts, virtualenv trees, interpreter caches, and packaging
// metadata. Extra markers come from Options.Ignore.
var blacklist = []string{
	".pyc",
	".env/",
	"__pycache__",
	".egg",
}

// classify decides whether an event is processed at all. It is a pure
// function of the envelope, the allow-list, and the suppression flag:
// while suppression is raised (during reconciliation) everything is
// rejected; otherwise the source path must lie outside .git, avoid
// every blacklist marker, and file paths must additionally end in an
// allow-listed extension. Directories carry no extension, so only the
// .git and marker checks apply to them.
func (e *Engine) classify(ev model.Event) bool {
	if e.suppress {
		return false
	}

	if isGitPath(ev.Path) {
		return false
	}

	for _, marker := range blacklist {
		if strings.Contains(ev.Path, marker) {
			return false
		}
	}
	for _, marker := range e.opts.Ignore {
		if strings.Contains(ev.Path, marker) {
			return false
		}
	}

	if ev.IsDir {
		return true
	}

	for _, ext := range e.opts.Extensions {
		if strings.HasSuffix(ev.Path, "."+ext) {
			return true
		}
	}
	return false
}

// isGitPath reports whether any component of the path is the .git
// directory. Git internals are never mirrored: the remote checkouts
// are managed by branch reconciliation, and replicating object and
// ref churn into them would corrupt the clones the reset chain
// operates on. Component equality rather than a substring marker, so
// files like .gitignore are still mirrored.
func isGitPath(p string) bool {
	for _, part := range strings.Split(p, string(filepath.Separator)) {
		if part == ".git" {
			return true
		}
	}
	return false
}
