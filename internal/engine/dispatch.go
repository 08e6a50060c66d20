package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/goodCoderXD/cync/internal/model"
)

// Dispatch maps one accepted change notification onto remote
// operations, fanned out across every configured target
// independently. A failing target is logged and skipped; its siblings
// still run. Once the fanout starts it runs to completion — there is
// no cancellation.
func (e *Engine) Dispatch(ev model.Event) {
	if !e.classify(ev) {
		e.log.V(1).Info("skipping", "event", ev.String())
		return
	}

	switch ev.Kind {
	case model.KindMoved:
		// A move is a delete of the old path followed by a create of
		// the new one, in that order per target. The two remote calls
		// are independent: if either fails on a target, that target
		// briefly reflects neither path.
		e.removeRemote(model.Event{Kind: model.KindDeleted, Path: ev.Path, IsDir: ev.IsDir})
		e.Dispatch(model.Event{Kind: model.KindCreated, Path: ev.DestPath, IsDir: ev.IsDir})

	case model.KindCreated:
		if ev.IsDir {
			e.createDirs(ev.Path)
		} else {
			e.uploadFile(ev.Path)
		}

	case model.KindModified:
		if ev.IsDir {
			// Directory mtime changes carry nothing to mirror.
			e.log.V(1).Info("skipping modified directory", "path", ev.Path)
		} else {
			e.uploadFile(ev.Path)
		}

	case model.KindDeleted:
		e.removeRemote(ev)

	default:
		// EventKind is a closed set; reaching this is a bug in the
		// producer, not a user error.
		e.log.Error(nil, "unhandled event kind", "kind", ev.Kind, "path", ev.Path)
	}
}

// createDirs mirrors a new local directory to every target through the
// presence cache, so the later first file in the subtree is a cache
// hit.
func (e *Engine) createDirs(localPath string) {
	rel, err := e.relativize(localPath)
	if err != nil {
		e.log.Error(err, "path outside watch root", "path", localPath)
		return
	}

	for _, target := range e.targets {
		if err := e.dirs.Ensure(target, rel); err != nil {
			e.log.Error(err, "mkdir failed", "target", target.String(), "dir", rel)
		}
	}
}

// uploadFile mirrors one local file to every target: parent directory
// via the presence cache, a group-write grant for elevated targets,
// the blocking upload, and the executable-bit follow-up for scripts.
// This is also the single-file path reused by reconciliation for
// untracked-file drift repair. Directories are a precondition
// violation here.
func (e *Engine) uploadFile(localPath string) {
	rel, err := e.relativize(localPath)
	if err != nil {
		e.log.Error(err, "path outside watch root", "path", localPath)
		return
	}

	for _, target := range e.targets {
		mapped := remotePath(target.Root, rel)

		if err := e.dirs.Ensure(target, path.Dir(rel)); err != nil {
			e.log.Error(err, "ensure parent dir failed", "target", target.String(), "path", mapped)
			continue
		}

		if target.Elevated() {
			// Grant group-write as the principal first so the upload,
			// which runs as the session user, can overwrite files the
			// principal owns.
			grant := fmt.Sprintf("sudo su %s bash -c %q", target.Principal,
				fmt.Sprintf("chmod g+w %s", mapped))
			if err := e.remote.Run(target.Host, grant); err != nil {
				e.log.Error(err, "group-write grant failed", "target", target.String(), "path", mapped)
			}
		}

		e.log.Info("upload", "as", principalName(target), "from", localPath,
			"to", fmt.Sprintf("%s:%s", target.Host, mapped))
		if err := e.remote.Upload(target.Host, localPath, mapped); err != nil {
			e.log.Error(err, "upload failed", "target", target.String(), "path", mapped)
			continue
		}

		if e.opts.ScriptSuffix != "" && strings.HasSuffix(mapped, e.opts.ScriptSuffix) {
			e.log.Info("chmod +x", "target", target.String(), "path", mapped)
			if err := e.remote.Run(target.Host, fmt.Sprintf("chmod +x %s", mapped)); err != nil {
				e.log.Error(err, "chmod +x failed", "target", target.String(), "path", mapped)
			}
		}
	}
}

// removeRemote deletes the mapped path on every target, recursively
// when the deleted local entry was a directory.
func (e *Engine) removeRemote(ev model.Event) {
	rel, err := e.relativize(ev.Path)
	if err != nil {
		e.log.Error(err, "path outside watch root", "path", ev.Path)
		return
	}

	flag := "-f"
	if ev.IsDir {
		flag = "-rf"
	}

	for _, target := range e.targets {
		mapped := remotePath(target.Root, rel)
		e.log.Info("rm", "flags", flag, "target", target.String(), "path", mapped)
		if err := e.runCommand(target, fmt.Sprintf("rm %s %s", flag, mapped)); err != nil {
			e.log.Error(err, "rm failed", "target", target.String(), "path", mapped)
		}
	}
}

// relativize maps an absolute local path to its slash-separated path
// relative to the watch root. Every target receives the identical
// relative structure under its own root.
func (e *Engine) relativize(localPath string) (string, error) {
	rel, err := filepath.Rel(e.root, localPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under %s", localPath, e.root)
	}
	return filepath.ToSlash(rel), nil
}

// remotePath joins a target root and a relative path. Remote paths are
// POSIX regardless of the local platform.
func remotePath(root, rel string) string {
	return path.Join(root, rel)
}

// principalName names the acting identity for log lines.
func principalName(target model.Target) string {
	if target.Principal != "" {
		return target.Principal
	}
	return "self"
}
