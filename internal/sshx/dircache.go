package sshx

import (
	"path"

	"github.com/goodCoderXD/cync/internal/model"
)

// MkdirFunc issues one recursive remote directory creation for relDir
// under the target's root. The engine supplies this so directory
// creation goes through the same principal-aware command path as every
// other remote mutation.
type MkdirFunc func(target model.Target, relDir string) error

// DirCache tracks, per host, the set of remote absolute directories
// believed to exist, so per-file directory creation costs amortized
// O(1) round-trips after the first file in a subtree instead of
// O(depth) per file.
//
// Membership means "observed or inferred to exist after a successful
// creation call". The set grows monotonically and never shrinks, and
// ancestor presence is inferred optimistically from a single recursive
// create succeeding — no per-level verification. If the remote mkdir
// fails partway (its exit status is never captured), the cache can
// record directories that do not exist; this is an accepted tradeoff,
// the next event touching the path is the only retry.
type DirCache struct {
	mkdir MkdirFunc

	// present maps host → set of remote absolute directory paths.
	present map[string]map[string]bool
}

// NewDirCache creates an empty presence cache backed by the given
// mkdir callback.
func NewDirCache(mkdir MkdirFunc) *DirCache {
	return &DirCache{
		mkdir:   mkdir,
		present: make(map[string]map[string]bool),
	}
}

// Ensure makes relDir exist under the target's remote root. If the
// resulting absolute path is already marked present for the target's
// host this is a no-op. Otherwise one recursive remote create is
// issued for relDir, then relDir and each ancestor up to the root are
// marked present.
func (c *DirCache) Ensure(target model.Target, relDir string) error {
	rel := path.Clean(relDir)
	abs := remoteJoin(target.Root, rel)

	if c.present[target.Host][abs] {
		return nil
	}

	if err := c.mkdir(target, rel); err != nil {
		return err
	}

	hostSet := c.present[target.Host]
	if hostSet == nil {
		hostSet = make(map[string]bool)
		c.present[target.Host] = hostSet
	}

	for ; rel != "" && rel != "." && rel != "/"; rel = path.Dir(rel) {
		hostSet[remoteJoin(target.Root, rel)] = true
	}
	// The root itself is covered by the recursive create as well.
	hostSet[remoteJoin(target.Root, ".")] = true

	return nil
}

// remoteJoin joins a remote root and a relative path. Remote paths are
// POSIX regardless of the local platform, hence path rather than
// filepath.
func remoteJoin(root, rel string) string {
	return path.Join(root, rel)
}
