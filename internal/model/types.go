package model

import (
	"fmt"
	"strings"
)

// DefaultHost is the host assumed for target descriptors that carry no
// host component (bare paths such as "/srv/mirror").
const DefaultHost = "localhost"

// Target identifies one remote destination that local changes are
// mirrored to: a host, a remote root directory, and an optional acting
// principal.
//
// Parsed from the descriptor grammar:
//
//	[[user@]host:]remote_root
//
// Examples:
//
//	computelab:/home/scratch/computelab/   → host=computelab root=/home/scratch/computelab/
//	deploy@web1:/srv/app                   → principal=deploy host=web1 root=/srv/app
//	/srv/mirror                            → host=localhost root=/srv/mirror
type Target struct {
	// Principal is the remote identity commands should act as when it
	// differs from the session's login user. Empty means the session's
	// default identity — no privilege elevation is applied.
	Principal string

	// Host is the SSH destination, matched against Host aliases in the
	// user's ssh config when connecting.
	Host string

	// Root is the remote directory that mirrors the local watch root.
	Root string
}

// String returns the canonical descriptor form of the target.
func (t Target) String() string {
	if t.Principal != "" {
		return fmt.Sprintf("%s@%s:%s", t.Principal, t.Host, t.Root)
	}
	return fmt.Sprintf("%s:%s", t.Host, t.Root)
}

// Elevated reports whether commands for this target run under a
// non-default principal.
func (t Target) Elevated() bool {
	return t.Principal != ""
}

// ParseTarget parses a target descriptor string. It is pure and does
// no I/O; host reachability is not checked here.
//
// A descriptor without a ":" separator is treated as a remote root on
// DefaultHost with the default principal. An empty host or empty root
// after splitting is a configuration error (ExitConfigError).
func ParseTarget(descriptor string) (Target, error) {
	if descriptor == "" {
		return Target{}, NewCLIError(ExitConfigError, "target descriptor must not be empty")
	}

	hostPart, root, found := strings.Cut(descriptor, ":")
	if !found {
		// Bare path: mirror onto the local machine over SSH.
		return Target{Host: DefaultHost, Root: descriptor}, nil
	}

	principal := ""
	host := hostPart
	if user, domain, ok := strings.Cut(hostPart, "@"); ok {
		principal = user
		host = domain
	}

	if host == "" {
		return Target{}, NewCLIError(ExitConfigError,
			fmt.Sprintf("invalid target %q: empty host", descriptor))
	}
	if root == "" {
		return Target{}, NewCLIError(ExitConfigError,
			fmt.Sprintf("invalid target %q: empty remote root", descriptor))
	}

	return Target{Principal: principal, Host: host, Root: root}, nil
}

// ParseTargets parses a list of descriptors, failing on the first
// malformed entry.
func ParseTargets(descriptors []string) ([]Target, error) {
	targets := make([]Target, 0, len(descriptors))
	for _, d := range descriptors {
		t, err := ParseTarget(d)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// EventKind classifies a filesystem change notification. It is a closed
// set: the engine dispatches over all four kinds exhaustively and
// treats anything else as a programming error.
type EventKind string

const (
	// KindCreated indicates a file or directory appeared under the
	// watch root.
	KindCreated EventKind = "created"

	// KindModified indicates an existing file's content changed.
	// Modified directories carry no mirrorable content and are skipped
	// by the dispatcher.
	KindModified EventKind = "modified"

	// KindDeleted indicates a file or directory was removed.
	KindDeleted EventKind = "deleted"

	// KindMoved indicates a rename from Path to DestPath. Only
	// producers that can pair both halves of a rename emit this kind;
	// the dispatcher decomposes it into a delete followed by a create.
	KindMoved EventKind = "moved"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks whether the EventKind is one of the four defined kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case KindCreated, KindModified, KindDeleted, KindMoved:
		return true
	default:
		return false
	}
}

// Event is the envelope for one filesystem change notification as
// delivered by the watch layer.
type Event struct {
	// Kind is the change classification.
	Kind EventKind

	// Path is the absolute local source path of the change.
	Path string

	// DestPath is the absolute local destination path. Set only for
	// KindMoved.
	DestPath string

	// IsDir indicates the changed entry is a directory.
	IsDir bool
}

// String returns a compact human-readable form used in log lines.
func (e Event) String() string {
	if e.Kind == KindMoved {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.Path, e.DestPath)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}

// ExitCode defines the CLI exit codes. These let scripts and CI
// distinguish failure classes without parsing stderr.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates a malformed target descriptor or
	// configuration file. Fatal at startup, before any remote work.
	ExitConfigError ExitCode = 2

	// ExitConnectionError indicates an SSH session could not be
	// established. The host's cache entry is dropped so the next
	// operation re-dials from scratch.
	ExitConnectionError ExitCode = 3

	// ExitTransferError indicates a file upload failed. Only the
	// failing target's step is abandoned; sibling targets still run.
	ExitTransferError ExitCode = 4

	// ExitGitError indicates a local git operation failed.
	ExitGitError ExitCode = 5

	// ExitReconcileAborted indicates the reconciliation force-push
	// failed, so no target was touched.
	ExitReconcileAborted ExitCode = 6
)

// CLIError is an error carrying an exit code, so the CLI layer can
// translate domain failures into process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
