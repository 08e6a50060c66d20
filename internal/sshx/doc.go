// Package sshx provides the remote-access layer for cync: a per-host
// pool of SSH sessions with lazily derived SFTP transfer channels, and
// the remote directory presence cache.
//
// Connection parameters (port, user, identity file, compression) are
// resolved from the user's aggregated ssh config, keyed by host alias,
// so cync connects the same way `ssh <host>` would. Host keys use
// trust-on-first-use: keys already present in known_hosts are
// verified, unknown hosts are accepted and recorded.
//
// Remote command execution is fire-and-forget — Run returns once the
// command has been started on the remote side and never observes its
// exit status. Uploads are blocking and report failure. The pool is
// not internally locked; the engine guarantees a single dispatching
// goroutine. Parallelizing dispatch across targets would require
// per-host mutual exclusion here first.
package sshx
