package sshx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"

	"github.com/kevinburke/ssh_config"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/goodCoderXD/cync/internal/model"
)

// defaultPort is used when the ssh config carries no Port entry for
// the host alias.
const defaultPort = "22"

// Pool caches one authenticated SSH session and one SFTP transfer
// channel per host. Sessions live until process shutdown or first
// failure; a failed session is dropped from the cache and the host's
// next operation re-dials from scratch. There is no proactive
// reconnection and no retry.
//
// Usage:
//
//	pool := sshx.NewPool()
//	defer pool.CloseAll()
//	if err := pool.Upload("web1", "/w/a.txt", "/srv/app/a.txt"); err != nil { /* handle */ }
type Pool struct {
	// lookup resolves an ssh config key for a host alias. Defaults to
	// the user's aggregated ssh config (~/.ssh/config plus the system
	// file); injectable for tests.
	lookup func(alias, key string) string

	// knownHostsPath is where trust-on-first-use host keys are read
	// from and recorded to.
	knownHostsPath string

	sessions  map[string]*ssh.Client
	transfers map[string]*sftp.Client
}

// NewPool creates a connection pool resolving hosts through the user's
// ssh config and recording host keys in ~/.ssh/known_hosts.
func NewPool() *Pool {
	p := &Pool{
		lookup:    ssh_config.Get,
		sessions:  make(map[string]*ssh.Client),
		transfers: make(map[string]*sftp.Client),
	}
	if home, err := os.UserHomeDir(); err == nil {
		p.knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	return p
}

// Session returns the cached SSH session for host, establishing one on
// first use. Establishment failures are ConnectionError; nothing is
// cached for the host in that case, so the next call retries from
// scratch.
func (p *Pool) Session(host string) (*ssh.Client, error) {
	if client, ok := p.sessions[host]; ok {
		return client, nil
	}

	hc := resolveHost(host, p.lookup)

	cfg := &ssh.ClientConfig{
		User:            hc.user,
		Auth:            p.authMethods(hc),
		HostKeyCallback: p.hostKeyCallback(),
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(hc.hostname, hc.port), cfg)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConnectionError,
			fmt.Sprintf("connect to %s (%s:%s)", host, hc.hostname, hc.port), err)
	}

	p.sessions[host] = client
	return client, nil
}

// Transfer returns the cached SFTP channel for host, deriving one from
// the host's session transport on first use.
func (p *Pool) Transfer(host string) (*sftp.Client, error) {
	if client, ok := p.transfers[host]; ok {
		return client, nil
	}

	session, err := p.Session(host)
	if err != nil {
		return nil, err
	}

	client, err := sftp.NewClient(session)
	if err != nil {
		// The transport is likely dead. Drop the session so the next
		// operation on this host re-dials.
		p.invalidate(host)
		return nil, model.WrapCLIError(model.ExitConnectionError,
			fmt.Sprintf("open transfer channel to %s", host), err)
	}

	p.transfers[host] = client
	return client, nil
}

// Run executes a command on host, fire-and-forget: it returns once the
// command has been started remotely. The exit status is never
// captured — a remotely failing command is visible only in logs on the
// remote side.
func (p *Pool) Run(host, command string) error {
	client, err := p.Session(host)
	if err != nil {
		return err
	}

	sess, err := client.NewSession()
	if err != nil {
		p.invalidate(host)
		return model.WrapCLIError(model.ExitConnectionError,
			fmt.Sprintf("open exec channel to %s", host), err)
	}

	if err := sess.Start(command); err != nil {
		sess.Close()
		return model.WrapCLIError(model.ExitConnectionError,
			fmt.Sprintf("start %q on %s", command, host), err)
	}

	// Reap the session in the background so the channel is released
	// when the remote command finishes, without blocking dispatch.
	go func() {
		_ = sess.Wait()
		_ = sess.Close()
	}()
	return nil
}

// Upload copies a local file to remotePath on host, blocking until the
// transfer completes or fails. Failures are TransferError and abort
// only the caller's current step for this target.
func (p *Pool) Upload(host, localPath, remotePath string) error {
	transfer, err := p.Transfer(host)
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return model.WrapCLIError(model.ExitTransferError,
			fmt.Sprintf("open %s", localPath), err)
	}
	defer src.Close()

	dst, err := transfer.Create(remotePath)
	if err != nil {
		return model.WrapCLIError(model.ExitTransferError,
			fmt.Sprintf("create %s:%s", host, remotePath), err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return model.WrapCLIError(model.ExitTransferError,
			fmt.Sprintf("upload %s -> %s:%s", localPath, host, remotePath), err)
	}
	if err := dst.Close(); err != nil {
		return model.WrapCLIError(model.ExitTransferError,
			fmt.Sprintf("finish upload %s:%s", host, remotePath), err)
	}

	// Carry the local mode over so scripts and config files keep their
	// permissions. Best-effort: some servers reject setstat.
	if info, err := os.Stat(localPath); err == nil {
		_ = transfer.Chmod(remotePath, info.Mode().Perm())
	}
	return nil
}

// CloseAll releases every cached transfer channel and session.
// Idempotent and safe with zero channels open; called once at
// shutdown.
func (p *Pool) CloseAll() {
	for host, transfer := range p.transfers {
		_ = transfer.Close()
		delete(p.transfers, host)
	}
	for host, session := range p.sessions {
		_ = session.Close()
		delete(p.sessions, host)
	}
}

// invalidate drops the host's cached clients so the next operation
// re-dials. Close errors are ignored — the transport is already
// suspect.
func (p *Pool) invalidate(host string) {
	if transfer, ok := p.transfers[host]; ok {
		_ = transfer.Close()
		delete(p.transfers, host)
	}
	if session, ok := p.sessions[host]; ok {
		_ = session.Close()
		delete(p.sessions, host)
	}
}

// hostConfig holds the connection parameters resolved from the ssh
// config for one host alias.
type hostConfig struct {
	hostname     string
	port         string
	user         string
	identityFile string
	// compression is resolved for parity with the ssh config but not
	// applied: x/crypto/ssh does not negotiate transport compression.
	compression bool
}

// resolveHost looks up connection parameters for a host alias using
// the provided ssh config getter, filling in defaults where the config
// is silent.
func resolveHost(alias string, lookup func(alias, key string) string) hostConfig {
	hc := hostConfig{
		hostname:     alias,
		port:         defaultPort,
		identityFile: lookup(alias, "IdentityFile"),
		compression:  lookup(alias, "Compression") == "yes",
	}

	if hostname := lookup(alias, "HostName"); hostname != "" {
		hc.hostname = hostname
	}
	if port := lookup(alias, "Port"); port != "" {
		hc.port = port
	}
	if u := lookup(alias, "User"); u != "" {
		hc.user = u
	} else if current, err := user.Current(); err == nil {
		hc.user = current.Username
	}

	// ssh_config expands "~" only in some code paths; normalize here
	// so key loading works with a plain os.ReadFile.
	if len(hc.identityFile) > 1 && hc.identityFile[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			hc.identityFile = filepath.Join(home, hc.identityFile[2:])
		}
	}

	return hc
}

// authMethods builds the auth chain for a host: the SSH agent when
// available, then the host's configured identity file.
func (p *Pool) authMethods(hc hostConfig) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if hc.identityFile != "" {
		if key, err := os.ReadFile(hc.identityFile); err == nil {
			if signer, err := ssh.ParsePrivateKey(key); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	return methods
}

// hostKeyCallback returns a trust-on-first-use callback: keys already
// in known_hosts are verified (a mismatch is rejected), unknown hosts
// are accepted and their key appended for future verification.
func (p *Pool) hostKeyCallback() ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if p.knownHostsPath == "" {
			// No home directory: accept without recording.
			return nil
		}

		check, err := knownhosts.New(p.knownHostsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			return p.recordHostKey(hostname, key)
		}

		err = check(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			// Host not in known_hosts yet: first use, trust and record.
			return p.recordHostKey(hostname, key)
		}

		// Known host presenting a different key: refuse.
		return err
	}
}

// recordHostKey appends a host key line to known_hosts, creating the
// file (and ~/.ssh) if needed.
func (p *Pool) recordHostKey(hostname string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(p.knownHostsPath), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(p.knownHostsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	line := knownhosts.Line([]string{hostname}, key)
	_, err = fmt.Fprintln(f, line)
	return err
}
