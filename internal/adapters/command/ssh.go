package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/felixgeelhaar/hostprep/internal/ports"
)

// SSHConfig describes how to reach the target host.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	IdentityFile   string
	KnownHostsFile string
	DialTimeout    time.Duration
}

// Addr returns the host:port dial address.
func (c SSHConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", port))
}

// clientConfig builds the ssh client configuration: public key auth
// from the identity file, host key verification against known_hosts.
func (c SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	signer, err := loadSigner(c.IdentityFile)
	if err != nil {
		return nil, err
	}

	knownHostsPath := c.KnownHostsFile
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
	}

	timeout := c.DialTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// loadSigner reads and parses a private key file.
func loadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", path, err)
	}
	return signer, nil
}

// SSHRunner executes commands on a remote host over a persistent SSH
// connection. One session is opened per command.
type SSHRunner struct {
	client *ssh.Client
	addr   string
}

// DialSSH connects to the target and returns a runner.
func DialSSH(cfg SSHConfig) (*SSHRunner, error) {
	clientCfg, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}
	client, err := ssh.Dial("tcp", cfg.Addr(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr(), err)
	}
	return &SSHRunner{client: client, addr: cfg.Addr()}, nil
}

// Close terminates the SSH connection.
func (r *SSHRunner) Close() error {
	return r.client.Close()
}

// Run executes a command on the remote host.
func (r *SSHRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	return r.RunInput(ctx, "", command, args...)
}

// RunInput executes a remote command with data piped to stdin.
func (r *SSHRunner) RunInput(ctx context.Context, input string, command string, args ...string) (ports.CommandResult, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return ports.CommandResult{}, fmt.Errorf("open session on %s: %w", r.addr, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if input != "" {
		session.Stdin = strings.NewReader(input)
	}

	// ssh sessions have no context support; close the session when the
	// context expires so the blocked Run returns.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(commandLine(command, args))
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		<-done
		return ports.CommandResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}, ctx.Err()
	case err = <-done:
	}

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// commandLine renders a command and arguments for the remote shell.
func commandLine(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(command))
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// shellQuote single-quotes an argument for a POSIX shell.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`&|;<>(){}*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Ensure SSHRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*SSHRunner)(nil)

// KeyProbe verifies fallback access by opening an independent SSH
// connection with only the new key and running a no-op. This is the
// external check the target cannot perform on itself.
type KeyProbe struct {
	cfg SSHConfig
}

// NewKeyProbe creates a KeyProbe for the given connection settings.
func NewKeyProbe(cfg SSHConfig) *KeyProbe {
	return &KeyProbe{cfg: cfg}
}

// VerifyAccess dials a fresh connection and runs `true`.
func (p *KeyProbe) VerifyAccess(ctx context.Context) error {
	clientCfg, err := p.cfg.clientConfig()
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.cfg.Addr())
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.Addr(), err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, p.cfg.Addr(), clientCfg)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake with %s: %w", p.cfg.Addr(), err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session on %s: %w", p.cfg.Addr(), err)
	}
	defer func() { _ = session.Close() }()

	if err := session.Run("true"); err != nil {
		return fmt.Errorf("run no-op on %s: %w", p.cfg.Addr(), err)
	}
	return nil
}

// Ensure KeyProbe implements ports.AccessVerifier.
var _ ports.AccessVerifier = (*KeyProbe)(nil)
