package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var _ hecdeploy.Session = (*Session)(nil)

// Session implements hecdeploy.Session over a single SSH connection.
// Every Run, OpenShell and file transfer opens its own channel on that connection.
type Session struct {
	config Config
	client *ssh.Client
	agent  net.Conn
	mu     sync.Mutex
	closed bool
}

// loadPrivateKeyAuth loads a private key from a file and returns an ssh.AuthMethod.
// Returns nil if the path is empty.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	if keyPath == "" {
		return nil, nil //nolint:nilnil // no key path, no auth method
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// dialAgent connects to the SSH agent. It returns nil if useAgent is false or
// the agent socket is unavailable, in which case agent auth is skipped.
func dialAgent(c Config) net.Conn {
	if !c.UseAgent {
		return nil
	}

	socket := c.AgentSocket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}

	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	return conn
}

// New establishes a new SSH connection.
//
// Configuration problems, including a requested known_hosts file that does not
// exist, are reported as *hecdeploy.ConfigurationError before anything is dialed.
// Network, handshake, host key and authentication failures are reported as
// *hecdeploy.ConnectionError.
func New(ctx context.Context, opts ...Option) (*Session, error) {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}

	return Connect(ctx, c)
}

// Connect is New for a fully built Config.
func Connect(ctx context.Context, c Config) (*Session, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	clientConfig, err := c.ToClientConfig()
	if err != nil {
		return nil, err
	}

	addr := c.Address()

	agentConn := dialAgent(c)
	if agentConn != nil {
		// Agent keys are tried after explicit keys and before the password.
		clientConfig.Auth = insertAuth(clientConfig.Auth, c, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
	}

	closeAgent := func() {
		if agentConn != nil {
			_ = agentConn.Close()
		}
	}

	dialer := &net.Dialer{Timeout: c.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAgent()

		return nil, &hecdeploy.ConnectionError{Address: addr, Err: err}
	}

	// The handshake honours the same deadline as the dial.
	_ = conn.SetDeadline(time.Now().Add(c.Timeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		_ = conn.Close()
		closeAgent()

		return nil, &hecdeploy.ConnectionError{Address: addr, Err: err}
	}

	_ = conn.SetDeadline(time.Time{})

	s := NewFromClient(ssh.NewClient(sshConn, chans, reqs), c)
	s.agent = agentConn

	return s, nil
}

// insertAuth places method before the password methods ToClientConfig appends last.
func insertAuth(auth []ssh.AuthMethod, c Config, method ssh.AuthMethod) []ssh.AuthMethod {
	n := len(auth)
	if c.Password != "" {
		n -= 2
	}

	out := make([]ssh.AuthMethod, 0, len(auth)+1)
	out = append(out, auth[:n]...)
	out = append(out, method)

	return append(out, auth[n:]...)
}

// NewFromClient wraps an already established client.
func NewFromClient(client *ssh.Client, config Config) *Session {
	return &Session{
		config: config,
		client: client,
	}
}

// Config returns the configuration the session was opened with.
func (s *Session) Config() Config {
	return s.config
}

// Run executes a command to completion on a fresh exec channel.
// A non-zero exit status is returned as both the Result and an *hecdeploy.ExitError.
func (s *Session) Run(ctx context.Context, cmd *hecdeploy.Command) (*hecdeploy.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	client, err := s.activeClient()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, &hecdeploy.TransportError{Command: cmd, Err: fmt.Errorf("failed to create ssh session: %w", err)}
	}

	proc := &process{session: session, cmd: cmd}
	defer func() { _ = proc.Close() }()

	return proc.run(ctx)
}

// OpenShell opens an interactive login shell on a pseudo-terminal with echo enabled.
// Profile scripts run, so variables they export are visible to the shell.
func (s *Session) OpenShell(ctx context.Context) (hecdeploy.Shell, error) {
	client, err := s.activeClient()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh session: %w", err)
	}

	sh, err := startShell(session)
	if err != nil {
		_ = session.Close()

		return nil, err
	}

	return sh, nil
}

// Close closes the underlying SSH connection and the agent connection, if any.
// Only the first call has any effect.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs error

	if s.client != nil {
		if err := s.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierror.Append(errs, err)
		}
	}

	if s.agent != nil {
		if err := s.agent.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierror.Append(errs, fmt.Errorf("failed to close agent connection: %w", err))
		}
	}

	return errs
}

func (s *Session) activeClient() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.client == nil {
		return nil, hecdeploy.ErrSessionClosed
	}

	return s.client, nil
}
