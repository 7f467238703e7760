package ssh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPort is the port used when none is configured.
const DefaultPort = 22

// DefaultTimeout bounds TCP connection and handshake.
const DefaultTimeout = 10 * time.Second

// Config holds all parameters required to establish an SSH connection to a cluster.
type Config struct {
	// Connection details
	Host string // Hostname or IP address
	Port int    // Port number (default 22)
	User string // Username to authenticate as

	// Authentication methods (tried in order)
	Password       string // Password for authentication
	PrivateKey     string // PEM encoded private key content
	PrivateKeyPath string // Path to private key file (e.g. "~/.ssh/id_ed25519")
	UseAgent       bool   // If true, attempt to use the agent at AgentSocket
	AgentSocket    string // Agent socket path (default $SSH_AUTH_SOCK)

	// Connection settings
	Timeout time.Duration // Connection timeout (default 10s)

	// KnownHostsPath selects the trust model. Empty accepts any host key. A path
	// to an existing known_hosts file rejects hosts that are not listed in it.
	// A path to a file that does not exist is a configuration error.
	KnownHostsPath string

	// HostKeyCheck overrides KnownHostsPath entirely when set.
	HostKeyCheck ssh.HostKeyCallback
}

// NewConfig creates a Config with default port and timeout.
func NewConfig(host, username string) Config {
	return Config{
		Host:    host,
		User:    username,
		Port:    DefaultPort,
		Timeout: DefaultTimeout,
	}
}

// NewConfigFromSSHConfig loads connection details for alias from an OpenSSH client
// config file. An empty path reads ~/.ssh/config.
func NewConfigFromSSHConfig(alias, path string) (Config, error) {
	if path == "" {
		path = filepath.Join(homeDir(), ".ssh", "config")
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return NewConfigFromSSHConfigReader(alias, f)
}

// NewConfigFromSSHConfigReader parses OpenSSH client config data and resolves alias
// to its HostName, User, Port, IdentityFile and UserKnownHostsFile.
func NewConfigFromSSHConfigReader(alias string, r io.Reader) (Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	hostName, err := cfg.Get(alias, "HostName")
	if err != nil || hostName == "" {
		hostName = alias // Fallback if no HostName defined
	}

	username, _ := cfg.Get(alias, "User")
	if username == "" {
		if u, _ := user.Current(); u != nil {
			username = u.Username
		}
	}

	c := NewConfig(hostName, username)

	if portStr, _ := cfg.Get(alias, "Port"); portStr != "" {
		_, _ = fmt.Sscanf(portStr, "%d", &c.Port)
	}

	identityFile, _ := cfg.Get(alias, "IdentityFile")
	c.PrivateKeyPath = expandHome(identityFile)

	// StrictHostKeyChecking=no keeps the accept-any model.
	if strict, _ := cfg.Get(alias, "StrictHostKeyChecking"); strict != "no" {
		if knownHosts, _ := cfg.Get(alias, "UserKnownHostsFile"); knownHosts != "" {
			c.KnownHostsPath = expandHome(strings.Fields(knownHosts)[0])
		}
	}

	return c, nil
}

// WithDefaults sets default values for zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	c.KnownHostsPath = expandHome(c.KnownHostsPath)
	c.PrivateKeyPath = expandHome(c.PrivateKeyPath)

	return c
}

// Validate ensures all required fields are present and that a requested trust
// store exists. Failures are reported as *hecdeploy.ConfigurationError.
func (c Config) Validate() error {
	if c.Host == "" {
		return &hecdeploy.ConfigurationError{Resource: "ssh host", Err: errors.New("host address cannot be empty")}
	}

	if c.User == "" {
		return &hecdeploy.ConfigurationError{Resource: "ssh user", Err: errors.New("user cannot be empty")}
	}

	if c.HostKeyCheck == nil && c.KnownHostsPath != "" {
		if _, err := os.Stat(c.KnownHostsPath); err != nil {
			return &hecdeploy.ConfigurationError{Resource: "known_hosts " + c.KnownHostsPath, Err: err}
		}
	}

	return nil
}

// Address returns the host:port pair to dial.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// hostKeyCallback builds the verifier for the configured trust model.
func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.HostKeyCheck != nil {
		return c.HostKeyCheck, nil
	}

	if c.KnownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // accept-any is the documented default
	}

	cb, err := knownhosts.New(c.KnownHostsPath)
	if err != nil {
		return nil, &hecdeploy.ConfigurationError{Resource: "known_hosts " + c.KnownHostsPath, Err: err}
	}

	return cb, nil
}

// ToClientConfig converts the Config to an ssh.ClientConfig. Agent
// authentication is not included: Connect attaches it because the session
// owns the agent connection.
func (c Config) ToClientConfig() (*ssh.ClientConfig, error) {
	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.Timeout,
	}

	if c.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(c.PrivateKey))
		if err != nil {
			return nil, &hecdeploy.ConfigurationError{Resource: "private key", Err: err}
		}

		config.Auth = append(config.Auth, ssh.PublicKeys(signer))
	}

	keyAuth, err := loadPrivateKeyAuth(c.PrivateKeyPath)
	if err != nil {
		return nil, &hecdeploy.ConfigurationError{Resource: "private key " + c.PrivateKeyPath, Err: err}
	}

	if keyAuth != nil {
		config.Auth = append(config.Auth, keyAuth)
	}

	if c.Password != "" {
		config.Auth = append(config.Auth,
			ssh.Password(c.Password),
			ssh.KeyboardInteractive(passwordChallenge(c.Password)),
		)
	}

	return config, nil
}

// passwordChallenge answers every keyboard-interactive question with the password,
// which is what cluster login nodes configured for PAM expect.
func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}

		return answers, nil
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	return os.Getenv("HOME")
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}

	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}

	return p
}
