package ssh

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// Option defines a functional option for the SSH provider.
type Option func(*Config)

// WithConfig returns an Option that replaces the whole Config.
// Useful when the Config was produced by NewConfigFromSSHConfig.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithHost sets the target hostname.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithUser sets the SSH user.
func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

// WithPort sets the SSH port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithPassword sets the SSH password.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithKeyPath sets the path to the private key file.
func WithKeyPath(path string) Option {
	return func(c *Config) {
		c.PrivateKeyPath = path
	}
}

// WithAgent enables authentication through the running ssh-agent.
func WithAgent(use bool) Option {
	return func(c *Config) {
		c.UseAgent = use
	}
}

// WithAgentSocket selects the agent socket instead of $SSH_AUTH_SOCK.
func WithAgentSocket(path string) Option {
	return func(c *Config) {
		c.AgentSocket = path
	}
}

// WithTimeout bounds connection establishment.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithKnownHosts enables strict host key checking against the given known_hosts file.
func WithKnownHosts(path string) Option {
	return func(c *Config) {
		c.KnownHostsPath = path
	}
}

// WithHostKeyCallback installs a custom host key verifier.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(c *Config) {
		c.HostKeyCheck = cb
	}
}
