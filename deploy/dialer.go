package deploy

import (
	"context"

	"github.com/ruffel/hecdeploy"
	"github.com/ruffel/hecdeploy/config"
	"github.com/ruffel/hecdeploy/providers/ssh"
)

// Dialer establishes the remote session from the resolved settings.
type Dialer func(ctx context.Context, cfg *config.Resolver) (hecdeploy.Session, error)

// defaultKnownHosts is used when check_hostkey is set without known_hosts_path.
const defaultKnownHosts = "~/.ssh/known_hosts"

// SSHDialer connects to the cluster login node over SSH.
func SSHDialer(ctx context.Context, cfg *config.Resolver) (hecdeploy.Session, error) {
	c, err := SSHConfig(cfg)
	if err != nil {
		return nil, err
	}

	return ssh.Connect(ctx, c)
}

// SSHConfig maps settings onto an SSH connection config.
//
// With ssh_alias set, the alias is looked up in the OpenSSH client config and
// hostname/username only override it when set. Otherwise hostname and username
// are required and prompted for if missing. The password is prompted for only
// when neither a private key nor the agent is configured. Host keys are checked
// against known_hosts_path when set, or ~/.ssh/known_hosts when check_hostkey is
// true; otherwise any host key is accepted.
func SSHConfig(cfg *config.Resolver) (ssh.Config, error) {
	var c ssh.Config

	if alias, ok := cfg.LookupString(config.KeySSHAlias); ok {
		configPath, _ := cfg.LookupString(config.KeySSHConfigPath)

		fromFile, err := ssh.NewConfigFromSSHConfig(alias, configPath)
		if err != nil {
			return ssh.Config{}, &hecdeploy.ConfigurationError{Resource: "ssh alias " + alias, Err: err}
		}

		c = fromFile

		if host, ok := cfg.LookupString(config.KeyHostname); ok {
			c.Host = host
		}

		if user, ok := cfg.LookupString(config.KeyUsername); ok {
			c.User = user
		}
	} else {
		host, err := cfg.String(config.KeyHostname)
		if err != nil {
			return ssh.Config{}, err
		}

		user, err := cfg.String(config.KeyUsername)
		if err != nil {
			return ssh.Config{}, err
		}

		c = ssh.NewConfig(host, user)
	}

	if _, ok := cfg.Lookup(config.KeyPort); ok {
		port, err := cfg.Int(config.KeyPort)
		if err != nil {
			return ssh.Config{}, err
		}

		c.Port = port
	}

	if key, ok := cfg.LookupString(config.KeyPrivateKeyPath); ok {
		c.PrivateKeyPath = key
	}

	if cfg.LookupBool(config.KeyUseAgent) {
		c.UseAgent = true
	}

	if c.PrivateKeyPath == "" && !c.UseAgent {
		password, err := cfg.String(config.KeyPassword)
		if err != nil {
			return ssh.Config{}, err
		}

		c.Password = password
	} else if password, ok := cfg.LookupString(config.KeyPassword); ok {
		c.Password = password
	}

	if knownHosts, ok := cfg.LookupString(config.KeyKnownHostsPath); ok {
		c.KnownHostsPath = knownHosts
	} else if cfg.LookupBool(config.KeyCheckHostKey) {
		c.KnownHostsPath = defaultKnownHosts
	}

	return c.WithDefaults(), nil
}
