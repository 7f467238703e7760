package ssh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruffel/hecdeploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromSSHConfig(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ssh_config")

	configContent := `
Host cluster
    HostName 1.2.3.4
    User testuser
    Port 2222
    IdentityFile ~/.ssh/id_ed25519
    UserKnownHostsFile /etc/cluster_known_hosts

Host lax
    HostName 5.6.7.8
    StrictHostKeyChecking no
    UserKnownHostsFile /etc/cluster_known_hosts
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	t.Run("custom path", func(t *testing.T) {
		t.Parallel()

		cfg, err := NewConfigFromSSHConfig("cluster", configPath)
		require.NoError(t, err)

		assert.Equal(t, "1.2.3.4", cfg.Host)
		assert.Equal(t, "testuser", cfg.User)
		assert.Equal(t, 2222, cfg.Port)
		assert.Equal(t, "/etc/cluster_known_hosts", cfg.KnownHostsPath)
		assert.True(t, filepath.IsAbs(cfg.PrivateKeyPath))
		assert.Contains(t, cfg.PrivateKeyPath, "id_ed25519")
	})

	t.Run("strict checking disabled", func(t *testing.T) {
		t.Parallel()

		cfg, err := NewConfigFromSSHConfigReader("lax", strings.NewReader(configContent))
		require.NoError(t, err)

		assert.Equal(t, "5.6.7.8", cfg.Host)
		assert.Equal(t, DefaultPort, cfg.Port)
		assert.Empty(t, cfg.KnownHostsPath)
	})

	t.Run("unknown alias falls back to the alias itself", func(t *testing.T) {
		t.Parallel()

		cfg, err := NewConfigFromSSHConfigReader("login.example.org", strings.NewReader(configContent))
		require.NoError(t, err)

		assert.Equal(t, "login.example.org", cfg.Host)
	})

	t.Run("non-existent path", func(t *testing.T) {
		t.Parallel()

		_, err := NewConfigFromSSHConfig("cluster", filepath.Join(tmpDir, "non_existent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open ssh config")
	})
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	c := Config{Host: "example.com", User: "root"}.WithDefaults()

	assert.Equal(t, 22, c.Port)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Empty(t, c.KnownHostsPath)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(present, nil, 0o600))

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid without trust store",
			config: Config{Host: "example.com", User: "root"},
		},
		{
			name:   "valid with trust store",
			config: Config{Host: "example.com", User: "root", KnownHostsPath: present},
		},
		{
			name:    "missing host",
			config:  Config{User: "root"},
			wantErr: true,
		},
		{
			name:    "missing user",
			config:  Config{Host: "example.com"},
			wantErr: true,
		},
		{
			name:    "trust store requested but absent",
			config:  Config{Host: "example.com", User: "root", KnownHostsPath: filepath.Join(dir, "absent")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			var cfgErr *hecdeploy.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestConfig_ToClientConfig_BadKey(t *testing.T) {
	t.Parallel()

	c := Config{Host: "example.com", User: "root", PrivateKey: "not a key"}

	_, err := c.ToClientConfig()

	var cfgErr *hecdeploy.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	var c Config
	for _, opt := range []Option{
		WithHost("h"),
		WithUser("u"),
		WithPort(2200),
		WithPassword("p"),
		WithKeyPath("/k"),
		WithAgent(true),
		WithAgentSocket("/run/agent.sock"),
		WithTimeout(time.Second),
		WithKnownHosts("/kh"),
	} {
		opt(&c)
	}

	assert.Equal(t, Config{
		Host:           "h",
		User:           "u",
		Port:           2200,
		Password:       "p",
		PrivateKeyPath: "/k",
		UseAgent:       true,
		AgentSocket:    "/run/agent.sock",
		Timeout:        time.Second,
		KnownHostsPath: "/kh",
	}, c)
}
