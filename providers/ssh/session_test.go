package ssh

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ruffel/hecdeploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

func TestConnect_TrustModel(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)
	other := newTestSigner(t)

	dir := t.TempDir()

	trusted := filepath.Join(dir, "trusted")
	require.NoError(t, os.WriteFile(trusted,
		[]byte(knownhosts.Line([]string{knownhosts.Normalize(srv.addr)}, srv.hostKey.PublicKey())+"\n"), 0o600))

	mismatched := filepath.Join(dir, "mismatched")
	require.NoError(t, os.WriteFile(mismatched,
		[]byte(knownhosts.Line([]string{knownhosts.Normalize(srv.addr)}, other.PublicKey())+"\n"), 0o600))

	unlisted := filepath.Join(dir, "unlisted")
	require.NoError(t, os.WriteFile(unlisted,
		[]byte(knownhosts.Line([]string{knownhosts.Normalize("build.example.com:22")}, srv.hostKey.PublicKey())+"\n"), 0o600))

	tests := []struct {
		name       string
		knownHosts string
		password   string
		wantConfig bool
		wantConn   bool
	}{
		{name: "accept any key", password: testPassword},
		{name: "known host", knownHosts: trusted, password: testPassword},
		{name: "mismatched host key", knownHosts: mismatched, password: testPassword, wantConn: true},
		{name: "host not listed", knownHosts: unlisted, password: testPassword, wantConn: true},
		{name: "missing trust store", knownHosts: filepath.Join(dir, "absent"), password: testPassword, wantConfig: true},
		{name: "wrong password", password: "nope", wantConn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := srv.config()
			cfg.Password = tt.password
			cfg.KnownHostsPath = tt.knownHosts
			cfg.Timeout = 5 * time.Second

			s, err := Connect(context.Background(), cfg)

			switch {
			case tt.wantConfig:
				var cfgErr *hecdeploy.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Nil(t, s)
			case tt.wantConn:
				var connErr *hecdeploy.ConnectionError
				require.ErrorAs(t, err, &connErr)
				assert.Equal(t, srv.addr, connErr.Address)
				assert.Nil(t, s)
			default:
				require.NoError(t, err)
				require.NoError(t, s.Close())
				require.NoError(t, s.Close())
			}
		})
	}
}

// startTestAgent serves an empty keyring on a unix socket. The returned channel
// receives once per agent connection when the client side closes it.
func startTestAgent(t *testing.T) (string, <-chan struct{}) {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "agent.sock")

	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	done := make(chan struct{}, 4)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func() {
				_ = agent.ServeAgent(agent.NewKeyring(), conn)
				_ = conn.Close()
				done <- struct{}{}
			}()
		}
	}()

	return socket, done
}

func TestConnect_AgentConnectionClosed(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "closed with the session", password: testPassword},
		{name: "closed when authentication fails", password: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			socket, done := startTestAgent(t)

			cfg := srv.config()
			cfg.Password = tt.password
			cfg.UseAgent = true
			cfg.AgentSocket = socket
			cfg.Timeout = 5 * time.Second

			s, err := Connect(context.Background(), cfg)
			if tt.wantErr {
				var connErr *hecdeploy.ConnectionError
				require.ErrorAs(t, err, &connErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, s.agent)
				require.NoError(t, s.Close())
			}

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("agent connection left open")
			}
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, WithHost("127.0.0.1"), WithPort(1), WithUser("u"))

	var connErr *hecdeploy.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestSession_Run(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)

	s, err := Connect(context.Background(), srv.config())
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	exec := hecdeploy.NewExecutor(s)

	res, err := exec.RunBuffered(context.Background(), &hecdeploy.Command{
		Cmd:  "echo",
		Args: []string{"hello world"},
		Dir:  "/tmp",
		Env:  []string{"A=b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "export A='b'; cd '/tmp' && echo 'hello world'\n", string(res.Stdout))

	res, err = exec.RunBuffered(context.Background(), hecdeploy.NewCommand("false"))

	var exitErr *hecdeploy.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Equal(t, 1, res.ExitCode)
}

func TestSession_OpenShell(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)

	s, err := Connect(context.Background(), srv.config())
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	sh, err := s.OpenShell(context.Background())
	require.NoError(t, err)

	_, err = io.WriteString(sh, "echo $HOME\n")
	require.NoError(t, err)

	buf := make([]byte, len("echo $HOME\n"))
	_, err = io.ReadFull(sh, buf)
	require.NoError(t, err)
	assert.Equal(t, "echo $HOME\n", string(buf))

	require.NoError(t, sh.Close())
	require.NoError(t, sh.Close())
}

func TestSession_UploadDownload(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)

	s, err := Connect(context.Background(), srv.config())
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	dir := t.TempDir()
	content := bytes.Repeat([]byte("x"), 100_000)

	local := filepath.Join(dir, "demo.zip")
	require.NoError(t, os.WriteFile(local, content, 0o600))

	var (
		mu    sync.Mutex
		calls [][2]int64
	)

	progress := func(current, total int64) {
		mu.Lock()
		defer mu.Unlock()

		calls = append(calls, [2]int64{current, total})
	}

	remote := filepath.ToSlash(filepath.Join(dir, "remote", "nested", "demo.zip"))

	err = s.Upload(context.Background(), local, remote, hecdeploy.WithPermissions(0o644), hecdeploy.WithProgress(progress))
	require.NoError(t, err)

	got, err := os.ReadFile(remote)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int64{100_000, 100_000}, calls[len(calls)-1])

	back := filepath.Join(dir, "back", "demo.zip")
	require.NoError(t, s.Download(context.Background(), remote, back))

	got, err = os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSession_ClosedOperations(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)

	s, err := Connect(context.Background(), srv.config())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Run(context.Background(), hecdeploy.NewCommand("true"))
	require.ErrorIs(t, err, hecdeploy.ErrSessionClosed)

	_, err = s.OpenShell(context.Background())
	require.ErrorIs(t, err, hecdeploy.ErrSessionClosed)

	err = s.Upload(context.Background(), "a", "b")
	require.ErrorIs(t, err, hecdeploy.ErrSessionClosed)
}
