package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "u"
	testPassword = "p"
)

// testServer is an in-process SSH server. Exec requests echo the received command
// line and exit 1 when it ends in "false". Shells echo their input. The sftp
// subsystem serves the local filesystem.
type testServer struct {
	addr    string
	hostKey ssh.Signer
}

func newTestSigner(t *testing.T) ssh.Signer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	return signer
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	signer := newTestSigner(t)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil //nolint:nilnil
			}

			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go serveConn(conn, cfg)
		}
	}()

	return &testServer{addr: ln.Addr().String(), hostKey: signer}
}

func (s *testServer) config() Config {
	host, port, _ := net.SplitHostPort(s.addr)

	c := NewConfig(host, testUser)
	c.Password = testPassword
	c.Port, _ = strconv.Atoi(port)

	return c
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	defer func() { _ = conn.Close() }()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}

	defer func() { _ = sconn.Close() }()

	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")

			continue
		}

		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}

		go serveSession(ch, chReqs)
	}
}

func serveSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range reqs {
		switch req.Type {
		case "pty-req", "env":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)

			go ssh.DiscardRequests(reqs)

			_, _ = io.Copy(ch, ch)

			return
		case "exec":
			var payload struct{ Command string }
			_ = ssh.Unmarshal(req.Payload, &payload)
			_ = req.Reply(true, nil)

			go ssh.DiscardRequests(reqs)

			var status uint32
			if strings.HasSuffix(payload.Command, "false") {
				status = 1
			}

			_, _ = io.WriteString(ch, payload.Command+"\n")
			_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))

			return
		case "subsystem":
			var payload struct{ Name string }
			_ = ssh.Unmarshal(req.Payload, &payload)

			if payload.Name != "sftp" {
				_ = req.Reply(false, nil)

				continue
			}

			_ = req.Reply(true, nil)

			go ssh.DiscardRequests(reqs)

			server, err := sftp.NewServer(ch)
			if err != nil {
				return
			}

			_ = server.Serve()

			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}
