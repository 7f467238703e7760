package ssh

import (
	"fmt"
	"io"
	"sync"

	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
)

const (
	shellTerm = "xterm"
	shellRows = 40
	// Wide enough that echoed commands are not wrapped by the terminal.
	shellCols = 512
)

var _ hecdeploy.Shell = (*shell)(nil)

// shell is an interactive login shell bound to one SSH channel.
type shell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	once sync.Once
	err  error
}

func startShell(session *ssh.Session) (*shell, error) {
	if err := session.RequestPty(shellTerm, shellRows, shellCols, buildTerminalModes()); err != nil {
		return nil, fmt.Errorf("request for pty failed: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open shell stdin: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open shell stdout: %w", err)
	}

	if err := session.Shell(); err != nil {
		return nil, fmt.Errorf("failed to start login shell: %w", err)
	}

	return &shell{session: session, stdin: stdin, stdout: stdout}, nil
}

func (s *shell) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *shell) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close ends the shell channel. Only the first call has any effect.
func (s *shell) Close() error {
	s.once.Do(func() {
		_ = s.stdin.Close()

		if err := s.session.Close(); err != nil && err != io.EOF {
			s.err = err
		}
	})

	return s.err
}
