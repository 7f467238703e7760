package ssh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
)

// process is a single command executing on its own exec channel.
type process struct {
	session *ssh.Session
	cmd     *hecdeploy.Command

	mu     sync.Mutex
	closed bool
}

func (p *process) run(ctx context.Context) (*hecdeploy.Result, error) {
	p.session.Stdin = p.cmd.Stdin
	p.session.Stdout = p.cmd.Stdout
	p.session.Stderr = p.cmd.Stderr

	if p.cmd.Tty {
		if err := p.session.RequestPty("xterm", 40, 80, buildTerminalModes()); err != nil {
			return nil, &hecdeploy.TransportError{Command: p.cmd, Err: err}
		}
	}

	startTime := time.Now()

	if err := p.session.Start(buildFullCommand(p.cmd)); err != nil {
		return nil, &hecdeploy.TransportError{Command: p.cmd, Err: err}
	}

	// Monitor context cancellation
	doneCheck := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = p.session.Signal(ssh.SIGKILL)
			_ = p.Close()
		case <-doneCheck:
		}
	}()

	err := p.session.Wait()

	close(doneCheck)

	res := &hecdeploy.Result{Duration: time.Since(startTime), Error: err}

	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		res.ExitCode = -1

		return res, &hecdeploy.TransportError{Command: p.cmd, Err: ctx.Err()}
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()

		return res, &hecdeploy.ExitError{
			Command:  p.cmd,
			ExitCode: res.ExitCode,
			Cause:    err,
		}
	}

	res.ExitCode = -1

	return res, &hecdeploy.TransportError{Command: p.cmd, Err: err}
}

// Close terminates the exec channel.
func (p *process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	return p.session.Close()
}
