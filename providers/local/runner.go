package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ruffel/hecdeploy"
)

var _ hecdeploy.Runner = (*Runner)(nil)

// ErrTtyNotSupported is returned for commands that request a PTY.
var ErrTtyNotSupported = errors.New("tty allocation is not supported by the local runner")

// Runner executes commands on the local machine.
type Runner struct {
	mu     sync.RWMutex
	closed bool
}

// New creates a new local runner.
func New() *Runner {
	return &Runner{}
}

// Run executes a command to completion.
//
// A non-zero exit status is returned as both the Result and an *hecdeploy.ExitError.
// Failures to start or cancellation are returned as *hecdeploy.TransportError.
func (r *Runner) Run(ctx context.Context, cmd *hecdeploy.Command) (*hecdeploy.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if r.isClosed() {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), hecdeploy.ErrSessionClosed)
	}

	if cmd.Tty {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), ErrTtyNotSupported)
	}

	execCmd := exec.CommandContext(ctx, cmd.Cmd, cmd.Args...)
	execCmd.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	// Run in its own process group so cancellation also kills children.
	setProcessGroup(execCmd)

	execCmd.Cancel = func() error {
		return killProcessGroup(execCmd.Process.Pid)
	}

	execCmd.Stdin = cmd.Stdin
	execCmd.Stdout = cmd.Stdout
	execCmd.Stderr = cmd.Stderr

	startTime := time.Now()
	err := execCmd.Run()

	res := &hecdeploy.Result{Duration: time.Since(startTime), Error: err}
	if execCmd.ProcessState != nil {
		res.ExitCode = execCmd.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return res, &hecdeploy.ExitError{
			Command:  cmd,
			ExitCode: exitErr.ExitCode(),
			Cause:    err,
		}
	}

	if ctx.Err() != nil {
		err = ctx.Err()
	}

	return res, &hecdeploy.TransportError{Command: cmd, Err: err}
}

// Close prevents further commands from starting.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}

func (r *Runner) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.closed
}
