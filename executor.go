package hecdeploy

import (
	"bytes"
	"context"
	"errors"
)

// Executor wraps a Runner with exit-status handling and output buffering.
type Executor struct {
	runner Runner
}

// NewExecutor creates a new Executor with the given runner.
func NewExecutor(runner Runner) *Executor {
	return &Executor{runner: runner}
}

// Run executes a command. A non-zero exit code is always reported as an *ExitError,
// even if the runner itself only reported it in the Result.
func (e *Executor) Run(ctx context.Context, cmd *Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}

	if res != nil && res.ExitCode != 0 {
		return res, &ExitError{
			Command:  cmd,
			ExitCode: res.ExitCode,
		}
	}

	return res, nil
}

// RunBuffered executes a command and captures both Stdout and Stderr.
func (e *Executor) RunBuffered(ctx context.Context, cmd *Command) (*BufferedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	cmdCopy := *cmd // copy
	cmdCopy.Stdout = &stdoutBuf
	cmdCopy.Stderr = &stderrBuf

	result, err := e.Run(ctx, &cmdCopy)

	bufResult := &BufferedResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}
	if result != nil {
		bufResult.Result = *result
	}

	// Attach stderr to ExitError for context
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = bufResult.Stderr
		}
	}

	return bufResult, err
}
