package hecdeploy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner is a simple mock for testing Executor.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, cmd *Command) (*Result, error) {
	args := m.Called(ctx, cmd)
	if r := args.Get(0); r != nil {
		return r.(*Result), args.Error(1)
	}

	return nil, args.Error(1)
}

func TestExecutor_Run_NonZeroExit(t *testing.T) {
	t.Parallel()

	runner := new(MockRunner)
	exec := NewExecutor(runner)

	cmd := &Command{Cmd: "false"}
	runner.On("Run", mock.Anything, cmd).Return(&Result{ExitCode: 2}, nil)

	res, err := exec.Run(context.Background(), cmd)
	require.Error(t, err)

	var exitErr *ExitError
	if assert.ErrorAs(t, err, &exitErr) {
		assert.Equal(t, 2, exitErr.ExitCode)
	}

	assert.Equal(t, 2, res.ExitCode)
	runner.AssertExpectations(t)
}

func TestExecutor_Run_TransportError(t *testing.T) {
	t.Parallel()

	runner := new(MockRunner)
	exec := NewExecutor(runner)

	cmd := &Command{Cmd: "ls"}
	runner.On("Run", mock.Anything, cmd).Return(nil, &TransportError{Command: cmd, Err: errors.New("channel refused")})

	_, err := exec.Run(context.Background(), cmd)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestExecutor_Run_InvalidCommand(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(new(MockRunner))

	_, err := exec.Run(context.Background(), &Command{Cmd: "  "})
	require.Error(t, err)
}

func TestExecutor_RunBuffered(t *testing.T) {
	t.Parallel()

	runner := new(MockRunner)
	exec := NewExecutor(runner)

	runner.On("Run", mock.Anything, mock.MatchedBy(func(c *Command) bool {
		return c.Cmd == "cat" && c.Stdout != nil && c.Stderr != nil
	})).Run(func(args mock.Arguments) {
		cmd := args.Get(1).(*Command)
		_, _ = fmt.Fprint(cmd.Stdout, "out")
		_, _ = fmt.Fprint(cmd.Stderr, "err")
	}).Return(&Result{ExitCode: 1}, nil)

	res, err := exec.RunBuffered(context.Background(), &Command{Cmd: "cat"})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "err", string(exitErr.Stderr))
	assert.Equal(t, "out", string(res.Stdout))
	assert.Equal(t, 1, res.ExitCode)
}
