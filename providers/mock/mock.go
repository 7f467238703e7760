package mock

import (
	"context"
	"io"

	"github.com/ruffel/hecdeploy"
	"github.com/stretchr/testify/mock"
)

// Session implements a mock hecdeploy.Session using testify/mock.
type Session struct {
	mock.Mock
}

var _ hecdeploy.Session = (*Session)(nil)

// New creates a new mock session.
func New() *Session {
	return &Session{}
}

// Upload mocks uploading a file to the remote session.
func (m *Session) Upload(ctx context.Context, localPath, remotePath string, opts ...hecdeploy.FileOption) error {
	// Variadic capture fix for testify
	args := m.Called(ctx, localPath, remotePath, opts)

	return args.Error(0)
}

// Download mocks downloading a file from the remote session.
func (m *Session) Download(ctx context.Context, remotePath, localPath string, opts ...hecdeploy.FileOption) error {
	args := m.Called(ctx, remotePath, localPath, opts)

	return args.Error(0)
}

// Run mocks running a command to completion.
func (m *Session) Run(ctx context.Context, cmd *hecdeploy.Command) (*hecdeploy.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*hecdeploy.Result), args.Error(1)
}

// OpenShell mocks opening an interactive shell.
func (m *Session) OpenShell(ctx context.Context) (hecdeploy.Shell, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(hecdeploy.Shell), args.Error(1)
}

// Close mocks closing the session.
func (m *Session) Close() error {
	args := m.Called()

	return args.Error(0)
}

// WriteOutput is a helper to simulate output writing for mocked commands.
// Usage: s.On("Run", ...).Run(WriteOutput("output")).Return(&hecdeploy.Result{}, nil).
func WriteOutput(content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		cmd, ok := args.Get(1).(*hecdeploy.Command)
		if ok && cmd.Stdout != nil {
			_, _ = io.WriteString(cmd.Stdout, content)
		}
	}
}
