package hecdeploy

import (
	"context"
	"io"
)

// Runner executes a command synchronously.
//
// Output is not captured by default; attach writers to Command.Stdout/Stderr or use
// Executor.RunBuffered. A non-zero exit status is reported both in the Result and as
// an *ExitError.
type Runner interface {
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// Shell is an interactive login shell attached to a pseudo-terminal.
//
// Everything written is typed into the shell. Reads return whatever the terminal
// prints, including the echo of typed input, prompts and login banners.
type Shell interface {
	io.ReadWriteCloser
}

// ShellOpener opens a new interactive shell.
type ShellOpener func(ctx context.Context) (Shell, error)

// Session is one authenticated connection to a remote cluster.
//
// A Session owns exactly one underlying connection. Every subchannel (command,
// shell, file transfer) is multiplexed over it, and Close releases it.
type Session interface {
	io.Closer
	Runner

	// OpenShell starts an interactive login shell. Variables exported by shell
	// profile scripts are only visible in such a shell.
	OpenShell(ctx context.Context) (Shell, error)

	// Upload copies a local file to the remote destination, creating any missing
	// parent directories there.
	Upload(ctx context.Context, localPath, remotePath string, opts ...FileOption) error

	// Download copies a remote file to the local destination.
	Download(ctx context.Context, remotePath, localPath string, opts ...FileOption) error
}
