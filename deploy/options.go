package deploy

import (
	"io"

	"github.com/ruffel/hecdeploy"
	"github.com/ruffel/hecdeploy/archive"
	"github.com/ruffel/hecdeploy/remotepath"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProjectDir sets the local project directory (default: working directory).
func WithProjectDir(dir string) Option {
	return func(o *Orchestrator) {
		o.projectDir = dir
	}
}

// WithFs sets the filesystem holding the project (default: the OS filesystem).
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) {
		o.fs = fs
	}
}

// WithTemplates sets the filesystem of <cluster_id>.sh submission templates.
func WithTemplates(fs afero.Fs) Option {
	return func(o *Orchestrator) {
		o.templates = fs
	}
}

// WithLocalRunner sets the runner used for environment capture.
func WithLocalRunner(r hecdeploy.Runner) Option {
	return func(o *Orchestrator) {
		o.local = r
	}
}

// WithDialer sets how the remote session is established (default: SSHDialer).
func WithDialer(d Dialer) Option {
	return func(o *Orchestrator) {
		o.dial = d
	}
}

// WithResolver sets the remote path resolver.
func WithResolver(r *remotepath.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithArchiver replaces the default ZIP archiver.
func WithArchiver(a archive.Archiver) Option {
	return func(o *Orchestrator) {
		o.archiver = a
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithProgressOutput renders upload progress bars to w.
func WithProgressOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.progressOut = w
	}
}

// WithStageHook calls fn every time a stage completes.
func WithStageHook(fn func(Stage)) Option {
	return func(o *Orchestrator) {
		o.hook = fn
	}
}
