package hecdeploy

import "os"

// ProgressFunc receives the bytes copied so far and the total size, or 0 when
// the size is unknown. It is called on the goroutine doing the transfer.
type ProgressFunc func(current, total int64)

// FileConfig is the effective set of transfer options.
type FileConfig struct {
	// Permissions of the destination file. Zero keeps the source file's mode.
	Permissions os.FileMode

	// Progress, when set, is called after every chunk copied.
	Progress ProgressFunc
}

// FileOption tunes a single Upload or Download.
type FileOption func(*FileConfig)

// NewFileConfig applies opts in order.
func NewFileConfig(opts ...FileOption) FileConfig {
	var cfg FileConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithPermissions sets the mode of the destination file.
func WithPermissions(mode os.FileMode) FileOption {
	return func(c *FileConfig) {
		c.Permissions = mode
	}
}

// WithProgress reports transfer progress to fn.
func WithProgress(fn ProgressFunc) FileOption {
	return func(c *FileConfig) {
		c.Progress = fn
	}
}
