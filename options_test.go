package hecdeploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFileConfig(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FileConfig{}, NewFileConfig())

	var calls int

	cfg := NewFileConfig(WithPermissions(0o600), WithPermissions(0o644), WithProgress(func(int64, int64) { calls++ }))
	assert.Equal(t, 0o644, int(cfg.Permissions))

	cfg.Progress(1, 2)
	assert.Equal(t, 1, calls)
}
