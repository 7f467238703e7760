package fileutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRemotePathTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		root      string
		target    string
		expectErr bool
	}{
		{name: "Child", root: "/home/u/proj", target: "/home/u/proj/demo.zip"},
		{name: "Root itself", root: "/home/u/proj", target: "/home/u/proj/"},
		{name: "Filesystem root", root: "/", target: "/demo.zip"},
		{name: "Traversal", root: "/home/u/proj", target: "/home/u/proj/../evil.zip", expectErr: true},
		{name: "Sibling prefix", root: "/home/u/proj", target: "/home/u/project/demo.zip", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckRemotePathTraversal(tt.root, tt.target)
			if tt.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTransferReader(t *testing.T) {
	t.Parallel()

	var calls [][2]int64

	tr := NewTransferReader(context.Background(), strings.NewReader("hello world"), 11, func(current, total int64) {
		calls = append(calls, [2]int64{current, total})
	})

	var out bytes.Buffer

	_, err := io.CopyBuffer(struct{ io.Writer }{&out}, struct{ io.Reader }{tr}, make([]byte, 4))
	require.NoError(t, err)

	assert.Equal(t, "hello world", out.String())
	assert.Equal(t, int64(11), tr.BytesRead())
	assert.Equal(t, [][2]int64{{4, 11}, {8, 11}, {11, 11}}, calls)
}

func TestTransferReader_NoProgress(t *testing.T) {
	t.Parallel()

	tr := NewTransferReader(context.Background(), strings.NewReader("data"), 0, nil)

	out, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "data", string(out))
}

func TestTransferReader_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTransferReader(ctx, strings.NewReader("data"), 4, nil)

	_, err := tr.Read(make([]byte, 4))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, tr.BytesRead())
}
