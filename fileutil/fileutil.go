// Package fileutil holds helpers shared by the file transfer code of the
// providers.
package fileutil

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ruffel/hecdeploy"
)

// TransferReader feeds a file transfer. Every read first checks the context, so
// an io.Copy stops soon after cancellation, and then reports the running byte
// count to the progress callback, if any.
type TransferReader struct {
	ctx      context.Context //nolint:containedctx // scoped to a single copy
	r        io.Reader
	size     int64
	read     int64
	progress hecdeploy.ProgressFunc
}

// NewTransferReader wraps r. size is the expected total, or 0 when unknown.
func NewTransferReader(ctx context.Context, r io.Reader, size int64, progress hecdeploy.ProgressFunc) *TransferReader {
	return &TransferReader{ctx: ctx, r: r, size: size, progress: progress}
}

func (t *TransferReader) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := t.r.Read(p)
	if n > 0 {
		t.read += int64(n)

		if t.progress != nil {
			t.progress(t.read, t.size)
		}
	}

	return n, err
}

// BytesRead returns how many bytes have been read so far.
func (t *TransferReader) BytesRead() int64 {
	return t.read
}

// CheckRemotePathTraversal validates that target is root or lies below it.
// Remote clusters are POSIX hosts, so forward-slash rules apply whatever the
// local operating system.
func CheckRemotePathTraversal(root, target string) error {
	cleanRoot := path.Clean(root)
	cleanTarget := path.Clean(target)

	if cleanRoot == cleanTarget || cleanRoot == "/" && path.IsAbs(cleanTarget) {
		return nil
	}

	if !strings.HasPrefix(cleanTarget, cleanRoot+"/") {
		return fmt.Errorf("illegal remote file path: %s is not within %s", target, root)
	}

	return nil
}
