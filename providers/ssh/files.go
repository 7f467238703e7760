package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/sftp"
	"github.com/ruffel/hecdeploy"
	"github.com/ruffel/hecdeploy/fileutil"
)

// Upload copies a local file to remotePath over SFTP, creating missing remote
// parent directories. remotePath must already be literal: SFTP does not expand
// shell variables.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string, opts ...hecdeploy.FileOption) error {
	cfg := hecdeploy.NewFileConfig(opts...)

	sftpClient, err := s.sftpClient()
	if err != nil {
		return err
	}

	defer func() { _ = sftpClient.Close() }()

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("upload %s: is a directory", localPath)
	}

	mode := info.Mode().Perm()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	remotePath = strings.ReplaceAll(remotePath, "\\", "/")

	if err := sftpClient.MkdirAll(pathpkg.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote directory %q: %w", pathpkg.Dir(remotePath), err)
	}

	dst, err := sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %q: %w", remotePath, err)
	}

	var result *multierror.Error

	if err := copyWithProgress(ctx, dst, src, info.Size(), cfg.Progress); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to upload %q: %w", remotePath, err))
	}

	if err := dst.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := sftpClient.Chmod(remotePath, mode); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to chmod remote file: %w", err))
	}

	return result.ErrorOrNil()
}

// Download copies a remote file to localPath over SFTP, creating missing local
// parent directories.
func (s *Session) Download(ctx context.Context, remotePath, localPath string, opts ...hecdeploy.FileOption) error {
	cfg := hecdeploy.NewFileConfig(opts...)

	sftpClient, err := s.sftpClient()
	if err != nil {
		return err
	}

	defer func() { _ = sftpClient.Close() }()

	src, err := sftpClient.Open(remotePath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("download %s: is a directory", remotePath)
	}

	mode := info.Mode().Perm()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	var result *multierror.Error

	if err := copyWithProgress(ctx, dst, src, info.Size(), cfg.Progress); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to download %q: %w", remotePath, err))
	}

	if err := dst.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func (s *Session) sftpClient() (*sftp.Client, error) {
	client, err := s.activeClient()
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return sftpClient, nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, size int64, progress hecdeploy.ProgressFunc) error {
	if progress != nil {
		progress(0, size)
	}

	_, err := io.Copy(dst, fileutil.NewTransferReader(ctx, src, size, progress))

	return err
}
