// Package archive packs a project directory into a ZIP file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Archiver writes the contents of srcDir to the ZIP file dst.
type Archiver interface {
	Archive(ctx context.Context, srcDir, dst string) error
}

// ArchiverFunc adapts a function to the Archiver interface.
type ArchiverFunc func(ctx context.Context, srcDir, dst string) error

// Archive calls f.
func (f ArchiverFunc) Archive(ctx context.Context, srcDir, dst string) error {
	return f(ctx, srcDir, dst)
}

// Zipper is the default Archiver over an afero filesystem.
type Zipper struct {
	Fs afero.Fs
}

// Archive implements Archiver.
func (z Zipper) Archive(ctx context.Context, srcDir, dst string) error {
	return Zip(ctx, z.Fs, srcDir, dst)
}

// Zip writes every regular file under srcDir into a new ZIP archive at dst,
// replacing any existing file. Entry names are relative to srcDir and use forward
// slashes. Entries are written in lexical order so repeated runs over the same
// tree produce the same listing. dst itself is skipped if it lies inside srcDir.
func Zip(ctx context.Context, fsys afero.Fs, srcDir, dst string) (err error) {
	info, err := fsys.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("failed to stat project directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("archive source %s: not a directory", srcDir)
	}

	files, err := collect(fsys, srcDir, dst)
	if err != nil {
		return err
	}

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)

	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}

		if cerr := zw.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to finalize archive: %w", cerr))
		}

		if cerr := out.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}

		err = result.ErrorOrNil()
	}()

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := addFile(zw, fsys, srcDir, rel); err != nil {
			return err
		}
	}

	return nil
}

// collect lists regular files under root relative to it, skipping dst.
func collect(fsys afero.Fs, root, dst string) ([]string, error) {
	cleanDst := filepath.Clean(dst)

	var files []string

	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() || filepath.Clean(p) == cleanDst {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		files = append(files, rel)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project directory: %w", err)
	}

	sort.Strings(files)

	return files, nil
}

func addFile(zw *zip.Writer, fsys afero.Fs, root, rel string) error {
	p := filepath.Join(root, rel)

	info, err := fsys.Stat(p)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = strings.ReplaceAll(filepath.ToSlash(rel), "\\", "/")
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", header.Name, err)
	}

	f, err := fsys.Open(p)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", header.Name, err)
	}

	return nil
}
