// Package assets embeds the built-in cluster defaults and submission script templates.
package assets

import (
	"embed"
	"io/fs"

	"github.com/spf13/afero"
)

// Directory names inside the embedded filesystem.
const (
	ClustersDir  = "clusters"
	TemplatesDir = "templates"
)

//go:embed clusters/*.yml templates/*.sh
var files embed.FS

// Clusters returns the built-in <cluster_id>.yml defaults, rooted at the directory.
func Clusters() afero.Fs {
	return sub(ClustersDir)
}

// Templates returns the built-in <cluster_id>.sh templates, rooted at the directory.
func Templates() afero.Fs {
	return sub(TemplatesDir)
}

// Overlay layers an on-disk directory over base. Files in dir shadow base; nothing
// is ever written to base. An empty dir returns base unchanged.
func Overlay(base afero.Fs, dir string) afero.Fs {
	if dir == "" {
		return base
	}

	return afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func sub(dir string) afero.Fs {
	s, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed directive and constants disagree.
		panic(err)
	}

	return afero.FromIOFS{FS: s}
}
