package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ruffel/hecdeploy/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusters(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"example-slurm", "example-sge"} {
		t.Run(id, func(t *testing.T) {
			t.Parallel()

			s, err := config.LoadClusterDefaults(Clusters(), "", id)
			require.NoError(t, err)

			assert.NotEmpty(t, s[config.KeyHostname])
			assert.NotEmpty(t, s[config.KeyRemoteDir])

			exists, err := afero.Exists(Templates(), id+".sh")
			require.NoError(t, err)
			assert.True(t, exists, "every built-in cluster ships a template")
		})
	}
}

func TestOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "example-slurm.sh"), []byte("#!/bin/sh\necho custom\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.sh"), []byte("#!/bin/sh\n"), 0o644))

	fsys := Overlay(Templates(), dir)

	data, err := afero.ReadFile(fsys, "example-slurm.sh")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho custom\n", string(data))

	for _, name := range []string{"mine.sh", "example-sge.sh"} {
		exists, err := afero.Exists(fsys, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}
