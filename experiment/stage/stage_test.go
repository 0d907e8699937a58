package stage

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replab/replab/golib/fileutil"
)

func TestPrepareOutputDirFresh(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, PrepareOutputDir(fs, "/out/model", false))

	info, err := fs.Stat("/out/model")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPrepareOutputDirRefusesToMerge(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fileutil.WriteFile(fs, "/out/model/checkpoint", []byte("old")))

	err := PrepareOutputDir(fs, "/out/model", false)
	require.Error(t, err, "non-empty output without overwrite must fail")

	// prior contents stay untouched
	data, err := afero.ReadFile(fs, "/out/model/checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestPrepareOutputDirOverwriteDiscards(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fileutil.WriteFile(fs, "/out/model/checkpoint", []byte("old")))

	require.NoError(t, PrepareOutputDir(fs, "/out/model", true))

	exists, err := fileutil.Exists(fs, "/out/model/checkpoint")
	require.NoError(t, err)
	assert.False(t, exists)

	nonEmpty, err := fileutil.NonEmpty(fs, "/out/model")
	require.NoError(t, err)
	assert.False(t, nonEmpty, "overwrite should leave a fresh empty directory")
}

func TestPrepareOutputDirEmptyDirOK(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out/model", 0755))

	assert.NoError(t, PrepareOutputDir(fs, "/out/model", false))
}
