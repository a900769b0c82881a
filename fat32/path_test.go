package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedfs/fat32/errors"
	"github.com/embedfs/fat32/fat32"
)

func TestSplitParent(t *testing.T) {
	dir, base := fat32.SplitParent("/a/b/c")
	assert.Equal(t, "/a/b", dir)
	assert.Equal(t, "c", base)

	dir, base = fat32.SplitParent("/a")
	assert.Equal(t, "/", dir)
	assert.Equal(t, "a", base)
}

func TestResolveNestedPath(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/docs"))
	require.NoError(t, fat32.Mkdir(layout, "/docs/2026"))

	f, err := fat32.Open(layout, "/docs/2026/notes.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entry, _, err := fat32.Resolve(layout, "/docs/2026/notes.txt")
	require.NoError(t, err)
	require.Equal(t, "notes.txt", entry.Name)
}

func TestResolveRejectsRelativePath(t *testing.T) {
	_, layout := newFormattedVolume(t)
	_, _, err := fat32.Resolve(layout, "relative/path")
	require.Error(t, err)
}

func TestResolveThroughFileComponentFails(t *testing.T) {
	_, layout := newFormattedVolume(t)
	f, err := fat32.Open(layout, "/a.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = fat32.Resolve(layout, "/a.txt/b.txt")
	require.Error(t, err)
}

func TestResolveMissingIntermediateDirReturnsInvalidPath(t *testing.T) {
	_, layout := newFormattedVolume(t)
	_, _, err := fat32.Resolve(layout, "/absent/child.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPath),
		"a missing intermediate component is an invalid path, not a missing file")
}

func TestOpenWithMissingIntermediateDirReturnsInvalidPath(t *testing.T) {
	_, layout := newFormattedVolume(t)
	_, err := fat32.Open(layout, "/a/b.txt", fat32.ModeWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPath))
}

func TestPathExists(t *testing.T) {
	_, layout := newFormattedVolume(t)
	assert.True(t, fat32.PathExists(layout, "/"))
	assert.False(t, fat32.PathExists(layout, "/nope"))

	require.NoError(t, fat32.Mkdir(layout, "/here"))
	assert.True(t, fat32.PathExists(layout, "/here"))
}
