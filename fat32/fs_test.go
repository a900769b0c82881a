package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedfs/fat32/fat32"
)

func TestMkdirThenDeleteDirSafe(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/empty"))
	require.True(t, fat32.PathExists(layout, "/empty"))

	require.NoError(t, fat32.DeleteDir(layout, "/empty", fat32.SafeDelete))
	require.False(t, fat32.PathExists(layout, "/empty"))
}

func TestDeleteDirSafeRejectsNonEmpty(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/full"))

	w, err := fat32.Open(layout, "/full/child.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = fat32.DeleteDir(layout, "/full", fat32.SafeDelete)
	require.Error(t, err)
}

func TestDeleteDirRecursiveRemovesDescendants(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/tree"))
	require.NoError(t, fat32.Mkdir(layout, "/tree/sub"))

	w, err := fat32.Open(layout, "/tree/top.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := fat32.Open(layout, "/tree/sub/leaf.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	require.NoError(t, fat32.DeleteDir(layout, "/tree", fat32.RecursiveDelete))
	require.False(t, fat32.PathExists(layout, "/tree"))
}

func TestDeleteFileThenPathExistsIsFalse(t *testing.T) {
	_, layout := newFormattedVolume(t)
	w, err := fat32.Open(layout, "/gone.txt", fat32.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.True(t, fat32.PathExists(layout, "/gone.txt"))

	require.NoError(t, fat32.DeleteFile(layout, "/gone.txt"))
	require.False(t, fat32.PathExists(layout, "/gone.txt"))
}

func TestDeleteThenRecreateSameName(t *testing.T) {
	_, layout := newFormattedVolume(t)
	w, err := fat32.Open(layout, "/again.txt", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("v1"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, fat32.DeleteFile(layout, "/again.txt"))

	w2, err := fat32.Open(layout, "/again.txt", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w2.Write([]byte("v2 content"))
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	entry, _, err := fat32.Resolve(layout, "/again.txt")
	require.NoError(t, err)
	require.EqualValues(t, len("v2 content"), entry.SFN.FileSize)
}

func TestMkdirRejectsDuplicate(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/dup"))
	require.Error(t, fat32.Mkdir(layout, "/dup"))
}
