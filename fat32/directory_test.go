package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedfs/fat32/fat32"
)

func TestDirectoryCreateAndLookupShortName(t *testing.T) {
	_, layout := newFormattedVolume(t)
	root := fat32.OpenDirectory(layout, layout.RootCluster)

	cluster, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster, fat32.ClusterEOCMax))

	_, err = root.Create("README.TXT", fat32.AttrArchive, cluster, fixedTime)
	require.NoError(t, err)

	entry, err := root.Lookup("readme.txt")
	require.NoError(t, err)
	require.Equal(t, "README.TXT", entry.Name)
	require.Equal(t, cluster, entry.SFN.FirstCluster())
	require.Zero(t, entry.LFNCount)
}

func TestDirectoryCreateLongNameGetsDerivedShortName(t *testing.T) {
	_, layout := newFormattedVolume(t)
	root := fat32.OpenDirectory(layout, layout.RootCluster)

	cluster, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster, fat32.ClusterEOCMax))

	longName := "This is a valid long filename.txt"
	entry, err := root.Create(longName, fat32.AttrArchive, cluster, fixedTime)
	require.NoError(t, err)
	require.Equal(t, longName, entry.Name)
	require.Positive(t, entry.LFNCount)
	require.Equal(t, "THISIS~1TXT", string(entry.SFN.Name[:]))

	found, err := root.Lookup(longName)
	require.NoError(t, err)
	require.Equal(t, longName, found.Name)
}

func TestDirectoryCreateRejectsDuplicateName(t *testing.T) {
	_, layout := newFormattedVolume(t)
	root := fat32.OpenDirectory(layout, layout.RootCluster)

	cluster1, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster1, fat32.ClusterEOCMax))
	_, err = root.Create("DUP.TXT", fat32.AttrArchive, cluster1, fixedTime)
	require.NoError(t, err)

	cluster2, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster2, fat32.ClusterEOCMax))
	_, err = root.Create("DUP.TXT", fat32.AttrArchive, cluster2, fixedTime)
	require.Error(t, err)
}

func TestDirectoryDeleteRemovesWholeLFNRun(t *testing.T) {
	_, layout := newFormattedVolume(t)
	root := fat32.OpenDirectory(layout, layout.RootCluster)

	cluster, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster, fat32.ClusterEOCMax))

	longName := "a rather long descriptive file name.dat"
	entry, err := root.Create(longName, fat32.AttrArchive, cluster, fixedTime)
	require.NoError(t, err)
	require.NoError(t, root.Delete(entry))

	_, err = root.Lookup(longName)
	require.Error(t, err)

	// The freed slots must be reusable by a subsequent create.
	cluster2, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster2, fat32.ClusterEOCMax))
	_, err = root.Create("reuse me afterwards.dat", fat32.AttrArchive, cluster2, fixedTime)
	require.NoError(t, err)
}

func TestDirectoryListSkipsDeletedSlots(t *testing.T) {
	_, layout := newFormattedVolume(t)
	root := fat32.OpenDirectory(layout, layout.RootCluster)

	cluster, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster, fat32.ClusterEOCMax))
	entry, err := root.Create("TOKEEP.TXT", fat32.AttrArchive, cluster, fixedTime)
	require.NoError(t, err)

	cluster2, err := layout.Allocate()
	require.NoError(t, err)
	require.NoError(t, layout.Update(cluster2, fat32.ClusterEOCMax))
	deleted, err := root.Create("TODELETE.TXT", fat32.AttrArchive, cluster2, fixedTime)
	require.NoError(t, err)
	require.NoError(t, root.Delete(deleted))

	entries, err := root.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entry.Name, entries[0].Name)
}

func TestDirectoryIsEmptyIgnoresDotEntries(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/sub"))

	entry, err := fat32.OpenDirectory(layout, layout.RootCluster).Lookup("sub")
	require.NoError(t, err)

	child := fat32.OpenDirectory(layout, entry.SFN.FirstCluster())
	empty, err := child.IsEmpty()
	require.NoError(t, err)
	require.True(t, empty)

	entries, err := child.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
