package fat32_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedfs/fat32/fat32"
)

func TestFileWriteThenReadRoundTrip(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/data.bin", fat32.ModeWrite)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte("0123456789"), 1000) // spans multiple sectors/clusters
	n, err := w.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, w.Close())

	r, err := fat32.Open(layout, "/data.bin", fat32.ModeRead)
	require.NoError(t, err)
	readBack := make([]byte, len(payload))
	total := 0
	for total < len(readBack) {
		n, err := r.Read(readBack[total:])
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	require.Equal(t, payload, readBack[:total])
}

func TestFileSizeAccurateAfterFlush(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/sized.bin", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entry, _, err := fat32.Resolve(layout, "/sized.bin")
	require.NoError(t, err)
	require.EqualValues(t, len("hello world"), entry.SFN.FileSize)
}

func TestFileWriteTruncatesExistingContent(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/trunc.bin", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte("x"), 8192))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := fat32.Open(layout, "/trunc.bin", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w2.Write([]byte("short"))
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	entry, _, err := fat32.Resolve(layout, "/trunc.bin")
	require.NoError(t, err)
	require.EqualValues(t, len("short"), entry.SFN.FileSize)

	r, err := fat32.Open(layout, "/trunc.bin", fat32.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "short", string(buf[:n]))
}

func TestFileAppendPreservesExistingContent(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/log.txt", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("first "))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	a, err := fat32.Open(layout, "/log.txt", fat32.ModeAppend)
	require.NoError(t, err)
	_, err = a.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	r, err := fat32.Open(layout, "/log.txt", fat32.ModeRead)
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "first second", string(buf[:n]))
}

func TestFileSeekAndTell(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/seek.bin", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefghij"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fat32.Open(layout, "/seek.bin", fat32.ModeRead)
	require.NoError(t, err)

	pos, err := r.Seek(3, fat32.SeekSet)
	require.NoError(t, err)
	require.EqualValues(t, 3, pos)
	require.EqualValues(t, 3, r.Tell())

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "de", string(buf[:n]))

	_, err = r.Seek(0, fat32.SeekEnd)
	require.NoError(t, err)
	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = r.Seek(-1, fat32.SeekSet)
	require.Error(t, err)
}

func TestFileSeekPastEndIsRejected(t *testing.T) {
	_, layout := newFormattedVolume(t)

	w, err := fat32.Open(layout, "/seekpast.bin", fat32.ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefghij"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fat32.Open(layout, "/seekpast.bin", fat32.ModeRead)
	require.NoError(t, err)

	pos, err := r.Seek(5, fat32.SeekSet)
	require.NoError(t, err)
	require.EqualValues(t, 5, pos)

	_, err = r.Seek(11, fat32.SeekSet)
	require.Error(t, err)
	require.EqualValues(t, 5, r.Tell(), "rejected seek must not mutate the handle's position")

	_, err = r.Seek(10, fat32.SeekSet)
	require.NoError(t, err, "seeking exactly to size is the valid end-of-file position")
}

func TestFileOpenReadNonexistentFails(t *testing.T) {
	_, layout := newFormattedVolume(t)
	_, err := fat32.Open(layout, "/missing.txt", fat32.ModeRead)
	require.Error(t, err)
}

func TestFileOpenDirectoryAsFileFails(t *testing.T) {
	_, layout := newFormattedVolume(t)
	require.NoError(t, fat32.Mkdir(layout, "/adir"))
	_, err := fat32.Open(layout, "/adir", fat32.ModeRead)
	require.Error(t, err)
}
