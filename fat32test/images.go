// Package fat32test builds in-memory block devices for exercising the
// fat32 package's tests: either freshly formatted, or expanded from a
// compressed golden image embedded as bytes. Grounded on the teacher's
// testing/images.go, adapted from a raw io.ReadWriteSeeker factory into one
// that returns blockdev.BlockDevice values this module's mount/format API
// consumes directly.
package fat32test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embedfs/fat32/blockdev"
	"github.com/embedfs/fat32/fat32"
	"github.com/embedfs/fat32/utilities/compression"
)

// NewFormattedDevice builds an in-memory device of the given geometry,
// formats it with opts, mounts it, and returns both.
func NewFormattedDevice(
	t *testing.T, blockSize, totalBlocks uint, opts fat32.FormatOptions,
) (*blockdev.MemoryDevice, *fat32.Layout) {
	device := blockdev.NewMemoryDevice(blockSize, totalBlocks)
	require.NoError(t, fat32.Format(device, opts))

	layout, err := fat32.Mount(device, fat32.MountOptions{})
	require.NoError(t, err)
	return device, layout
}

// LoadCompressedImage decompresses a gzip+RLE8-encoded golden disk image
// (compressedImageBytes, typically a go:embed'd fixture) into an in-memory
// block device of the stated geometry. Writes to the returned device never
// touch compressedImageBytes.
func LoadCompressedImage(
	t *testing.T, compressedImageBytes []byte, blockSize, totalBlocks uint,
) *blockdev.MemoryDevice {
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t, totalBlocks*blockSize, uint(len(imageBytes)), "uncompressed image is wrong size",
	)

	return blockdev.NewMemoryDeviceFromBytes(imageBytes, blockSize)
}
