package allocator_test

import (
	"testing"

	"github.com/embedfs/fat32/allocator"
	"github.com/embedfs/fat32/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocatorAllocIsZeroed(t *testing.T) {
	p := allocator.NewPoolAllocator(64)
	buf, err := p.Alloc(16)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestPoolAllocatorFreeThenReallocate(t *testing.T) {
	p := allocator.NewPoolAllocator(32)

	first, err := p.Alloc(32)
	require.NoError(t, err)

	_, err = p.Alloc(1)
	assert.ErrorIs(t, err, errors.ErrOutOfMemory)

	require.NoError(t, p.Free(first, 32))

	second, err := p.Alloc(32)
	require.NoError(t, err)
	require.Len(t, second, 32)
}

func TestPoolAllocatorRejectsForeignBuffer(t *testing.T) {
	p := allocator.NewPoolAllocator(16)
	foreign := make([]byte, 4)
	err := p.Free(foreign, 4)
	assert.Error(t, err)
}

func TestPoolAllocatorRejectsZeroSize(t *testing.T) {
	p := allocator.NewPoolAllocator(16)
	_, err := p.Alloc(0)
	assert.Error(t, err)
}
