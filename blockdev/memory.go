package blockdev

import (
	"io"
	"time"

	"github.com/embedfs/fat32/errors"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a BlockDevice backed by a fixed-size in-memory buffer. It
// exists for tests (the cmd/fat32util demo CLI uses FileDevice instead) —
// never a production backing store.
//
// Grounded on the teacher's testing/images.go, which wraps a []byte with
// bytesextra.NewReadWriteSeeker to get an io.ReadWriteSeeker; this type adds
// the block-addressed Read/Write/Erase surface blockdev.BlockDevice needs on
// top of that seeker.
type MemoryDevice struct {
	stream      io.ReadWriteSeeker
	blockSize   uint
	totalBlocks uint
	clock       func() time.Time
}

// NewMemoryDevice allocates a zeroed buffer of blockSize*totalBlocks bytes
// and wraps it as a BlockDevice.
func NewMemoryDevice(blockSize, totalBlocks uint) *MemoryDevice {
	buf := make([]byte, blockSize*totalBlocks)
	return NewMemoryDeviceFromBytes(buf, blockSize)
}

// NewMemoryDeviceFromBytes wraps an existing byte slice (e.g. a decompressed
// golden fixture image) as a BlockDevice. len(data) must be an exact
// multiple of blockSize.
func NewMemoryDeviceFromBytes(data []byte, blockSize uint) *MemoryDevice {
	return &MemoryDevice{
		stream:      bytesextra.NewReadWriteSeeker(data),
		blockSize:   blockSize,
		totalBlocks: uint(len(data)) / blockSize,
	}
}

// WithClock attaches a clock function, used by tests that want deterministic
// timestamps in written directory entries instead of the zero value.
func (d *MemoryDevice) WithClock(clock func() time.Time) *MemoryDevice {
	d.clock = clock
	return d
}

func (d *MemoryDevice) BlockSize() uint   { return d.blockSize }
func (d *MemoryDevice) TotalBlocks() uint { return d.totalBlocks }

func (d *MemoryDevice) Clock() (time.Time, bool) {
	if d.clock == nil {
		return time.Time{}, false
	}
	return d.clock(), true
}

func (d *MemoryDevice) checkBounds(startBlock, blockCount uint) error {
	if startBlock+blockCount > d.totalBlocks {
		return errors.ErrInvalidArgument.WithMessage("block range extends past end of device")
	}
	return nil
}

func (d *MemoryDevice) seek(startBlock uint) error {
	_, err := d.stream.Seek(int64(startBlock*d.blockSize), io.SeekStart)
	return err
}

func (d *MemoryDevice) ReadBlocks(buf []byte, startBlock, blockCount uint) error {
	if err := d.checkBounds(startBlock, blockCount); err != nil {
		return err
	}
	if err := d.seek(startBlock); err != nil {
		return err
	}
	_, err := io.ReadFull(d.stream, buf[:blockCount*d.blockSize])
	return err
}

func (d *MemoryDevice) WriteBlocks(buf []byte, startBlock, blockCount uint) error {
	if err := d.checkBounds(startBlock, blockCount); err != nil {
		return err
	}
	if err := d.seek(startBlock); err != nil {
		return err
	}
	_, err := d.stream.Write(buf[:blockCount*d.blockSize])
	return err
}

func (d *MemoryDevice) EraseBlocks(startBlock, blockCount uint) error {
	if err := d.checkBounds(startBlock, blockCount); err != nil {
		return err
	}
	zeros := make([]byte, blockCount*d.blockSize)
	return d.WriteBlocks(zeros, startBlock, blockCount)
}
