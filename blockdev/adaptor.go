package blockdev

import (
	"fmt"

	"github.com/embedfs/fat32/errors"
)

// DefaultMaxRetries is the number of attempts the adaptor makes on a
// transient read or write failure before surfacing it, per spec §4.1.
const DefaultMaxRetries = 3

// Adaptor normalizes reads and writes expressed in FAT "sectors" (whatever
// bytesPerSector the mounted volume uses) onto a BlockDevice's native block
// size. The common case is sectorBytes == device.BlockSize(), where the
// translation is the identity; the general case divides and borrows a
// block-sized scratch buffer to cover the unaligned tail, exactly as spec
// §4.1 describes.
//
// Grounded on the teacher's drivers/common/blockdevice.go and
// blockstream.go: same offset math and bounds checking, restructured around
// an interface instead of a concrete io.Seeker so any BlockDevice
// implementation can be adapted.
type Adaptor struct {
	Device      BlockDevice
	SectorBytes uint
	MaxRetries  int
}

// NewAdaptor builds an Adaptor over device, addressing in units of
// sectorBytes. MaxRetries defaults to DefaultMaxRetries.
func NewAdaptor(device BlockDevice, sectorBytes uint) *Adaptor {
	return &Adaptor{
		Device:      device,
		SectorBytes: sectorBytes,
		MaxRetries:  DefaultMaxRetries,
	}
}

func (a *Adaptor) blockSize() uint { return a.Device.BlockSize() }

// blockSpan returns the inclusive-exclusive range of native blocks that
// fully cover the byte range [startSector*SectorBytes,
// (startSector+sectorCount)*SectorBytes), along with the byte offset of
// that sector range within the first covered block.
func (a *Adaptor) blockSpan(startSector, sectorCount uint) (blockStart, blockCount uint, byteOffset uint) {
	blockBytes := a.blockSize()
	byteStart := startSector * a.SectorBytes
	byteEnd := (startSector + sectorCount) * a.SectorBytes

	blockStart = byteStart / blockBytes
	blockEndExclusive := (byteEnd + blockBytes - 1) / blockBytes
	return blockStart, blockEndExclusive - blockStart, byteStart - blockStart*blockBytes
}

// ReadSectors reads sectorCount sectors starting at startSector into buf.
// len(buf) must equal sectorCount * SectorBytes.
func (a *Adaptor) ReadSectors(buf []byte, startSector, sectorCount uint) error {
	wantLen := int(sectorCount * a.SectorBytes)
	if len(buf) != wantLen {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("buffer length %d does not match %d requested sectors", len(buf), sectorCount))
	}

	blockStart, blockCount, byteOffset := a.blockSpan(startSector, sectorCount)
	scratch := make([]byte, blockCount*a.blockSize())

	if err := a.retry(func() error {
		return a.Device.ReadBlocks(scratch, blockStart, blockCount)
	}); err != nil {
		return errors.ErrReadFail.Wrap(err)
	}

	copy(buf, scratch[byteOffset:byteOffset+uint(wantLen)])
	return nil
}

// WriteSectors writes sectorCount sectors starting at startSector from buf.
// len(buf) must equal sectorCount * SectorBytes. When the sector range does
// not land on native block boundaries, the covering blocks are read first
// so untouched bytes are preserved (read-modify-write).
func (a *Adaptor) WriteSectors(buf []byte, startSector, sectorCount uint) error {
	wantLen := int(sectorCount * a.SectorBytes)
	if len(buf) != wantLen {
		return errors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("buffer length %d does not match %d requested sectors", len(buf), sectorCount))
	}

	blockStart, blockCount, byteOffset := a.blockSpan(startSector, sectorCount)
	blockBytes := a.blockSize()
	aligned := byteOffset == 0 && uint(wantLen) == blockCount*blockBytes

	var scratch []byte
	if aligned {
		scratch = buf
	} else {
		scratch = make([]byte, blockCount*blockBytes)
		if err := a.retry(func() error {
			return a.Device.ReadBlocks(scratch, blockStart, blockCount)
		}); err != nil {
			return errors.ErrReadFail.Wrap(err)
		}
		copy(scratch[byteOffset:byteOffset+uint(wantLen)], buf)
	}

	if err := a.retry(func() error {
		return a.Device.WriteBlocks(scratch, blockStart, blockCount)
	}); err != nil {
		return errors.ErrWriteFail.Wrap(err)
	}
	return nil
}

// retry attempts op up to MaxRetries times, returning the final attempt's
// error unmodified. No caching or backoff: a transient failure is retried
// immediately, per spec §4.1.
func (a *Adaptor) retry(op func() error) error {
	max := a.MaxRetries
	if max <= 0 {
		max = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < max; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
