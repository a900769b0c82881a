package blockdev

import (
	"os"
	"time"

	"github.com/embedfs/fat32/errors"
)

// FileDevice is a BlockDevice backed by a real file on disk, used by the
// cmd/fat32util demo CLI to operate on .img files instead of an in-memory
// buffer.
type FileDevice struct {
	file        *os.File
	blockSize   uint
	totalBlocks uint
}

// OpenFileDevice opens an existing image file at path as a BlockDevice.
// Its size must be an exact multiple of blockSize.
func OpenFileDevice(path string, blockSize uint) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.ErrReadFail.Wrap(err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.ErrReadFail.Wrap(err)
	}
	return &FileDevice{
		file:        file,
		blockSize:   blockSize,
		totalBlocks: uint(info.Size()) / blockSize,
	}, nil
}

// CreateFileDevice creates a new zero-filled image file of
// blockSize*totalBlocks bytes at path and opens it as a BlockDevice.
func CreateFileDevice(path string, blockSize, totalBlocks uint) (*FileDevice, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.ErrWriteFail.Wrap(err)
	}
	if err := file.Truncate(int64(blockSize * totalBlocks)); err != nil {
		file.Close()
		return nil, errors.ErrWriteFail.Wrap(err)
	}
	return &FileDevice{file: file, blockSize: blockSize, totalBlocks: totalBlocks}, nil
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error { return d.file.Close() }

func (d *FileDevice) BlockSize() uint   { return d.blockSize }
func (d *FileDevice) TotalBlocks() uint { return d.totalBlocks }

// Clock reports the host wall clock; real image files have no device-side
// clock of their own.
func (d *FileDevice) Clock() (time.Time, bool) { return time.Now(), true }

func (d *FileDevice) checkBounds(startBlock, blockCount uint) error {
	if startBlock+blockCount > d.totalBlocks {
		return errors.ErrInvalidArgument.WithMessage("block range extends past end of device")
	}
	return nil
}

func (d *FileDevice) ReadBlocks(buf []byte, startBlock, blockCount uint) error {
	if err := d.checkBounds(startBlock, blockCount); err != nil {
		return err
	}
	if _, err := d.file.ReadAt(buf[:blockCount*d.blockSize], int64(startBlock*d.blockSize)); err != nil {
		return errors.ErrReadFail.Wrap(err)
	}
	return nil
}

func (d *FileDevice) WriteBlocks(buf []byte, startBlock, blockCount uint) error {
	if err := d.checkBounds(startBlock, blockCount); err != nil {
		return err
	}
	if _, err := d.file.WriteAt(buf[:blockCount*d.blockSize], int64(startBlock*d.blockSize)); err != nil {
		return errors.ErrWriteFail.Wrap(err)
	}
	return nil
}

func (d *FileDevice) EraseBlocks(startBlock, blockCount uint) error {
	return d.WriteBlocks(make([]byte, blockCount*d.blockSize), startBlock, blockCount)
}
