// Package fat32 implements the FAT32 core described in spec §§3-4: boot
// sector parsing (FSInfo is only written, by the formatter), the FAT table
// manager, the cluster chain
// walker, the LFN-aware directory engine, the path resolver, file handle
// I/O, and the formatter.
package fat32

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"time"

	"github.com/embedfs/fat32/allocator"
	"github.com/embedfs/fat32/blockdev"
	"github.com/embedfs/fat32/errors"
	"github.com/embedfs/fat32/logging"
)

// Attribute bits for a directory entry's DIR_Attr byte, matching the
// original headers' AttrDir enum (ATTR_READ_ONLY .. ATTR_LONG_NAME).
const (
	AttrReadOnly = 0x01
	AttrHidden   = 0x02
	AttrSystem   = 0x04
	AttrVolumeID = 0x08
	AttrDirectory = 0x10
	AttrArchive  = 0x20
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID // 0x0F
)

// FAT entry value boundaries (spec §3 "FAT entry").
const (
	ClusterFree       = 0x00000000
	ClusterFirstValid = 0x00000002
	ClusterLastValid  = 0x0FFFFFF6
	ClusterBad        = 0x0FFFFFF7
	ClusterEOCMin     = 0x0FFFFFF8
	ClusterEOCMax     = 0x0FFFFFFF
	fatEntryMask      = 0x0FFFFFFF

	// clean-shutdown / hard-error bits the formatter seeds into FAT entry 1,
	// from original_source/include/fat32/fat32_types.h's ClnShutBitMask /
	// HrdErrBitMask.
	cleanShutdownBit = 0x08000000
	hardErrorBit     = 0x04000000
)

const bootSignature = 0xAA55
const fsInfoLeadSignature = 0x41615252
const fsInfoStructSignature = 0x61417272
const fsInfoTrailSignature = 0xAA550000

// rawBootSector is the byte-exact layout of sector 0 (and its mirror at
// sector 6), following Microsoft's FAT32 BPB exactly. Grounded on the
// teacher's drivers/fat/common.go RawFATBootSectorWithBPB plus
// drivers/fat/fat32.go's RawFAT32BootSector FAT32-specific tail, merged
// into one struct since this module only ever speaks FAT32 (spec Non-goal:
// no FAT12/16 support).
type rawBootSector struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32

	// FAT32-only tail.
	FATSize32        uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfoSector     uint16
	BackupBootSector uint16
	Reserved12       [12]byte
	DriveNumber      uint8
	NTReserved       uint8
	BootSignature    uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	FileSystemType   [8]byte
}

const rawBootSectorSize = 90

// Layout is the mounted volume's descriptor (spec §4.2): everything derived
// once from the boot sector and cached for the lifetime of the mount.
type Layout struct {
	Adaptor *blockdev.Adaptor

	BytesPerSector    uint
	SectorsPerCluster uint
	ReservedSectors   uint
	NumFATs           uint
	FATSizeSectors    uint
	TotalSectors      uint
	RootCluster       uint32
	FSInfoSector      uint
	BackupBootSector  uint

	FAT1LBA             uint
	FAT2LBA             uint
	DataLBA             uint
	ClusterBytes        uint
	FATEntriesPerSector uint
	TotalClusters       uint

	Logger  logging.Sink
	Scratch allocator.Allocator

	fatEntry1 uint32 // cached clean-shutdown/hard-error bits, entry index 1
}

// MountOptions configures Mount. The zero value is a valid configuration:
// logging defaults to logging.NopSink per spec §6.3, and scratch buffers
// default to a plain heap-backed allocator per spec §5 ("Shared resource
// policy"); pass a *allocator.PoolAllocator to bound the core to a fixed
// arena instead.
type MountOptions struct {
	Logger  logging.Sink
	Scratch allocator.Allocator
}

// Mount reads and validates the boot sector from device, returning a
// populated Layout. Rejects anything that isn't a FAT32 volume per spec
// §4.2: bytes_per_sector < 512, 16-bit FAT size != 0, missing signature.
func Mount(device blockdev.BlockDevice, opts MountOptions) (*Layout, error) {
	sectorBytes := device.BlockSize()
	adaptor := blockdev.NewAdaptor(device, sectorBytes)

	scratch := opts.Scratch
	if scratch == nil {
		scratch = allocator.NewHeapAllocator()
	}

	buf, err := scratch.Alloc(sectorBytes)
	if err != nil {
		return nil, errors.ErrOutOfMemory.Wrap(err)
	}
	defer scratch.Free(buf, sectorBytes)
	if err := adaptor.ReadSectors(buf, 0, 1); err != nil {
		return nil, errors.ErrReadFail.Wrap(err)
	}

	raw, err := decodeBootSector(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < 512 || binary.LittleEndian.Uint16(buf[510:512]) != bootSignature {
		return nil, errors.ErrInvalidMBR.WithMessage("missing 0xAA55 boot signature")
	}

	if err := validateBootSector(raw); err != nil {
		return nil, err
	}

	fatSizeSectors := uint(raw.FATSize32)
	fat1LBA := uint(raw.ReservedSectors)
	fat2LBA := fat1LBA + fatSizeSectors
	dataLBA := fat2LBA + fatSizeSectors
	clusterBytes := uint(raw.BytesPerSector) * uint(raw.SectorsPerCluster)
	totalSectors := uint(raw.TotalSectors32)
	dataSectors := totalSectors - dataLBA
	totalClusters := uint(0)
	if raw.SectorsPerCluster != 0 {
		totalClusters = dataSectors / uint(raw.SectorsPerCluster)
	}

	layout := &Layout{
		Adaptor:             adaptor,
		BytesPerSector:      uint(raw.BytesPerSector),
		SectorsPerCluster:   uint(raw.SectorsPerCluster),
		ReservedSectors:     uint(raw.ReservedSectors),
		NumFATs:             uint(raw.NumFATs),
		FATSizeSectors:      fatSizeSectors,
		TotalSectors:        totalSectors,
		RootCluster:         raw.RootCluster,
		FSInfoSector:        uint(raw.FSInfoSector),
		BackupBootSector:    uint(raw.BackupBootSector),
		FAT1LBA:             fat1LBA,
		FAT2LBA:             fat2LBA,
		DataLBA:             dataLBA,
		ClusterBytes:        clusterBytes,
		FATEntriesPerSector: uint(raw.BytesPerSector) / 4,
		TotalClusters:       totalClusters,
		Logger:              opts.Logger,
		Scratch:             scratch,
	}

	entry1, err := layout.readRawFATEntry(1)
	if err != nil {
		return nil, err
	}
	layout.fatEntry1 = entry1

	return layout, nil
}

func decodeBootSector(buf []byte) (*rawBootSector, error) {
	if len(buf) < rawBootSectorSize {
		return nil, errors.ErrInvalidMBR.WithMessage("boot sector buffer too small")
	}

	raw := &rawBootSector{}
	copy(raw.JmpBoot[:], buf[0:3])
	copy(raw.OEMName[:], buf[3:11])
	raw.BytesPerSector = binary.LittleEndian.Uint16(buf[11:13])
	raw.SectorsPerCluster = buf[13]
	raw.ReservedSectors = binary.LittleEndian.Uint16(buf[14:16])
	raw.NumFATs = buf[16]
	raw.RootEntryCount = binary.LittleEndian.Uint16(buf[17:19])
	raw.TotalSectors16 = binary.LittleEndian.Uint16(buf[19:21])
	raw.Media = buf[21]
	raw.FATSize16 = binary.LittleEndian.Uint16(buf[22:24])
	raw.SectorsPerTrack = binary.LittleEndian.Uint16(buf[24:26])
	raw.NumHeads = binary.LittleEndian.Uint16(buf[26:28])
	raw.HiddenSectors = binary.LittleEndian.Uint32(buf[28:32])
	raw.TotalSectors32 = binary.LittleEndian.Uint32(buf[32:36])
	raw.FATSize32 = binary.LittleEndian.Uint32(buf[36:40])
	raw.ExtFlags = binary.LittleEndian.Uint16(buf[40:42])
	raw.FSVersion = binary.LittleEndian.Uint16(buf[42:44])
	raw.RootCluster = binary.LittleEndian.Uint32(buf[44:48])
	raw.FSInfoSector = binary.LittleEndian.Uint16(buf[48:50])
	raw.BackupBootSector = binary.LittleEndian.Uint16(buf[50:52])
	copy(raw.Reserved12[:], buf[52:64])
	raw.DriveNumber = buf[64]
	raw.NTReserved = buf[65]
	raw.BootSignature = buf[66]
	raw.VolumeID = binary.LittleEndian.Uint32(buf[67:71])
	copy(raw.VolumeLabel[:], buf[71:82])
	copy(raw.FileSystemType[:], buf[82:90])

	return raw, nil
}

func validateBootSector(raw *rawBootSector) error {
	if raw.BytesPerSector < 512 {
		return errors.ErrInvalidMBR.WithMessage(
			fmt.Sprintf("bytes per sector %d is below the minimum of 512", raw.BytesPerSector))
	}
	if raw.FATSize16 != 0 {
		return errors.ErrNotFAT32.WithMessage("16-bit FAT size field is nonzero")
	}
	if raw.RootEntryCount != 0 || raw.TotalSectors16 != 0 {
		return errors.ErrNotFAT32.WithMessage("legacy FAT12/16 fields are nonzero")
	}
	if raw.SectorsPerCluster == 0 || (raw.SectorsPerCluster&(raw.SectorsPerCluster-1)) != 0 {
		return errors.ErrInvalidMBR.WithMessage("sectors per cluster is not a power of two")
	}
	if raw.RootCluster < 2 {
		return errors.ErrInvalidMBR.WithMessage("root cluster must be >= 2")
	}
	return nil
}

// clusterToLBA implements spec §4.2's cluster_to_lba: valid for
// c >= RootCluster.
func (l *Layout) clusterToLBA(cluster uint32) uint {
	return l.DataLBA + uint(cluster-l.RootCluster)*l.SectorsPerCluster
}

// log forwards to the mount's logging.Sink (a no-op sink if none was
// configured). Strictly observational, per spec §6.3: nothing in this
// package branches on whether a sink is even installed.
func (l *Layout) log(level logging.Level, format string, args ...any) {
	sink := l.Logger
	if sink == nil {
		sink = logging.NopSink
	}
	_, file, line, _ := runtime.Caller(1)
	sink(level, file, line, format, args...)
}

// now returns the device's clock if it reports one (spec §6.1's optional
// fs_get_datetime_t callback). A device with no clock gets zeroed
// timestamps, per spec §6.1 — never the host's wall clock, which would be
// an assumption about the device this package has no business making.
func (l *Layout) now() time.Time {
	if t, ok := l.Adaptor.Device.Clock(); ok {
		return t
	}
	return time.Time{}
}

// DirtyBit reports the clean-shutdown bit cached from FAT entry 1 at mount
// time (original_source's ClnShutBitMask). Read-only: the spec names no
// write path for it.
func (l *Layout) DirtyBit() bool {
	return l.fatEntry1&cleanShutdownBit == 0
}

// HardErrorBit reports the hard-error bit cached from FAT entry 1 at mount
// time (original_source's HrdErrBitMask). Read-only, same rationale as
// DirtyBit.
func (l *Layout) HardErrorBit() bool {
	return l.fatEntry1&hardErrorBit == 0
}
