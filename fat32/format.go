package fat32

import (
	"encoding/binary"

	"github.com/hashicorp/go-multierror"

	"github.com/embedfs/fat32/allocator"
	"github.com/embedfs/fat32/blockdev"
	"github.com/embedfs/fat32/capacity"
	"github.com/embedfs/fat32/errors"
)

// FormatOptions configures Format. Zero values pick sensible defaults:
// ReservedSectors 32, SectorsPerCluster derived from the device's capacity
// via the capacity package's recommended bands.
type FormatOptions struct {
	VolumeLabel       string
	ReservedSectors   uint
	SectorsPerCluster uint
	// SeedDirectoryName, if non-empty, creates one subdirectory under the
	// root during formatting (with "." and ".." already seeded), the
	// "optionally pre-seed a top-level directory" path.
	SeedDirectoryName string
}

const defaultReservedSectors = 32
const numFATsOnFormat = 2

// Format writes a fresh FAT32 volume to device: boot sector and its mirror,
// FSInfo, zeroed FAT tables with the reserved entries {0,1,2} seeded, and
// (optionally) one pre-seeded subdirectory. Per spec §4.9.
//
// Independent region writes are aggregated with hashicorp/go-multierror
// (DOMAIN STACK) rather than failing fast on the first one, so a caller
// gets a complete picture of which regions of the device rejected the
// write.
func Format(device blockdev.BlockDevice, opts FormatOptions) error {
	sectorBytes := device.BlockSize()
	adaptor := blockdev.NewAdaptor(device, sectorBytes)
	totalSectors := device.TotalBlocks()

	reservedSectors := opts.ReservedSectors
	if reservedSectors == 0 {
		reservedSectors = defaultReservedSectors
	}

	sectorsPerCluster := opts.SectorsPerCluster
	if sectorsPerCluster == 0 {
		spc, err := capacity.SectorsPerCluster(uint64(totalSectors) * uint64(sectorBytes))
		if err != nil {
			return err
		}
		sectorsPerCluster = spc
	}

	fatSize := computeFATSize(totalSectors, reservedSectors, numFATsOnFormat, sectorsPerCluster, sectorBytes)
	fat1LBA := reservedSectors
	fat2LBA := fat1LBA + fatSize
	dataLBA := fat2LBA + fatSize
	dataSectors := totalSectors - dataLBA
	totalClusters := dataSectors / sectorsPerCluster

	raw := buildBootSector(sectorBytes, sectorsPerCluster, reservedSectors, fatSize, totalSectors, opts.VolumeLabel)
	bootBuf := encodeBootSector(raw)

	var result *multierror.Error
	if err := adaptor.WriteSectors(bootBuf, 0, 1); err != nil {
		result = multierror.Append(result, errors.ErrWriteFail.Wrap(err))
	}
	if err := adaptor.WriteSectors(bootBuf, uint(raw.BackupBootSector), 1); err != nil {
		result = multierror.Append(result, errors.ErrWriteFail.Wrap(err))
	}

	fsInfoBuf := encodeFSInfo(sectorBytes, totalClusters-1, 3)
	if err := adaptor.WriteSectors(fsInfoBuf, uint(raw.FSInfoSector), 1); err != nil {
		result = multierror.Append(result, errors.ErrWriteFail.Wrap(err))
	}

	// Zero both FAT tables one sector at a time from a single reusable
	// scratch buffer, per spec §5's scratch-buffer-per-operation policy,
	// rather than allocating the whole (potentially multi-megabyte) FAT
	// region as one slice.
	scratch := allocator.NewHeapAllocator()
	zeroSector, err := scratch.Alloc(sectorBytes)
	if err != nil {
		return errors.ErrOutOfMemory.Wrap(err)
	}
	defer scratch.Free(zeroSector, sectorBytes)

	for i := uint(0); i < fatSize; i++ {
		if err := adaptor.WriteSectors(zeroSector, fat1LBA+i, 1); err != nil {
			result = multierror.Append(result, errors.ErrWriteFail.Wrap(err))
		}
		if err := adaptor.WriteSectors(zeroSector, fat2LBA+i, 1); err != nil {
			result = multierror.Append(result, errors.ErrWriteFail.Wrap(err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	layout, err := Mount(device, MountOptions{Scratch: scratch})
	if err != nil {
		return err
	}

	if err := layout.Update(0, 0x0FFFFF00|0xF8); err != nil {
		return err
	}
	if err := layout.Update(1, 0x0FFFFFFF); err != nil {
		return err
	}
	if err := layout.Update(2, ClusterEOCMax); err != nil {
		return err
	}

	if opts.SeedDirectoryName == "" {
		return nil
	}

	cluster, err := layout.Allocate()
	if err != nil {
		return err
	}
	if err := layout.Update(cluster, ClusterEOCMax); err != nil {
		return err
	}

	root := OpenDirectory(layout, layout.RootCluster)
	now := layout.now()
	if _, err := root.Create(opts.SeedDirectoryName, AttrDirectory, cluster, now); err != nil {
		return err
	}
	child := OpenDirectory(layout, cluster)
	return child.SeedDotEntries(cluster, layout.RootCluster, now)
}

// computeFATSize iterates Microsoft's fatgen103 FAT32 sizing formula to a
// fixed point: the FAT must be big enough to hold an entry for every data
// cluster, but the FAT's own size eats into the data region.
func computeFATSize(totalSectors, reservedSectors, numFATs, sectorsPerCluster, bytesPerSector uint) uint {
	fatSize := uint(1)
	for i := 0; i < 16; i++ {
		dataSectors := totalSectors - reservedSectors - numFATs*fatSize
		totalClusters := dataSectors / sectorsPerCluster
		neededEntries := totalClusters + 2
		next := (neededEntries*4 + bytesPerSector - 1) / bytesPerSector
		if next == fatSize {
			break
		}
		fatSize = next
	}
	return fatSize
}

func buildBootSector(bytesPerSector, sectorsPerCluster, reservedSectors, fatSize, totalSectors uint, label string) *rawBootSector {
	raw := &rawBootSector{
		BytesPerSector:    uint16(bytesPerSector),
		SectorsPerCluster: uint8(sectorsPerCluster),
		ReservedSectors:   uint16(reservedSectors),
		NumFATs:           numFATsOnFormat,
		Media:             0xF8,
		TotalSectors32:    uint32(totalSectors),
		FATSize32:         uint32(fatSize),
		RootCluster:       2,
		FSInfoSector:      1,
		BackupBootSector:  6,
		BootSignature:     0x29,
	}
	copy(raw.JmpBoot[:], []byte{0xEB, 0x58, 0x90})
	copy(raw.OEMName[:], []byte("EMBDFS  "))
	copy(raw.FileSystemType[:], []byte("FAT32   "))

	var volLabel [11]byte
	for i := range volLabel {
		volLabel[i] = ' '
	}
	copy(volLabel[:], label)
	raw.VolumeLabel = volLabel

	return raw
}

func encodeBootSector(raw *rawBootSector) []byte {
	buf := make([]byte, raw.BytesPerSector)
	copy(buf[0:3], raw.JmpBoot[:])
	copy(buf[3:11], raw.OEMName[:])
	binary.LittleEndian.PutUint16(buf[11:13], raw.BytesPerSector)
	buf[13] = raw.SectorsPerCluster
	binary.LittleEndian.PutUint16(buf[14:16], raw.ReservedSectors)
	buf[16] = raw.NumFATs
	binary.LittleEndian.PutUint16(buf[17:19], raw.RootEntryCount)
	binary.LittleEndian.PutUint16(buf[19:21], raw.TotalSectors16)
	buf[21] = raw.Media
	binary.LittleEndian.PutUint16(buf[22:24], raw.FATSize16)
	binary.LittleEndian.PutUint16(buf[24:26], raw.SectorsPerTrack)
	binary.LittleEndian.PutUint16(buf[26:28], raw.NumHeads)
	binary.LittleEndian.PutUint32(buf[28:32], raw.HiddenSectors)
	binary.LittleEndian.PutUint32(buf[32:36], raw.TotalSectors32)
	binary.LittleEndian.PutUint32(buf[36:40], raw.FATSize32)
	binary.LittleEndian.PutUint16(buf[40:42], raw.ExtFlags)
	binary.LittleEndian.PutUint16(buf[42:44], raw.FSVersion)
	binary.LittleEndian.PutUint32(buf[44:48], raw.RootCluster)
	binary.LittleEndian.PutUint16(buf[48:50], raw.FSInfoSector)
	binary.LittleEndian.PutUint16(buf[50:52], raw.BackupBootSector)
	copy(buf[52:64], raw.Reserved12[:])
	buf[64] = raw.DriveNumber
	buf[65] = raw.NTReserved
	buf[66] = raw.BootSignature
	binary.LittleEndian.PutUint32(buf[67:71], raw.VolumeID)
	copy(buf[71:82], raw.VolumeLabel[:])
	copy(buf[82:90], raw.FileSystemType[:])
	binary.LittleEndian.PutUint16(buf[510:512], bootSignature)
	return buf
}

func encodeFSInfo(bytesPerSector, freeClusterCount, nextFreeHint uint) []byte {
	buf := make([]byte, bytesPerSector)
	binary.LittleEndian.PutUint32(buf[0:4], fsInfoLeadSignature)
	binary.LittleEndian.PutUint32(buf[484:488], fsInfoStructSignature)
	binary.LittleEndian.PutUint32(buf[488:492], uint32(freeClusterCount))
	binary.LittleEndian.PutUint32(buf[492:496], uint32(nextFreeHint))
	binary.LittleEndian.PutUint32(buf[508:512], fsInfoTrailSignature)
	return buf
}
