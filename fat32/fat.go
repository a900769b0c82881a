package fat32

import (
	"encoding/binary"

	"github.com/embedfs/fat32/errors"
	"github.com/embedfs/fat32/logging"
)

// Cluster is a FAT32 cluster number. Only the low 28 bits are meaningful;
// the top 4 bits of an on-disk FAT entry are reserved and masked away on
// every read (spec §3, §6.5).
type Cluster = uint32

// IsEndOfChain reports whether c is an end-of-chain marker
// (spec §3: [0x0FFFFFF8, 0x0FFFFFFF]).
func IsEndOfChain(c Cluster) bool {
	return c >= ClusterEOCMin && c <= ClusterEOCMax
}

// IsValidCluster reports whether c can legally appear as a predecessor or
// successor link in a chain (spec §3: cluster numbers < 2 or >= 0x0FFFFFF8
// never appear as links).
func IsValidCluster(c Cluster) bool {
	return c >= ClusterFirstValid && c <= ClusterLastValid
}

// fatSectorFor returns the FAT-table-relative sector index and the entry's
// offset within that sector for cluster c, per spec §4.3's get_next: reads
// fat1_lba + c/fat_entries_per_sector, extracts entry at
// c % fat_entries_per_sector.
func (l *Layout) fatSectorFor(c Cluster) (sectorIndex uint, entryIndex uint) {
	return uint(c) / l.FATEntriesPerSector, uint(c) % l.FATEntriesPerSector
}

// readFATSector obtains a sector-sized scratch buffer from the layout's
// allocator and fills it from disk, per spec §5's "scratch buffer per
// operation" policy. Callers must release it with l.Scratch.Free on every
// exit path.
func (l *Layout) readFATSector(fatBaseLBA uint, sectorIndex uint) ([]byte, error) {
	buf, err := l.Scratch.Alloc(l.BytesPerSector)
	if err != nil {
		return nil, errors.ErrOutOfMemory.Wrap(err)
	}
	if err := l.Adaptor.ReadSectors(buf, fatBaseLBA+sectorIndex, 1); err != nil {
		l.Scratch.Free(buf, l.BytesPerSector)
		return nil, errors.ErrReadFail.Wrap(err)
	}
	return buf, nil
}

// readRawFATEntry reads a FAT1 entry without masking off the reserved top
// bits, used at mount time to inspect entry 1's clean-shutdown/hard-error
// flags (original_source's ClnShutBitMask/HrdErrBitMask).
func (l *Layout) readRawFATEntry(c Cluster) (uint32, error) {
	sectorIndex, entryIndex := l.fatSectorFor(c)
	buf, err := l.readFATSector(l.FAT1LBA, sectorIndex)
	if err != nil {
		return 0, err
	}
	defer l.Scratch.Free(buf, l.BytesPerSector)
	return binary.LittleEndian.Uint32(buf[entryIndex*4 : entryIndex*4+4]), nil
}

// GetNext implements spec §4.3's get_next: reads the FAT1 entry for c and
// masks it to 28 bits.
func (l *Layout) GetNext(c Cluster) (Cluster, error) {
	raw, err := l.readRawFATEntry(c)
	if err != nil {
		return 0, err
	}
	return raw & fatEntryMask, nil
}

// Update implements spec §4.3's update: read-modify-write FAT1 for c, then
// repeat for FAT2. FAT1 is always mutated first, and its prior success is
// never undone by a FAT2 failure — the caller gets ErrUpdatePartialFail and
// decides whether to retry or roll back FAT1, per spec §4.3 and §7.
func (l *Layout) Update(c Cluster, value uint32) error {
	sectorIndex, entryIndex := l.fatSectorFor(c)

	if err := l.writeFATEntry(l.FAT1LBA, sectorIndex, entryIndex, value); err != nil {
		return errors.ErrUpdateFailed.Wrap(err)
	}

	if err := l.writeFATEntry(l.FAT2LBA, sectorIndex, entryIndex, value); err != nil {
		l.log(logging.WARN, "FAT2 update failed for cluster %d, FAT1 and FAT2 now disagree: %v", c, err)
		return errors.ErrUpdatePartialFail.Wrap(err)
	}

	return nil
}

func (l *Layout) writeFATEntry(fatBaseLBA uint, sectorIndex, entryIndex uint, value uint32) error {
	buf, err := l.readFATSector(fatBaseLBA, sectorIndex)
	if err != nil {
		return err
	}
	defer l.Scratch.Free(buf, l.BytesPerSector)

	existing := binary.LittleEndian.Uint32(buf[entryIndex*4 : entryIndex*4+4])
	merged := (existing &^ fatEntryMask) | (value & fatEntryMask)
	binary.LittleEndian.PutUint32(buf[entryIndex*4:entryIndex*4+4], merged)

	if err := l.Adaptor.WriteSectors(buf, fatBaseLBA+sectorIndex, 1); err != nil {
		return errors.ErrWriteFail.Wrap(err)
	}
	return nil
}

// FindFree implements spec §4.3's find_free: a linear scan of FAT1 from
// cluster 2, returning the first free entry.
func (l *Layout) FindFree() (Cluster, error) {
	for c := Cluster(ClusterFirstValid); c < Cluster(l.TotalClusters)+ClusterFirstValid; c++ {
		entry, err := l.GetNext(c)
		if err != nil {
			return 0, err
		}
		if entry == ClusterFree {
			return c, nil
		}
	}
	return 0, errors.ErrDiskFull
}

// Allocate implements spec §4.3's allocate: find_free then mark it
// end-of-chain. On a partial FAT mirroring failure it attempts a rollback
// to FREE; if the rollback itself fails, RECOVERY_FAILED is surfaced.
func (l *Layout) Allocate() (Cluster, error) {
	c, err := l.FindFree()
	if err != nil {
		return 0, err
	}

	if err := l.Update(c, ClusterEOCMax); err != nil {
		if errors.Is(err, errors.ErrUpdatePartialFail) {
			if rollbackErr := l.Update(c, ClusterFree); rollbackErr != nil {
				l.log(logging.ERROR, "rollback of cluster %d after partial FAT update failed: %v", c, rollbackErr)
				return 0, errors.ErrRecoveryFailed.Wrap(rollbackErr)
			}
		}
		return 0, err
	}

	return c, nil
}

// FreeChain implements spec §4.3's free_chain: walk the chain via GetNext,
// accumulating every cluster seen, then mark each one FREE. Clusters
// already collected before a read error mid-walk are still freed, so a
// broken chain doesn't leak the part that was readable.
func (l *Layout) FreeChain(head Cluster) error {
	var nodes []Cluster
	cur := head
	walkErr := error(nil)

	for IsValidCluster(cur) {
		nodes = append(nodes, cur)
		next, err := l.GetNext(cur)
		if err != nil {
			walkErr = err
			break
		}
		if IsEndOfChain(next) {
			break
		}
		cur = next
	}

	var freeErr error
	for _, n := range nodes {
		if err := l.Update(n, ClusterFree); err != nil && freeErr == nil {
			freeErr = err
		}
	}

	if walkErr != nil {
		l.log(logging.WARN, "chain walk from cluster %d broke early after %d clusters: %v", head, len(nodes), walkErr)
	}

	if freeErr != nil {
		return freeErr
	}
	return walkErr
}
