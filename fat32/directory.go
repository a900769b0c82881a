package fat32

import (
	"strings"
	"time"

	"github.com/embedfs/fat32/errors"
)

// DirEntryPosition locates one 32-byte directory-entry slot: the cluster of
// the owning directory's chain it lives in, and its byte offset within that
// cluster. Used to patch an entry in place without rescanning the
// directory, and as the point from which Delete rescans to collect a name
// run.
type DirEntryPosition struct {
	Cluster    Cluster
	ByteOffset uint
}

// DirEntry is a fully resolved directory entry: the display name (the
// bound long name if one was recovered, else the formatted short name),
// the decoded short-name record, and enough position information to patch
// or delete it later.
type DirEntry struct {
	Name     string
	SFN      SFNEntry
	SFNPos   DirEntryPosition
	LFNStart DirEntryPosition // equals SFNPos when there is no long-name run
	LFNCount int
}

// Directory is a handle onto one directory's entry list, addressed by the
// first cluster of its chain. Grounded on spec §4.6's directory engine,
// generalized from dargueta-disko's now-removed legacydirent.go (whose own
// comment admitted it never implemented LFN assembly).
type Directory struct {
	layout *Layout
	head   Cluster
}

// OpenDirectory returns a handle for the directory whose chain begins at
// head (RootCluster for the volume root).
func OpenDirectory(l *Layout, head Cluster) *Directory {
	return &Directory{layout: l, head: head}
}

// readCluster obtains a cluster-sized scratch buffer from the layout's
// allocator and fills it from disk. Callers must release it with
// d.layout.Scratch.Free on every exit path, per spec §5.
func (d *Directory) readCluster(c Cluster) ([]byte, error) {
	buf, err := d.layout.Scratch.Alloc(d.layout.ClusterBytes)
	if err != nil {
		return nil, errors.ErrOutOfMemory.Wrap(err)
	}
	if err := d.layout.Adaptor.ReadSectors(buf, d.layout.sectorLBA(c, 0), d.layout.SectorsPerCluster); err != nil {
		d.layout.Scratch.Free(buf, d.layout.ClusterBytes)
		return nil, errors.ErrReadFail.Wrap(err)
	}
	return buf, nil
}

func (d *Directory) writeCluster(c Cluster, buf []byte) error {
	if err := d.layout.Adaptor.WriteSectors(buf, d.layout.sectorLBA(c, 0), d.layout.SectorsPerCluster); err != nil {
		return errors.ErrWriteFail.Wrap(err)
	}
	return nil
}

func (d *Directory) zeroCluster(c Cluster) error {
	buf, err := d.layout.Scratch.Alloc(d.layout.ClusterBytes)
	if err != nil {
		return errors.ErrOutOfMemory.Wrap(err)
	}
	defer d.layout.Scratch.Free(buf, d.layout.ClusterBytes)
	return d.writeCluster(c, buf)
}

// forEachSlot walks every 32-byte slot of the directory's chain in disk
// order, stopping at the first end-of-directory marker (0x00) or when
// visit reports stop=true.
func (d *Directory) forEachSlot(visit func(pos DirEntryPosition, raw []byte) (stop bool, err error)) error {
	cur := d.head
	for {
		buf, err := d.readCluster(cur)
		if err != nil {
			return err
		}

		hitEnd := false
		stopped := false
		var visitErr error
		for offset := uint(0); offset+DirEntrySize <= d.layout.ClusterBytes; offset += DirEntrySize {
			raw := buf[offset : offset+DirEntrySize]
			if raw[0] == DirEntryEndOfDir {
				hitEnd = true
				break
			}
			stop, err := visit(DirEntryPosition{Cluster: cur, ByteOffset: offset}, raw)
			if err != nil {
				visitErr = err
				break
			}
			if stop {
				stopped = true
				break
			}
		}
		d.layout.Scratch.Free(buf, d.layout.ClusterBytes)

		if visitErr != nil {
			return visitErr
		}
		if hitEnd || stopped {
			return nil
		}

		next, err := d.layout.GetNext(cur)
		if err != nil {
			return err
		}
		if IsEndOfChain(next) {
			return nil
		}
		cur = next
	}
}

// List returns every live entry in the directory, reassembling long names
// from their LFN runs and falling back to the formatted short name when a
// run is missing, broken, or fails its checksum binding to the SFN.
func (d *Directory) List() ([]DirEntry, error) {
	var entries []DirEntry
	var pending []LFNEntry
	var pendingStart DirEntryPosition

	err := d.forEachSlot(func(pos DirEntryPosition, raw []byte) (bool, error) {
		if raw[0] == DirEntryFree {
			pending = nil
			return false, nil
		}

		attr := raw[11]
		if attr&AttrLongName == AttrLongName {
			lfn := DecodeLFNEntry(raw)
			if lfn.IsLastSlot() {
				pending = []LFNEntry{lfn}
				pendingStart = pos
			} else if len(pending) > 0 {
				pending = append(pending, lfn)
			}
			return false, nil
		}

		if attr&AttrVolumeID != 0 {
			pending = nil
			return false, nil
		}

		sfn := DecodeSFNEntry(raw)
		name := ""
		lfnCount := 0
		start := pos
		if len(pending) > 0 && SFNChecksum(sfn.Name) == pending[0].Chksum {
			if assembled := assembleLFNName(pending); assembled != "" {
				name = assembled
				lfnCount = len(pending)
				start = pendingStart
			}
		}
		if name == "" {
			name = formatDisplayName(sfn.Name)
		}

		entries = append(entries, DirEntry{
			Name:     name,
			SFN:      sfn,
			SFNPos:   pos,
			LFNStart: start,
			LFNCount: lfnCount,
		})
		pending = nil
		return false, nil
	})
	return entries, err
}

// Lookup finds a live entry by name, case-insensitively.
func (d *Directory) Lookup(name string) (*DirEntry, error) {
	entries, err := d.List()
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(name)
	for i := range entries {
		if strings.ToUpper(entries[i].Name) == upper {
			return &entries[i], nil
		}
	}
	return nil, errors.ErrEntryNotFound
}

// IsEmpty reports whether the directory holds nothing but "." and ".."
// (or nothing at all), the precondition for a non-recursive delete.
func (d *Directory) IsEmpty() (bool, error) {
	entries, err := d.List()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		upper := strings.ToUpper(e.Name)
		if upper != "." && upper != ".." {
			return false, nil
		}
	}
	return true, nil
}

// findFreeRun locates count contiguous free slots, extending the
// directory's chain (and zeroing the new cluster) if the existing chain
// runs out before a long-enough run is found.
func (d *Directory) findFreeRun(count int) ([]DirEntryPosition, error) {
	var run []DirEntryPosition
	cur := d.head

	for {
		buf, err := d.readCluster(cur)
		if err != nil {
			return nil, err
		}

		found := false
		for offset := uint(0); offset+DirEntrySize <= d.layout.ClusterBytes; offset += DirEntrySize {
			b := buf[offset]
			if b == DirEntryFree || b == DirEntryEndOfDir {
				run = append(run, DirEntryPosition{Cluster: cur, ByteOffset: offset})
				if len(run) == count {
					found = true
					break
				}
			} else {
				run = run[:0]
			}
		}
		d.layout.Scratch.Free(buf, d.layout.ClusterBytes)
		if found {
			return run, nil
		}

		next, err := d.layout.GetNext(cur)
		if err != nil {
			return nil, err
		}
		if IsEndOfChain(next) {
			extended, err := d.layout.ExtendIfNeeded(cur)
			if err != nil {
				return nil, err
			}
			if err := d.zeroCluster(extended); err != nil {
				return nil, err
			}
			next = extended
		}
		cur = next
	}
}

// collectRunPositions walks the directory from its head and returns the
// count consecutive slot positions starting at start, in disk order. Used
// to locate every slot of a name's LFN+SFN run for deletion.
func (d *Directory) collectRunPositions(start DirEntryPosition, count int) ([]DirEntryPosition, error) {
	var result []DirEntryPosition
	collecting := false

	err := d.forEachSlot(func(pos DirEntryPosition, raw []byte) (bool, error) {
		if !collecting && pos == start {
			collecting = true
		}
		if collecting {
			result = append(result, pos)
			if len(result) == count {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if len(result) != count {
		return nil, errors.ErrEntryCorrupted.WithMessage("name run is shorter than recorded")
	}
	return result, nil
}

// writeSlots patches raws into positions, grouping consecutive entries that
// share a cluster into a single read-modify-write per cluster.
func (d *Directory) writeSlots(positions []DirEntryPosition, raws [][DirEntrySize]byte) error {
	i := 0
	for i < len(positions) {
		cluster := positions[i].Cluster
		buf, err := d.readCluster(cluster)
		if err != nil {
			return err
		}

		j := i
		for j < len(positions) && positions[j].Cluster == cluster {
			copy(buf[positions[j].ByteOffset:positions[j].ByteOffset+DirEntrySize], raws[j][:])
			j++
		}

		writeErr := d.writeCluster(cluster, buf)
		d.layout.Scratch.Free(buf, d.layout.ClusterBytes)
		if writeErr != nil {
			return writeErr
		}
		i = j
	}
	return nil
}

func (d *Directory) patchSlot(pos DirEntryPosition, raw [DirEntrySize]byte) error {
	return d.writeSlots([]DirEntryPosition{pos}, [][DirEntrySize]byte{raw})
}

// formatDisplayName renders an 11-byte short name field as "BASE" or
// "BASE.EXT", trimming the space padding.
func formatDisplayName(name11 [11]byte) string {
	base := strings.TrimRight(string(name11[0:8]), " ")
	ext := strings.TrimRight(string(name11[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// resolveSFN picks the short-name record for name: the name itself,
// uppercased, if it already fits an 8.3 short name; otherwise a derived
// "BASE~N.EXT" name with the lowest N (1..99) not already in use in this
// directory, per DESIGN.md's numeric-tail Open Question resolution.
func (d *Directory) resolveSFN(name string, kind EntryKind) (sfn [11]byte, needsLFN bool, err error) {
	if !NeedsLFN(name, kind) {
		return FormatSFN(name), false, nil
	}

	entries, err := d.List()
	if err != nil {
		return [11]byte{}, false, err
	}
	for tail := 1; tail <= 99; tail++ {
		candidate, derr := DeriveSFN(name, tail)
		if derr != nil {
			return [11]byte{}, false, derr
		}
		inUse := false
		for i := range entries {
			if entries[i].SFN.Name == candidate {
				inUse = true
				break
			}
		}
		if !inUse {
			return candidate, true, nil
		}
	}
	return [11]byte{}, false, errors.ErrNameTooLong.WithMessage("numeric tail collisions exhausted")
}

// Create validates name, allocates its short (and, if needed, long) name
// record(s), and writes them into the first free run of slots, pointing at
// firstCluster. Per spec §4.6's create path.
func (d *Directory) Create(name string, attr byte, firstCluster Cluster, now time.Time) (*DirEntry, error) {
	kind := KindFile
	if attr&AttrDirectory != 0 {
		kind = KindDirectory
	}
	if err := ValidateLFN(name, kind); err != nil {
		return nil, err
	}
	if _, err := d.Lookup(name); err == nil {
		return nil, errors.ErrAlreadyExists
	}

	sfnName, needsLFN, err := d.resolveSFN(name, kind)
	if err != nil {
		return nil, err
	}

	sfn := SFNEntry{
		Name:         sfnName,
		Attr:         attr,
		CrtTimeTenth: PackTimeTenth(now),
		CrtTime:      PackTime(now),
		CrtDate:      PackDate(now),
		LstAccDate:   PackDate(now),
		WrtTime:      PackTime(now),
		WrtDate:      PackDate(now),
	}
	sfn.SetFirstCluster(firstCluster)

	raws := make([][DirEntrySize]byte, 0, maxLFNSlotsPerName+1)
	if needsLFN {
		checksum := SFNChecksum(sfnName)
		for _, lfn := range buildLFNSlots(name, checksum) {
			lfn := lfn
			raws = append(raws, EncodeLFNEntry(&lfn))
		}
	}
	raws = append(raws, EncodeSFNEntry(&sfn))

	positions, err := d.findFreeRun(len(raws))
	if err != nil {
		return nil, err
	}
	if err := d.writeSlots(positions, raws); err != nil {
		return nil, err
	}

	entry := &DirEntry{
		Name:     name,
		SFN:      sfn,
		SFNPos:   positions[len(positions)-1],
		LFNStart: positions[0],
	}
	if needsLFN {
		entry.LFNCount = len(positions) - 1
	}
	return entry, nil
}

// Delete marks every slot of entry's name run (its LFN run, if any, plus
// its SFN slot) free. It does not free the entry's cluster chain; callers
// decide that separately (a file's data chain is freed unconditionally, a
// directory's only after an emptiness check).
func (d *Directory) Delete(entry *DirEntry) error {
	positions, err := d.collectRunPositions(entry.LFNStart, entry.LFNCount+1)
	if err != nil {
		return err
	}

	raws := make([][DirEntrySize]byte, len(positions))
	for i := range raws {
		raws[i][0] = DirEntryFree
	}
	return d.writeSlots(positions, raws)
}

// UpdateSize patches entry's file size, write timestamp and last-access
// date in place,
// without touching its name or position. Used by File.Flush.
func (d *Directory) UpdateSize(entry *DirEntry, size uint32, now time.Time) error {
	entry.SFN.FileSize = size
	entry.SFN.WrtTime = PackTime(now)
	entry.SFN.WrtDate = PackDate(now)
	entry.SFN.LstAccDate = PackDate(now)
	return d.patchSlot(entry.SFNPos, EncodeSFNEntry(&entry.SFN))
}

// SeedDotEntries writes the "." and ".." entries into the first two slots
// of a freshly allocated, zeroed directory cluster self, pointing "." at
// self and ".." at parent (0 if parent is the volume root, per spec §3's
// convention for the root's ".." cluster field).
func (d *Directory) SeedDotEntries(self, parent Cluster, now time.Time) error {
	var dotName, dotdotName [11]byte
	for i := range dotName {
		dotName[i] = ' '
		dotdotName[i] = ' '
	}
	dotName[0] = '.'
	dotdotName[0] = '.'
	dotdotName[1] = '.'

	dot := SFNEntry{
		Name:       dotName,
		Attr:       AttrDirectory,
		CrtTime:    PackTime(now),
		CrtDate:    PackDate(now),
		WrtTime:    PackTime(now),
		WrtDate:    PackDate(now),
		LstAccDate: PackDate(now),
	}
	dot.SetFirstCluster(self)

	parentField := parent
	if parent == d.layout.RootCluster {
		parentField = 0
	}
	dotdot := dot
	dotdot.Name = dotdotName
	dotdot.SetFirstCluster(parentField)

	positions := []DirEntryPosition{
		{Cluster: self, ByteOffset: 0},
		{Cluster: self, ByteOffset: DirEntrySize},
	}
	raws := [][DirEntrySize]byte{EncodeSFNEntry(&dot), EncodeSFNEntry(&dotdot)}
	return d.writeSlots(positions, raws)
}
