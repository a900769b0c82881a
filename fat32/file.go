package fat32

import "github.com/embedfs/fat32/errors"

// OpenMode selects what a File handle is allowed to do, per spec §4.8.
type OpenMode int

const (
	ModeRead OpenMode = iota
	ModeWrite
	ModeAppend
)

// SeekMode selects Seek's reference point.
type SeekMode int

const (
	SeekSet SeekMode = iota
	SeekCur
	SeekEnd
)

// File is an open handle onto a regular file's data. Per spec §4.8: a
// handle tracks its directory entry, its position, and its mode, and
// reads/writes go through Locate/ExtendIfNeeded one sector at a time.
type File struct {
	layout   *Layout
	dir      *Directory
	entry    *DirEntry
	mode     OpenMode
	position uint
}

// Open resolves path and returns a File handle per mode's semantics:
//   - ModeRead requires an existing, non-directory entry.
//   - ModeWrite truncates an existing file to empty (re-linking its first
//     cluster directly to end-of-chain rather than leaving it dangling,
//     the fix spec's Design Notes call out against the original's
//     omission) or creates a new empty one.
//   - ModeAppend preserves existing content, positioning at EOF, or
//     creates a new empty file.
func Open(l *Layout, path string, mode OpenMode) (*File, error) {
	dir, base, err := ResolveParent(l, path)
	if err != nil {
		return nil, err
	}

	entry, lookErr := dir.Lookup(base)
	exists := lookErr == nil
	if exists && entry.SFN.IsDirectory() {
		return nil, errors.ErrIsADirectory
	}

	switch mode {
	case ModeRead:
		if !exists {
			return nil, errors.ErrFileNotFound
		}
		return &File{layout: l, dir: dir, entry: entry, mode: mode}, nil

	case ModeWrite:
		if exists {
			if err := l.truncateToEmpty(entry); err != nil {
				return nil, err
			}
		} else {
			entry, err = l.createEmptyFile(dir, base)
			if err != nil {
				return nil, err
			}
		}
		return &File{layout: l, dir: dir, entry: entry, mode: mode}, nil

	case ModeAppend:
		if !exists {
			entry, err = l.createEmptyFile(dir, base)
			if err != nil {
				return nil, err
			}
		}
		return &File{layout: l, dir: dir, entry: entry, mode: mode, position: uint(entry.SFN.FileSize)}, nil
	}

	return nil, errors.ErrInvalidFileMode
}

func (l *Layout) createEmptyFile(dir *Directory, name string) (*DirEntry, error) {
	cluster, err := l.Allocate()
	if err != nil {
		return nil, err
	}
	if err := l.Update(cluster, ClusterEOCMax); err != nil {
		return nil, err
	}
	entry, err := dir.Create(name, AttrArchive, cluster, l.now())
	if err != nil {
		if freeErr := l.FreeChain(cluster); freeErr != nil {
			return nil, errors.ErrCreateFailed.Wrap(freeErr)
		}
		return nil, err
	}
	return entry, nil
}

// truncateToEmpty frees every cluster but the first, re-links the first
// cluster directly to end-of-chain, and zeros the recorded size.
func (l *Layout) truncateToEmpty(entry *DirEntry) error {
	head := entry.SFN.FirstCluster()
	if !IsValidCluster(head) {
		cluster, err := l.Allocate()
		if err != nil {
			return err
		}
		if err := l.Update(cluster, ClusterEOCMax); err != nil {
			return err
		}
		entry.SFN.SetFirstCluster(cluster)
		entry.SFN.FileSize = 0
		return nil
	}

	next, err := l.GetNext(head)
	if err != nil {
		return err
	}
	if !IsEndOfChain(next) {
		if err := l.FreeChain(next); err != nil {
			return err
		}
	}
	if err := l.Update(head, ClusterEOCMax); err != nil {
		return err
	}
	entry.SFN.FileSize = 0
	return nil
}

// locateForWrite is Locate's write-side counterpart: it extends the chain
// with ExtendIfNeeded as it walks, so writing past the current end of the
// chain allocates clusters on demand instead of failing.
func (f *File) locateForWrite(head Cluster, offset uint) (Position, error) {
	clusterIndex := offset / f.layout.ClusterBytes
	withinCluster := offset % f.layout.ClusterBytes

	cur := head
	for i := uint(0); i < clusterIndex; i++ {
		next, err := f.layout.ExtendIfNeeded(cur)
		if err != nil {
			return Position{}, err
		}
		cur = next
	}

	return Position{
		Cluster:      cur,
		SectorInClus: withinCluster / f.layout.BytesPerSector,
		ByteInSector: withinCluster % f.layout.BytesPerSector,
		ClusterIndex: clusterIndex,
	}, nil
}

// Read fills buf from the current position, stopping at the file's
// recorded size. Returns (0, nil) at EOF, matching io.Reader's convention
// loosely without committing to the io.Reader interface (FAT32 positions
// are uint, not int64-signed streams).
func (f *File) Read(buf []byte) (int, error) {
	if f.mode != ModeRead {
		return 0, errors.ErrInvalidFileMode
	}

	size := uint(f.entry.SFN.FileSize)
	if f.position >= size || len(buf) == 0 {
		return 0, nil
	}

	toRead := uint(len(buf))
	if f.position+toRead > size {
		toRead = size - f.position
	}

	head := f.entry.SFN.FirstCluster()
	var read uint
	for read < toRead {
		pos, err := f.layout.Locate(head, f.position)
		if err != nil {
			return int(read), err
		}

		sectorBuf, err := f.layout.Scratch.Alloc(f.layout.BytesPerSector)
		if err != nil {
			return int(read), errors.ErrOutOfMemory.Wrap(err)
		}
		lba := f.layout.sectorLBA(pos.Cluster, pos.SectorInClus)
		if err := f.layout.Adaptor.ReadSectors(sectorBuf, lba, 1); err != nil {
			f.layout.Scratch.Free(sectorBuf, f.layout.BytesPerSector)
			return int(read), errors.ErrReadFail.Wrap(err)
		}

		avail := f.layout.BytesPerSector - pos.ByteInSector
		chunk := toRead - read
		if chunk > avail {
			chunk = avail
		}
		copy(buf[read:read+chunk], sectorBuf[pos.ByteInSector:pos.ByteInSector+chunk])
		f.layout.Scratch.Free(sectorBuf, f.layout.BytesPerSector)

		read += chunk
		f.position += chunk
	}
	return int(read), nil
}

// Write stores buf at the current position, extending the cluster chain
// as needed and growing the recorded size when writing past the current
// end.
func (f *File) Write(buf []byte) (int, error) {
	if f.mode != ModeWrite && f.mode != ModeAppend {
		return 0, errors.ErrInvalidFileMode
	}
	if len(buf) == 0 {
		return 0, nil
	}

	head := f.entry.SFN.FirstCluster()
	var written uint
	toWrite := uint(len(buf))

	for written < toWrite {
		pos, err := f.locateForWrite(head, f.position)
		if err != nil {
			return int(written), err
		}

		sectorBuf, err := f.layout.Scratch.Alloc(f.layout.BytesPerSector)
		if err != nil {
			return int(written), errors.ErrOutOfMemory.Wrap(err)
		}
		lba := f.layout.sectorLBA(pos.Cluster, pos.SectorInClus)
		if err := f.layout.Adaptor.ReadSectors(sectorBuf, lba, 1); err != nil {
			f.layout.Scratch.Free(sectorBuf, f.layout.BytesPerSector)
			return int(written), errors.ErrReadFail.Wrap(err)
		}

		avail := f.layout.BytesPerSector - pos.ByteInSector
		chunk := toWrite - written
		if chunk > avail {
			chunk = avail
		}
		copy(sectorBuf[pos.ByteInSector:pos.ByteInSector+chunk], buf[written:written+chunk])

		writeErr := f.layout.Adaptor.WriteSectors(sectorBuf, lba, 1)
		f.layout.Scratch.Free(sectorBuf, f.layout.BytesPerSector)
		if writeErr != nil {
			return int(written), errors.ErrWriteFail.Wrap(writeErr)
		}

		written += chunk
		f.position += chunk
		if f.position > uint(f.entry.SFN.FileSize) {
			f.entry.SFN.FileSize = uint32(f.position)
		}
	}
	return int(written), nil
}

// Seek repositions the handle. Backward seeks are honored by simply
// changing position: Read and Write always re-locate from the file's head
// cluster, so there is no stale mid-chain cursor to rewind.
func (f *File) Seek(offset int64, whence SeekMode) (uint, error) {
	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = int64(f.position) + offset
	case SeekEnd:
		target = int64(f.entry.SFN.FileSize) + offset
	default:
		return f.position, errors.ErrInvalidSeekMode
	}
	if target < 0 || target > int64(f.entry.SFN.FileSize) {
		return f.position, errors.ErrInvalidPosition
	}
	f.position = uint(target)
	return f.position, nil
}

// Tell returns the handle's current position.
func (f *File) Tell() uint {
	return f.position
}

// Flush patches the handle's current size and write timestamp into its
// parent directory's SFN entry, per spec §4.8: size, write time/date and
// last-access date are touched, never the name or position fields.
func (f *File) Flush() error {
	if f.mode == ModeRead {
		return nil
	}
	return f.dir.UpdateSize(f.entry, f.entry.SFN.FileSize, f.layout.now())
}

// Close flushes then releases the handle. The handle must not be used
// afterward.
func (f *File) Close() error {
	return f.Flush()
}
