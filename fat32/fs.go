package fat32

import (
	"github.com/hashicorp/go-multierror"

	"github.com/embedfs/fat32/errors"
)

// DeleteMode selects DeleteDir's behavior when the target is not empty.
type DeleteMode int

const (
	// SafeDelete fails with ErrDirNotEmpty if the directory holds anything
	// but "." and "..".
	SafeDelete DeleteMode = iota
	// RecursiveDelete removes every descendant first.
	RecursiveDelete
)

// Mkdir creates an empty directory at path: validates the name, allocates
// and zeros its first cluster, creates its entry in the parent, and seeds
// "." / "..". Per spec §4.6/§4.7.
func Mkdir(l *Layout, path string) error {
	dir, base, err := ResolveParent(l, path)
	if err != nil {
		return err
	}
	if _, err := dir.Lookup(base); err == nil {
		return errors.ErrAlreadyExists
	}

	cluster, err := l.Allocate()
	if err != nil {
		return err
	}
	if err := l.Update(cluster, ClusterEOCMax); err != nil {
		return err
	}

	now := l.now()
	if _, err := dir.Create(base, AttrDirectory, cluster, now); err != nil {
		if freeErr := l.FreeChain(cluster); freeErr != nil {
			return errors.ErrCreateFailed.Wrap(freeErr)
		}
		return err
	}

	child := OpenDirectory(l, cluster)
	if err := child.zeroCluster(cluster); err != nil {
		return err
	}
	return child.SeedDotEntries(cluster, dir.head, now)
}

// DeleteFile removes a regular file: frees its entire cluster chain, then
// removes its directory entry run.
func DeleteFile(l *Layout, path string) error {
	dir, base, err := ResolveParent(l, path)
	if err != nil {
		return err
	}
	entry, err := dir.Lookup(base)
	if err != nil {
		return errors.ErrFileNotFound
	}
	if entry.SFN.IsDirectory() {
		return errors.ErrIsADirectory
	}

	head := entry.SFN.FirstCluster()
	if IsValidCluster(head) {
		if err := l.FreeChain(head); err != nil {
			return err
		}
	}
	return dir.Delete(entry)
}

// DeleteDir removes a directory. In SafeDelete mode it refuses unless the
// directory holds only "." and "..". In RecursiveDelete mode every child
// is removed first, each child's failure collected independently via
// hashicorp/go-multierror (DOMAIN STACK) so one bad child doesn't abort
// the rest, per spec §7's "recursive delete" testable property.
func DeleteDir(l *Layout, path string, mode DeleteMode) error {
	parentDir, base, err := ResolveParent(l, path)
	if err != nil {
		return err
	}
	entry, err := parentDir.Lookup(base)
	if err != nil {
		return errors.ErrDirNotFound
	}
	if !entry.SFN.IsDirectory() {
		return errors.ErrNotADirectory
	}

	target := OpenDirectory(l, entry.SFN.FirstCluster())

	if mode == RecursiveDelete {
		if err := deleteChildren(l, target, path); err != nil {
			return err
		}
	}

	empty, err := target.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return errors.ErrDirNotEmpty
	}

	if err := l.FreeChain(entry.SFN.FirstCluster()); err != nil {
		return err
	}
	return parentDir.Delete(entry)
}

func deleteChildren(l *Layout, dir *Directory, dirPath string) error {
	entries, err := dir.List()
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		childPath := dirPath
		if childPath != "/" {
			childPath += "/"
		}
		childPath += e.Name

		var childErr error
		if e.SFN.IsDirectory() {
			childErr = DeleteDir(l, childPath, RecursiveDelete)
		} else {
			childErr = DeleteFile(l, childPath)
		}
		if childErr != nil {
			result = multierror.Append(result, childErr)
		}
	}
	return result.ErrorOrNil()
}
