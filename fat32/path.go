package fat32

import (
	"strings"

	"github.com/embedfs/fat32/errors"
)

// SplitParent splits an absolute path into its parent directory path and
// final component: "/a/b/c" -> ("/a/b", "c"), "/a" -> ("/", "a"). Grounded
// on original_source's get_dir_path helper (SUPPLEMENTED FEATURES).
func SplitParent(path string) (dir, base string) {
	clean := strings.Trim(path, "/")
	idx := strings.LastIndexByte(clean, '/')
	if idx < 0 {
		return "/", clean
	}
	return "/" + clean[:idx], clean[idx+1:]
}

// splitComponents splits an absolute path into its non-empty components,
// collapsing repeated slashes.
func splitComponents(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, errors.ErrInvalidPath.WithMessage("path must be absolute")
	}
	var components []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			components = append(components, part)
		}
	}
	return components, nil
}

// Resolve walks path component by component from the volume root, doing
// one Directory.Lookup per level. Resolving "/" itself returns a nil entry
// and a Directory handle for the root. Per spec §4.7's path resolver.
func Resolve(l *Layout, path string) (*DirEntry, *Directory, error) {
	components, err := splitComponents(path)
	if err != nil {
		return nil, nil, err
	}

	dir := OpenDirectory(l, l.RootCluster)
	if len(components) == 0 {
		return nil, dir, nil
	}

	var entry *DirEntry
	for i, name := range components {
		entry, err = dir.Lookup(name)
		if err != nil {
			if i < len(components)-1 {
				return nil, nil, errors.ErrInvalidPath.WithMessage(name)
			}
			return nil, nil, errors.ErrFileNotFound.WithMessage(name)
		}
		if i == len(components)-1 {
			break
		}
		if !entry.SFN.IsDirectory() {
			return nil, nil, errors.ErrNotADirectory.WithMessage(name)
		}
		dir = OpenDirectory(l, entry.SFN.FirstCluster())
	}
	return entry, dir, nil
}

// ResolveParent resolves path's parent directory and returns a handle onto
// it along with the final (unvalidated) path component, for callers about
// to create or delete that component.
func ResolveParent(l *Layout, path string) (*Directory, string, error) {
	parentPath, base := SplitParent(path)
	if base == "" {
		return nil, "", errors.ErrInvalidPath.WithMessage("path has no final component")
	}
	entry, dir, err := Resolve(l, parentPath)
	if err != nil {
		// Whatever component of parentPath went missing, it's an
		// intermediate directory from the caller's original path's point of
		// view, not a terminal lookup miss.
		if errors.Is(err, errors.ErrFileNotFound) {
			return nil, "", errors.ErrInvalidPath.WithMessage(parentPath)
		}
		return nil, "", err
	}
	// Resolve hands back the directory that contains parentPath's entry;
	// the parent itself is the directory that entry points at.
	if entry != nil {
		if !entry.SFN.IsDirectory() {
			return nil, "", errors.ErrNotADirectory.WithMessage(parentPath)
		}
		dir = OpenDirectory(l, entry.SFN.FirstCluster())
	}
	return dir, base, nil
}

// PathExists reports whether path resolves to a live entry, or is the
// volume root.
func PathExists(l *Layout, path string) bool {
	components, err := splitComponents(path)
	if err != nil {
		return false
	}
	if len(components) == 0 {
		return true
	}
	_, _, err = Resolve(l, path)
	return err == nil
}
