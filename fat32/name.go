package fat32

import (
	"strings"

	"github.com/embedfs/fat32/errors"
)

// EntryKind distinguishes the two validation targets spec §4.5 names:
// a file (BASE[.EXT]) or a directory (no extension at all).
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func isUpperAlnumOrUnderscore(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isLFNBaseChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-' || c == ' '
}

func isLFNExtChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '_'
}

// splitNameExt splits name on the last '.' into base and extension. Per
// spec §4.5 "at most one '.'" so more than one dot is always invalid; the
// caller checks that separately.
func splitNameExt(name string) (base, ext string, hasDot bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}

func dotCount(name string) int {
	return strings.Count(name, ".")
}

// ValidateSFN validates an 8.3 name per spec §4.5: directories get
// "1..8 uppercase letters/digits/'_', no '.'"; files get "BASE[.EXT]" with
// BASE 1..8, EXT 1..3, same character set, at most one '.'. A '~' is also
// accepted in a directory name or file BASE, so names built by DeriveSFN
// validate.
//
// Grounded on original_source/src/file_utils.c's validate_fat_sfn_dir and
// validate_fat_sfn_file.
func ValidateSFN(name string, kind EntryKind) error {
	if name == "" {
		return errors.ErrInvalidChar.WithMessage("name is empty")
	}

	if kind == KindDirectory {
		if strings.Contains(name, ".") {
			return errors.ErrInvalidChar.WithMessage("directory short names may not contain '.'")
		}
		if len(name) > 8 {
			return errors.ErrNameTooLong
		}
		for i := 0; i < len(name); i++ {
			if !isUpperAlnumOrUnderscore(name[i]) && name[i] != '~' {
				return errors.ErrInvalidChar
			}
		}
		return nil
	}

	if dotCount(name) > 1 {
		return errors.ErrInvalidChar.WithMessage("short names may contain at most one '.'")
	}
	base, ext, hasDot := splitNameExt(name)
	if len(base) == 0 || len(base) > 8 {
		return errors.ErrNameTooLong
	}
	if hasDot && (len(ext) == 0 || len(ext) > 3) {
		return errors.ErrNameTooLong
	}
	for i := 0; i < len(base); i++ {
		if !isUpperAlnumOrUnderscore(base[i]) && base[i] != '~' {
			return errors.ErrInvalidChar
		}
	}
	for i := 0; i < len(ext); i++ {
		if !isUpperAlnumOrUnderscore(ext[i]) {
			return errors.ErrInvalidChar
		}
	}
	return nil
}

// ValidateLFN validates a long name: directories get 1..255 chars from
// {A-Z,a-z,0-9,'_','-',' '} and no '.'; files get BASE[.EXT] with EXT 1..5
// from {A-Z,a-z,0-9,'_'} and BASE from {A-Z,a-z,0-9,'_','-',' '}, at most
// one '.'.
//
// Grounded on original_source/src/file_utils.c's validate_fat_lfn_dir and
// validate_fat_lfn_file.
func ValidateLFN(name string, kind EntryKind) error {
	if name == "" {
		return errors.ErrInvalidChar.WithMessage("name is empty")
	}
	if len(name) > 255 {
		return errors.ErrNameTooLong
	}

	if kind == KindDirectory {
		if strings.Contains(name, ".") {
			return errors.ErrInvalidChar.WithMessage("directory long names may not contain '.'")
		}
		for i := 0; i < len(name); i++ {
			if !isLFNBaseChar(name[i]) {
				return errors.ErrInvalidChar
			}
		}
		return nil
	}

	if dotCount(name) > 1 {
		return errors.ErrInvalidChar.WithMessage("long names may contain at most one '.'")
	}
	base, ext, hasDot := splitNameExt(name)
	if len(base) == 0 {
		return errors.ErrInvalidChar.WithMessage("base name is empty")
	}
	if hasDot && (len(ext) == 0 || len(ext) > 5) {
		return errors.ErrNameTooLong
	}
	for i := 0; i < len(base); i++ {
		if !isLFNBaseChar(base[i]) {
			return errors.ErrInvalidChar
		}
	}
	for i := 0; i < len(ext); i++ {
		if !isLFNExtChar(ext[i]) {
			return errors.ErrInvalidChar
		}
	}
	return nil
}

// NeedsLFN reports whether name can be represented exactly as an 8.3 SFN,
// case included (FAT32 short names are always uppercase on disk).
func NeedsLFN(name string, kind EntryKind) bool {
	return ValidateSFN(strings.ToUpper(name), kind) != nil || name != strings.ToUpper(name)
}
