package fat32

import (
	"strings"

	"github.com/embedfs/fat32/errors"
)

// FormatSFN pads an already-valid 8.3 name into exactly 11 bytes: the
// first 8 receive the uppercase base, right-space-padded; the last 3
// receive the uppercase extension, right-space-padded. Per spec §4.5
// "SFN formatting".
func FormatSFN(name string) [11]byte {
	base, ext, _ := splitNameExt(strings.ToUpper(name))

	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out
}

// DeriveSFN builds an 8.3 short name from a long name that doesn't already
// fit one, per spec §4.5 "SFN derivation from LFN": uppercase the first up
// to 6 alphanumerics of BASE, then "~1"; copy the uppercase of the first 3
// chars of EXT. tail lets callers resolve numeric-tail collisions by
// passing 1, 2, ... (spec leaves the policy to the implementer; this
// module increments '~1' through '~9' then widens to two digits, per
// DESIGN.md's Open Question resolution).
func DeriveSFN(name string, tail int) ([11]byte, error) {
	if tail < 1 || tail > 99 {
		return [11]byte{}, errors.ErrNameTooLong.WithMessage("numeric tail collisions exhausted")
	}

	base, ext, _ := splitNameExt(name)

	var alnum []byte
	for i := 0; i < len(base) && len(alnum) < 6; i++ {
		c := base[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			alnum = append(alnum, toUpperASCII(c))
		}
	}

	tailStr := formatNumericTail(tail)
	if len(alnum)+len(tailStr) > 8 {
		alnum = alnum[:8-len(tailStr)]
	}

	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[0:], alnum)
	copy(out[len(alnum):8], tailStr)

	extUpper := make([]byte, 0, 3)
	for i := 0; i < len(ext) && len(extUpper) < 3; i++ {
		extUpper = append(extUpper, toUpperASCII(ext[i]))
	}
	copy(out[8:11], extUpper)

	return out, nil
}

func toUpperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// formatNumericTail renders the numeric tail collision-resolution suffix:
// "~1".."~9" for tail in [1,9], then "~10".."~99" for tail in [10,99].
func formatNumericTail(tail int) string {
	digits := tail
	width := 1
	for digits >= 10 {
		digits /= 10
		width++
	}
	buf := make([]byte, 0, width+1)
	buf = append(buf, '~')
	buf = append(buf, []byte(itoa(tail))...)
	return string(buf)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// SFNChecksum computes the 8-bit checksum spec §4.5 defines: for each of
// the 11 name bytes, rotate the running sum right by one bit then add the
// byte. Used to bind LFN slots to their trailing SFN.
func SFNChecksum(name11 [11]byte) byte {
	var sum byte
	for _, b := range name11 {
		sum = rotr8(sum) + b
	}
	return sum
}

func rotr8(b byte) byte {
	return (b >> 1) | (b << 7)
}
