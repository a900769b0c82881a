// Package compression shrinks the embedded FAT32 volume images this module's
// test suites load as fixtures.
//
// A formatted FAT32 volume is mostly zeroed sectors: a freshly formatted
// 32 MiB image has real content in its boot sector, FSInfo sector, FAT
// tables, and whatever directories/files a fixture seeds — everything else
// is null bytes. Committing that directly would bloat the repository for
// no benefit, so fixtures are compressed before being embedded and
// decompressed back into memory at test time by fat32test.
//
// The encoding is run-length encoding the raw image first, then gzip on the
// result — run-length encoding alone collapses the long null runs, and gzip
// squeezes what's left. An IBM 8" image of 256,256 bytes compresses to
// 3,009 bytes with RLE8 alone (98.8%); gzipping that result brings it down
// to 67 bytes (99.97% overall).
//
// The run-length scheme is RLE8, the same one used in Microsoft's BMP file
// format: if a byte B occurs N times where N >= 2, B is written twice,
// followed by a third (unsigned) byte giving the count of additional
// repeats. For example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// This represents runs of up to 257 bytes in three bytes; longer runs split
// into multiple groups (300 "X" becomes "XX 255 XX 41"). Because a repeated
// byte is its own escape sequence, an exact run of two still costs three
// bytes: the two repeated bytes plus a trailing zero repeat count.
package compression
