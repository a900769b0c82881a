package fat32

import "encoding/binary"

// DirEntrySize is the fixed size, in bytes, of every directory entry slot
// (both short-name and long-name) per spec §3.
const DirEntrySize = 32

// Directory entry status markers for the first name byte, per spec §4.6.
const (
	DirEntryFree       byte = 0xE5 // slot was deleted, still scanned past
	DirEntryEndOfDir   byte = 0x00 // slot and everything after is unused
	DirEntryE5Escape   byte = 0x05 // KANJI lead-byte escape for a literal 0xE5
	LastLongEntryFlag  byte = 0x40 // ORD bit marking the first (highest-order) LFN slot
	lfnOrdMask         byte = 0x3F
	maxLFNSlotsPerName      = 20 // ceil(255 / 13)
)

// SFNEntry is the decoded form of a short-name (8.3) directory entry, the
// on-disk layout spec §3 calls out for "Directory entry". Grounded on
// dargueta-disko's RawDirent/Dirent split in the now-removed legacydirent.go,
// generalized with the LFN fields that file's own TODO left unimplemented.
type SFNEntry struct {
	Name         [11]byte
	Attr         byte
	NTRes        byte
	CrtTimeTenth byte
	CrtTime      uint16
	CrtDate      uint16
	LstAccDate   uint16
	FstClusHI    uint16
	WrtTime      uint16
	WrtDate      uint16
	FstClusLO    uint16
	FileSize     uint32
}

// FirstCluster reassembles the 32-bit cluster number split across
// FstClusHI/FstClusLO.
func (e *SFNEntry) FirstCluster() Cluster {
	return Cluster(uint32(e.FstClusHI)<<16 | uint32(e.FstClusLO))
}

// SetFirstCluster splits a 32-bit cluster number across FstClusHI/FstClusLO.
func (e *SFNEntry) SetFirstCluster(c Cluster) {
	e.FstClusHI = uint16(uint32(c) >> 16)
	e.FstClusLO = uint16(uint32(c) & 0xFFFF)
}

// IsDirectory reports whether AttrDirectory is set.
func (e *SFNEntry) IsDirectory() bool {
	return e.Attr&AttrDirectory != 0
}

// EncodeSFNEntry packs an SFNEntry into its 32-byte on-disk form.
func EncodeSFNEntry(e *SFNEntry) [DirEntrySize]byte {
	var raw [DirEntrySize]byte
	copy(raw[0:11], e.Name[:])
	raw[11] = e.Attr
	raw[12] = e.NTRes
	raw[13] = e.CrtTimeTenth
	binary.LittleEndian.PutUint16(raw[14:16], e.CrtTime)
	binary.LittleEndian.PutUint16(raw[16:18], e.CrtDate)
	binary.LittleEndian.PutUint16(raw[18:20], e.LstAccDate)
	binary.LittleEndian.PutUint16(raw[20:22], e.FstClusHI)
	binary.LittleEndian.PutUint16(raw[22:24], e.WrtTime)
	binary.LittleEndian.PutUint16(raw[24:26], e.WrtDate)
	binary.LittleEndian.PutUint16(raw[26:28], e.FstClusLO)
	binary.LittleEndian.PutUint32(raw[28:32], e.FileSize)
	return raw
}

// DecodeSFNEntry is the inverse of EncodeSFNEntry.
func DecodeSFNEntry(raw []byte) SFNEntry {
	var e SFNEntry
	copy(e.Name[:], raw[0:11])
	e.Attr = raw[11]
	e.NTRes = raw[12]
	e.CrtTimeTenth = raw[13]
	e.CrtTime = binary.LittleEndian.Uint16(raw[14:16])
	e.CrtDate = binary.LittleEndian.Uint16(raw[16:18])
	e.LstAccDate = binary.LittleEndian.Uint16(raw[18:20])
	e.FstClusHI = binary.LittleEndian.Uint16(raw[20:22])
	e.WrtTime = binary.LittleEndian.Uint16(raw[22:24])
	e.WrtDate = binary.LittleEndian.Uint16(raw[24:26])
	e.FstClusLO = binary.LittleEndian.Uint16(raw[26:28])
	e.FileSize = binary.LittleEndian.Uint32(raw[28:32])
	return e
}

// LFNEntry is the decoded form of a long-name directory entry slot, 13 UTF-16
// code units packed across Name1/Name2/Name3. Ord carries the 1-based slot
// sequence number with LastLongEntryFlag set on the highest-numbered slot,
// which sits farthest from the SFN on disk.
type LFNEntry struct {
	Ord       byte
	Name1     [5]uint16
	Attr      byte
	Type      byte
	Chksum    byte
	Name2     [6]uint16
	FstClusLO uint16
	Name3     [2]uint16
}

// SequenceNumber returns Ord with LastLongEntryFlag masked off.
func (e *LFNEntry) SequenceNumber() int {
	return int(e.Ord & lfnOrdMask)
}

// IsLastSlot reports whether this is the first slot written (the one
// physically farthest from the SFN entry it belongs to), identified by
// LastLongEntryFlag in Ord.
func (e *LFNEntry) IsLastSlot() bool {
	return e.Ord&LastLongEntryFlag != 0
}

// EncodeLFNEntry packs an LFNEntry into its 32-byte on-disk form.
func EncodeLFNEntry(e *LFNEntry) [DirEntrySize]byte {
	var raw [DirEntrySize]byte
	raw[0] = e.Ord
	for i, u := range e.Name1 {
		binary.LittleEndian.PutUint16(raw[1+2*i:3+2*i], u)
	}
	raw[11] = e.Attr
	raw[12] = e.Type
	raw[13] = e.Chksum
	for i, u := range e.Name2 {
		binary.LittleEndian.PutUint16(raw[14+2*i:16+2*i], u)
	}
	binary.LittleEndian.PutUint16(raw[26:28], e.FstClusLO)
	for i, u := range e.Name3 {
		binary.LittleEndian.PutUint16(raw[28+2*i:30+2*i], u)
	}
	return raw
}

// DecodeLFNEntry is the inverse of EncodeLFNEntry.
func DecodeLFNEntry(raw []byte) LFNEntry {
	var e LFNEntry
	e.Ord = raw[0]
	for i := range e.Name1 {
		e.Name1[i] = binary.LittleEndian.Uint16(raw[1+2*i : 3+2*i])
	}
	e.Attr = raw[11]
	e.Type = raw[12]
	e.Chksum = raw[13]
	for i := range e.Name2 {
		e.Name2[i] = binary.LittleEndian.Uint16(raw[14+2*i : 16+2*i])
	}
	e.FstClusLO = binary.LittleEndian.Uint16(raw[26:28])
	for i := range e.Name3 {
		e.Name3[i] = binary.LittleEndian.Uint16(raw[28+2*i : 30+2*i])
	}
	return e
}

// buildLFNSlots splits a long name into the LFN entries needed to encode it,
// ordered from the LAST slot (LastLongEntryFlag set, farthest from the SFN)
// down to slot 1 (nearest the SFN), matching how they must be written to disk: highest ORD first,
// immediately preceding the SFN entry. checksum is the bound SFN's checksum
// (spec §4.5 / §4.6 "LFN binding").
func buildLFNSlots(name string, checksum byte) []LFNEntry {
	units := ASCIIToUTF16LE(name)

	slotCount := (len(units) + 12) / 13
	if slotCount == 0 {
		slotCount = 1
	}

	slots := make([]LFNEntry, slotCount)
	for i := 0; i < slotCount; i++ {
		start := i * 13
		end := start + 13
		if end > len(units) {
			end = len(units)
		}
		name1, name2, name3 := packLFNNameSlots(units[start:end])

		ord := byte(i + 1)
		if i == slotCount-1 {
			ord |= LastLongEntryFlag
		}

		slots[i] = LFNEntry{
			Ord:    ord,
			Name1:  name1,
			Attr:   AttrLongName,
			Type:   0,
			Chksum: checksum,
			Name2:  name2,
			Name3:  name3,
		}
	}

	// Slots must physically precede the SFN entry in descending ORD order.
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots
}

// assembleLFNName reassembles the long name from a run of LFN slots already
// ordered as they were read off disk (descending ORD, last-slot first). It
// returns an empty string if the run is structurally broken (gap in the
// sequence numbering), letting the caller fall back to the bound SFN.
func assembleLFNName(slots []LFNEntry) string {
	if len(slots) == 0 {
		return ""
	}
	expected := len(slots)
	for i, s := range slots {
		if s.SequenceNumber() != expected-i {
			return ""
		}
	}
	// Slot k holds characters (k-1)*13 .. k*13-1, so the name is read from
	// the last slot in the run (slot 1) back to the first (slot N).
	var units []uint16
	for i := len(slots) - 1; i >= 0; i-- {
		s := slots[i]
		units = append(units, unpackLFNNameSlots(s.Name1, s.Name2, s.Name3)...)
	}
	return UTF16LEToASCII(units)
}
