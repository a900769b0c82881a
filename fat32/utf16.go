package fat32

// ASCIIToUTF16LE zero-extends an ASCII string into UTF-16LE code units, per
// spec §4.5 ("trivial zero-extend / truncate").
func ASCIIToUTF16LE(s string) []uint16 {
	out := make([]uint16, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint16(s[i])
	}
	return out
}

// UTF16LEToASCII truncates each UTF-16LE code unit back down to a byte.
// Values above 0xFF have no ASCII representation and are replaced with '?',
// matching the codec's documented lossy truncate direction.
func UTF16LEToASCII(units []uint16) string {
	out := make([]byte, len(units))
	for i, u := range units {
		if u > 0xFF {
			out[i] = '?'
		} else {
			out[i] = byte(u)
		}
	}
	return string(out)
}

// packLFNNameSlots encodes name (already UTF-16LE code units) into the
// three name fields of an LFN slot (5 + 6 + 2 = 13 chars), zero-terminating
// within the slot and filling the remainder with 0xFFFF, per spec §4.5.
func packLFNNameSlots(units []uint16) (name1 [5]uint16, name2 [6]uint16, name3 [2]uint16) {
	padded := make([]uint16, 13)
	terminated := false
	for i := 0; i < 13; i++ {
		if i < len(units) {
			padded[i] = units[i]
		} else if !terminated {
			padded[i] = 0x0000
			terminated = true
		} else {
			padded[i] = 0xFFFF
		}
	}

	copy(name1[:], padded[0:5])
	copy(name2[:], padded[5:11])
	copy(name3[:], padded[11:13])
	return
}

// unpackLFNNameSlots is the inverse of packLFNNameSlots: reassemble the 13
// UTF-16LE code units from an LFN slot's three name fields, stopping at the
// first 0x0000 terminator (0xFFFF padding past it is discarded).
func unpackLFNNameSlots(name1 [5]uint16, name2 [6]uint16, name3 [2]uint16) []uint16 {
	all := make([]uint16, 0, 13)
	all = append(all, name1[:]...)
	all = append(all, name2[:]...)
	all = append(all, name3[:]...)

	for i, u := range all {
		if u == 0x0000 {
			return all[:i]
		}
	}
	return all
}
