package fs

import "encoding/binary"

// ApplyFixup implements the NTFS multi-sector transfer protection (the
// "update sequence" protocol). usaOffset is the byte offset, within
// buffer, of the update-sequence array; usaCount is the array's element
// count as stored in the record header (one "magic" element plus one
// element per sector). sectorSize is the device sector size used to find
// each sector's trailing 2-byte sentinel.
//
// This runs on every MFT entry and every index record before further
// parsing (spec §4.1). On success buffer is fixed up in place.
func ApplyFixup(buffer []byte, usaOffset int, usaCount int, sectorSize int64) error {
	const op = "ApplyFixup"

	if usaCount == 0 {
		// Nothing to fix up - some tools emit entries with no USA at
		// all (e.g. a literal $MFT blob with protection stripped).
		return nil
	}
	if usaOffset < 0 || usaOffset+2 > len(buffer) {
		return newErrAt(CorruptRecord, op, int64(usaOffset),
			nil)
	}

	usn := [2]byte{buffer[usaOffset], buffer[usaOffset+1]}

	numSectors := usaCount - 1
	usaEntries := usaOffset + 2

	for sector := 0; sector < numSectors; sector++ {
		entryOffset := usaEntries + sector*2
		if entryOffset+2 > len(buffer) {
			return newErrAt(CorruptRecord, op, int64(entryOffset),
				nil)
		}

		sentinelOffset := int(sectorSize)*(sector+1) - 2
		if sentinelOffset < 0 || sentinelOffset+2 > len(buffer) {
			return newErrAt(CorruptRecord, op, int64(sentinelOffset),
				nil)
		}

		if buffer[sentinelOffset] != usn[0] || buffer[sentinelOffset+1] != usn[1] {
			return newErrAt(CorruptRecord, op, int64(sentinelOffset),
				nil)
		}

		buffer[sentinelOffset] = buffer[entryOffset]
		buffer[sentinelOffset+1] = buffer[entryOffset+1]
	}

	stats.incFixupsApplied()
	return nil
}

// readUint16 and readUint32 are tiny helpers shared by the handwritten
// struct accessors; kept here since ApplyFixup is always the first thing
// run over a freshly read record.
func readUint16(b []byte, off int64) uint16 {
	if off < 0 || off+2 > int64(len(b)) {
		return 0
	}
	return binary.LittleEndian.Uint16(b[off : off+2])
}

func readUint32(b []byte, off int64) uint32 {
	if off < 0 || off+4 > int64(len(b)) {
		return 0
	}
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func readUint64(b []byte, off int64) uint64 {
	if off < 0 || off+8 > int64(len(b)) {
		return 0
	}
	return binary.LittleEndian.Uint64(b[off : off+8])
}
