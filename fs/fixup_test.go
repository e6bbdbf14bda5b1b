package fs

import (
	"testing"

	"github.com/alecthomas/assert"
)

func buildFixedUpRecord(sectorSize int, numSectors int, usn [2]byte) []byte {
	buf := make([]byte, sectorSize*numSectors)
	copy(buf, "FILE")
	// FixupOffset (bytes 4-5) = 42, FixupCount (bytes 6-7) = numSectors+1
	// (one magic + one per sector).
	buf[4] = 42
	buf[5] = 0
	buf[6] = byte(numSectors + 1)
	buf[7] = 0

	usaOffset := 42
	buf[usaOffset] = usn[0]
	buf[usaOffset+1] = usn[1]

	for sector := 0; sector < numSectors; sector++ {
		entryOffset := usaOffset + 2 + sector*2
		// The two real bytes that belong at the sector's tail.
		buf[entryOffset] = byte(0x10 + sector)
		buf[entryOffset+1] = byte(0x20 + sector)

		sentinel := sectorSize*(sector+1) - 2
		buf[sentinel] = usn[0]
		buf[sentinel+1] = usn[1]
	}
	return buf
}

func TestApplyFixupRestoresSectorTails(t *testing.T) {
	buf := buildFixedUpRecord(512, 2, [2]byte{0xAB, 0xCD})

	err := ApplyFixup(buf, 42, 3, 512)
	assert.NoError(t, err)

	assert.Equal(t, buf[510], byte(0x10))
	assert.Equal(t, buf[511], byte(0x20))
	assert.Equal(t, buf[1022], byte(0x11))
	assert.Equal(t, buf[1023], byte(0x21))
}

func TestApplyFixupZeroCountIsNoop(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf, "FILE")
	err := ApplyFixup(buf, 4, 0, 512)
	assert.NoError(t, err)
}

func TestApplyFixupSentinelMismatch(t *testing.T) {
	buf := buildFixedUpRecord(512, 1, [2]byte{0xAB, 0xCD})
	// Corrupt the sentinel so it no longer matches the stored USN.
	buf[510] = 0xFF

	err := ApplyFixup(buf, 42, 2, 512)
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CorruptRecord, code)
}

func TestApplyFixupOutOfBoundsOffset(t *testing.T) {
	buf := make([]byte, 64)
	err := ApplyFixup(buf, 100, 2, 512)
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, CorruptRecord, code)
}

func TestReadUintHelpersOutOfBounds(t *testing.T) {
	buf := []byte{1, 2, 3}
	assert.Equal(t, uint16(0), readUint16(buf, 2))
	assert.Equal(t, uint32(0), readUint32(buf, 0))
	assert.Equal(t, uint64(0), readUint64(buf, 0))
	assert.Equal(t, uint16(0x0201), readUint16(buf, 0))
}
