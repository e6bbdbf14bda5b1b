package fs

import (
	"testing"

	"github.com/alecthomas/assert"
)

func TestLZNT1DecompressUncompressedBlock(t *testing.T) {
	data := []byte("Hello, NTFS!1234")
	size := len(data) - 1
	in := []byte{byte(size), byte(size >> 8)}
	in = append(in, data...)

	out, err := LZNT1Decompress(in)
	assert.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestLZNT1DecompressCompressedLiteralsOnly(t *testing.T) {
	// A compressed block whose control byte marks every symbol as a
	// literal, i.e. behaviorally identical to the uncompressed path.
	payload := []byte{0x00, 'a', 'b', 'c', 'd'}
	size := len(payload) - 1
	header := uint16(size) | compressedMask
	in := []byte{byte(header), byte(header >> 8)}
	in = append(in, payload...)

	out, err := LZNT1Decompress(in)
	assert.NoError(t, err)
	assert.Equal(t, []byte("abcd"), out)
}

func TestLZNT1DecompressBackReferenceBeforeOutputStartFails(t *testing.T) {
	// Control byte 0x01 marks the first symbol as a back-reference, but
	// no output has been produced yet - the pointer necessarily resolves
	// to a negative index.
	payload := []byte{0x01, 0x00, 0x00}
	size := len(payload) - 1
	header := uint16(size) | compressedMask
	in := []byte{byte(header), byte(header >> 8)}
	in = append(in, payload...)

	_, err := LZNT1Decompress(in)
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CorruptRecord, code)
}

func TestLZNT1DecompressEmptyInput(t *testing.T) {
	out, err := LZNT1Decompress(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(out))
}

func TestLZNT1DecompressTruncatedBlockFails(t *testing.T) {
	size := 10
	in := []byte{byte(size), byte(size >> 8), 'a', 'b'} // claims 11 bytes, supplies 2
	_, err := LZNT1Decompress(in)
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, CorruptRecord, code)
}
