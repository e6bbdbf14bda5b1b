package fs

import (
	"bytes"
	"testing"

	"github.com/alecthomas/assert"
)

func TestDecodeAttributeResident(t *testing.T) {
	raw := buildResidentAttribute(AttrFileName, 3, []byte("hello"))
	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)
	assert.Equal(t, AttrFileName, attr.Kind())
	assert.Equal(t, uint16(3), attr.AttributeID())
	assert.Equal(t, false, attr.IsNonResident())
	assert.Equal(t, int64(5), attr.DataSize())
}

func TestDecodeAttributeOutOfBoundsFails(t *testing.T) {
	raw := buildResidentAttribute(AttrFileName, 0, []byte("x"))
	_, err := DecodeAttribute(raw, int64(len(raw)))
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, CorruptRecord, code)
}

func TestAttributeDataResidentReadsContent(t *testing.T) {
	raw := buildResidentAttribute(AttrData, 0, []byte("payload!"))
	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)

	reader, err := attr.Data(4096, nil)
	assert.NoError(t, err)

	buf := make([]byte, 8)
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte("payload!"), buf)
}

func TestAttributeRunListUncompressed(t *testing.T) {
	runsEncoded := append(encodeRun(10, 100, false), 0x00)
	raw := buildNonResidentAttribute(AttrData, 0, runsEncoded, 10*4096, 10*4096, 10*4096, 0, false)

	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)
	assert.Equal(t, true, attr.IsNonResident())

	runs, err := attr.RunList(4096)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(runs))
	assert.Equal(t, int64(100), runs[0].LCN)
}

func TestAttributeRunListOnResidentFails(t *testing.T) {
	raw := buildResidentAttribute(AttrData, 0, []byte("x"))
	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)

	_, err = attr.RunList(4096)
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, InvalidArgument, code)
}

func TestAttributeDataNonResidentReadsThroughDisk(t *testing.T) {
	clusterSize := int64(512)
	disk := make([]byte, 4*clusterSize)
	copy(disk[1*clusterSize:], []byte("cluster-one-data"))

	runsEncoded := append(encodeRun(1, 1, false), 0x00)
	raw := buildNonResidentAttribute(AttrData, 0, runsEncoded,
		uint64(clusterSize), uint64(len("cluster-one-data")), uint64(clusterSize), 0, false)

	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)

	reader, err := attr.Data(clusterSize, bytes.NewReader(disk))
	assert.NoError(t, err)

	buf := make([]byte, len("cluster-one-data"))
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, []byte("cluster-one-data"), buf)
}

func TestNormalizeForCompressionMergesSparseTail(t *testing.T) {
	// A short real run (2 clusters) followed by a sparse run long enough
	// to fill out the rest of a 16-cluster compression unit, with more
	// sparse clusters left over afterwards - the on-disk layout of a
	// compressed unit (spec §4.4).
	runs := []Run{
		{Length: 2, LCN: 1940823},
		{Length: 30, IsSparse: true},
	}
	ranges := BuildRanges(runs, nil)
	normalized := NormalizeForCompression(ranges, 16)

	assert.Equal(t, 2, len(normalized))

	assert.Equal(t, int64(0), normalized[0].FileOffset)
	assert.Equal(t, int64(16), normalized[0].Length)
	assert.Equal(t, int64(2), normalized[0].CompressedLength)
	assert.Equal(t, int64(1940823), normalized[0].TargetOffset)

	assert.Equal(t, int64(16), normalized[1].FileOffset)
	assert.Equal(t, int64(16), normalized[1].Length)
	assert.Equal(t, int64(0), normalized[1].CompressedLength)
	assert.Equal(t, true, normalized[1].IsSparse)
}

func TestRangeReaderRangesClipToSize(t *testing.T) {
	runs := []Run{{Length: 2, LCN: 0}}
	reader := NewRangeReader(runs, 512, nil, 600, 600)

	ranges := reader.Ranges()
	assert.Equal(t, 1, len(ranges))
	assert.Equal(t, int64(0), ranges[0].Offset)
	assert.Equal(t, int64(600), ranges[0].Length)
}

func TestRangeReaderZeroesBeyondInitializedSize(t *testing.T) {
	clusterSize := int64(512)
	disk := make([]byte, clusterSize)
	for i := range disk {
		disk[i] = 0xAA
	}

	runs := []Run{{Length: 1, LCN: 0}}
	// valid_size covers the whole cluster, but only the first quarter of
	// it has ever been written (spec §3, §4.4 point 4).
	reader := NewRangeReader(runs, clusterSize, bytes.NewReader(disk), clusterSize, clusterSize/4)

	buf := make([]byte, clusterSize)
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, int(clusterSize), n)

	for i, b := range buf {
		if int64(i) < clusterSize/4 {
			assert.Equal(t, byte(0xAA), b)
		} else {
			assert.Equal(t, byte(0), b)
		}
	}

	// A read entirely past InitializedSize never touches diskReader.
	tail := make([]byte, 16)
	n, err = reader.ReadAt(tail, clusterSize/4+32)
	assert.NoError(t, err)
	assert.Equal(t, 16, n)
	for _, b := range tail {
		assert.Equal(t, byte(0), b)
	}
}

func TestAttributeDataNonResidentZeroesUninitializedTail(t *testing.T) {
	clusterSize := int64(512)
	disk := make([]byte, clusterSize)
	copy(disk, []byte("cluster-one-data"))

	runsEncoded := append(encodeRun(1, 0, false), 0x00)
	// allocated_size == valid_size == one cluster, but initialized_size
	// covers only the leading 16 bytes actually written.
	raw := buildNonResidentAttribute(AttrData, 0, runsEncoded,
		uint64(clusterSize), uint64(clusterSize), uint64(len("cluster-one-data")), 0, false)

	attr, err := DecodeAttribute(raw, 0)
	assert.NoError(t, err)

	reader, err := attr.Data(clusterSize, bytes.NewReader(disk))
	assert.NoError(t, err)

	buf := make([]byte, clusterSize)
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, int(clusterSize), n)

	assert.Equal(t, []byte("cluster-one-data"), buf[:len("cluster-one-data")])
	for _, b := range buf[len("cluster-one-data"):] {
		assert.Equal(t, byte(0), b)
	}
}
