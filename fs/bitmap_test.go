package fs

import (
	"bytes"
	"testing"

	"github.com/alecthomas/assert"
)

func TestReadBitmapCoalescesRuns(t *testing.T) {
	data := bytes.NewReader([]byte{0x03, 0x00, 0xFF, 0x00})

	ranges, err := ReadBitmap(data, 4)
	assert.NoError(t, err)
	assert.Equal(t, []AllocationRange{
		{StartCluster: 0, ClusterCount: 2},
		{StartCluster: 16, ClusterCount: 8},
	}, ranges)
}

func TestReadBitmapTrailingRunFlushedAtEnd(t *testing.T) {
	data := bytes.NewReader([]byte{0x00, 0x00, 0x00, 0xFF})
	ranges, err := ReadBitmap(data, 4)
	assert.NoError(t, err)
	assert.Equal(t, []AllocationRange{{StartCluster: 24, ClusterCount: 8}}, ranges)
}

func TestReadBitmapRejectsSizeNotMultipleOf4(t *testing.T) {
	data := bytes.NewReader([]byte{0x00, 0x00, 0x00})
	_, err := ReadBitmap(data, 3)
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CorruptBitmap, code)
}

func TestReadBitmapRejectsNegativeSize(t *testing.T) {
	data := bytes.NewReader(nil)
	_, err := ReadBitmap(data, -4)
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, InvalidArgument, code)
}

func TestIsAllocated(t *testing.T) {
	ranges := []AllocationRange{
		{StartCluster: 0, ClusterCount: 2},
		{StartCluster: 16, ClusterCount: 8},
	}
	assert.True(t, IsAllocated(ranges, 0))
	assert.True(t, IsAllocated(ranges, 1))
	assert.False(t, IsAllocated(ranges, 2))
	assert.True(t, IsAllocated(ranges, 23))
	assert.False(t, IsAllocated(ranges, 24))
}
