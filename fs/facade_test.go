package fs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildDirectoryIndexRootBody assembles a minimal $FILE_NAME $INDEX_ROOT
// body with a single child entry (index.go's walkDirectoryNode is the
// reader for this exact layout).
func buildDirectoryIndexRootBody(parentRef, childRef uint64, childName string, nameType byte) []byte {
	key := buildFileNameBody(parentRef, childName, nameType)
	const entryHeaderSize = 16
	const nodeHeaderSize = 16
	entryTotal := entryHeaderSize + len(key)

	buf := make([]byte, 16+nodeHeaderSize+entryTotal)

	writeUint32(buf, 16, uint32(nodeHeaderSize))
	writeUint32(buf, 20, uint32(nodeHeaderSize+entryTotal))

	entryOffset := 16 + nodeHeaderSize
	writeUint64(buf, entryOffset, childRef)
	writeUint16(buf, entryOffset+8, uint16(entryTotal))
	writeUint16(buf, entryOffset+10, uint16(len(key)))
	writeUint16(buf, entryOffset+12, 0)
	copy(buf[entryOffset+16:], key)

	return buf
}

// buildMFTOnlyVolume lays out a synthetic literal $MFT blob: a valid
// (but otherwise empty) entry 0 - Bootstrap always fixup-validates it,
// even in MFT-only mode - a directory at MFTEntryIndexRoot naming one
// child, and that child itself.
func buildMFTOnlyVolume(entrySize, numEntries int64) (*StaticIOHandle, []byte) {
	total := int(entrySize * numEntries)
	buf := make([]byte, total)

	copy(buf[0:entrySize], buildMFTRecord(0, 0, int(entrySize), nil))

	indexRoot := buildResidentAttribute(AttrIndexRoot, 0,
		buildDirectoryIndexRootBody(MFTEntryIndexRoot, 20, "child.txt", 1))
	rootRecord := buildMFTRecord(MFTEntryIndexRoot, 0x0002, int(entrySize), [][]byte{indexRoot})
	copy(buf[MFTEntryIndexRoot*entrySize:], rootRecord)

	fn := buildResidentAttribute(AttrFileName, 0, buildFileNameBody(MFTEntryIndexRoot, "child.txt", 1))
	childRecord := buildMFTRecord(20, 0, int(entrySize), [][]byte{fn})
	copy(buf[20*entrySize:], childRecord)

	ioHandle := &StaticIOHandle{Cluster: 4096, EntrySize: entrySize, SectorSize: 512, Offset: 0}
	return ioHandle, buf
}

func TestOpenMFTOnlyResolvesDirectoryAndPath(t *testing.T) {
	entrySize := int64(1024)
	ioHandle, buf := buildMFTOnlyVolume(entrySize, 24)

	facade, err := OpenMFTOnly(ioHandle, bytes.NewReader(buf), entrySize*24, GetDefaultOptions())
	assert.NoError(t, err)

	assert.Equal(t, int64(24), facade.NumberOfMFTEntries())

	entry, err := facade.Open("child.txt")
	assert.NoError(t, err)
	assert.Equal(t, uint32(20), entry.RecordNumber())

	assert.Equal(t, "/child.txt", facade.GetFullPath(20))

	_, err = facade.Open("nope.txt")
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, NotFound, code)
}

func TestOpenMFTOnlyToleratesMissingBitmapAndSecurity(t *testing.T) {
	entrySize := int64(1024)
	ioHandle, buf := buildMFTOnlyVolume(entrySize, 24)

	facade, err := OpenMFTOnly(ioHandle, bytes.NewReader(buf), entrySize*24, GetDefaultOptions())
	assert.NoError(t, err)

	assert.Nil(t, facade.AllocatedRanges())

	_, _, err = facade.GetSecurityDescriptorValuesByIdentifier(1)
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, NotFound, code)
}

func TestBootstrapRejectsZeroMFTSize(t *testing.T) {
	ioHandle := &StaticIOHandle{Cluster: 4096, EntrySize: 1024, SectorSize: 512, Offset: 0}
	_, err := Bootstrap(ioHandle, bytes.NewReader(make([]byte, 4096)), 0, 0, GetDefaultOptions())
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, OutOfBounds, code)
}

func TestBootstrapRejectsOversizedMFTSize(t *testing.T) {
	ioHandle := &StaticIOHandle{Cluster: 4096, EntrySize: 1024, SectorSize: 512, Offset: 0}
	_, err := Bootstrap(ioHandle, bytes.NewReader(make([]byte, 4096)), maxPlatformMFTSize+1, 0, GetDefaultOptions())
	assert.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, InvalidArgument, code)
}

// buildCycleVolume lays out two entries whose $FILE_NAME parent chains
// point at each other, to exercise GetHardLinks' depth-limit guard
// (hardlinks.go never finds a real root, since neither parent is 5 or 0).
// Each parent reference carries sequence 1, matching buildMFTRecord's
// SequenceValue, so the walk keeps following the cycle.
func buildCycleVolume(entrySize int64) (*StaticIOHandle, []byte) {
	const numEntries = 22
	buf := make([]byte, entrySize*numEntries)

	copy(buf[0:entrySize], buildMFTRecord(0, 0, int(entrySize), nil))

	fn20 := buildResidentAttribute(AttrFileName, 0, buildFileNameBody(1<<48|21, "a", 1))
	copy(buf[20*entrySize:], buildMFTRecord(20, 0, int(entrySize), [][]byte{fn20}))

	fn21 := buildResidentAttribute(AttrFileName, 0, buildFileNameBody(1<<48|20, "b", 1))
	copy(buf[21*entrySize:], buildMFTRecord(21, 0, int(entrySize), [][]byte{fn21}))

	ioHandle := &StaticIOHandle{Cluster: 4096, EntrySize: entrySize, SectorSize: 512, Offset: 0}
	return ioHandle, buf
}

func TestGetHardLinksDepthLimitOnCycle(t *testing.T) {
	entrySize := int64(1024)
	ioHandle, buf := buildCycleVolume(entrySize)

	facade, err := OpenMFTOnly(ioHandle, bytes.NewReader(buf), entrySize*22, GetDefaultOptions())
	assert.NoError(t, err)

	links := facade.GetHardLinks(20, 1)
	assert.Equal(t, 1, len(links))

	// Components are root first, so the synthetic marker that ends the
	// walk takes the root's place.
	first := links[0][0]
	assert.Equal(t, "<Err>", first)
}
