package fs

import "encoding/binary"

// Byte-construction helpers shared by the fs package's white-box tests:
// enough of the on-disk layouts in handwritten.go to build minimal, valid
// MFT records and attributes without a real disk image.

func writeUint16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func writeUint32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func writeUint64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:off+8], v) }

// buildResidentAttribute assembles a resident NTFS_ATTRIBUTE record
// (header + content, no name).
func buildResidentAttribute(kind AttributeKind, attributeID uint16, content []byte) []byte {
	const headerLen = 24
	total := headerLen + len(content)
	buf := make([]byte, total)

	writeUint32(buf, 0, uint32(kind))
	writeUint32(buf, 4, uint32(total))
	buf[8] = 0 // resident
	buf[9] = 0 // name length
	writeUint16(buf, 10, 0)
	writeUint16(buf, 12, 0) // flags
	writeUint16(buf, 14, attributeID)
	writeUint32(buf, 16, uint32(len(content)))
	writeUint16(buf, 20, uint16(headerLen))
	copy(buf[headerLen:], content)
	return buf
}

// buildNonResidentAttribute assembles a non-resident NTFS_ATTRIBUTE record
// whose run list is runsEncoded (the caller-supplied wire form from
// runs_test.go's encodeRun, terminated with 0x00).
func buildNonResidentAttribute(kind AttributeKind, attributeID uint16, runsEncoded []byte,
	allocatedSize, actualSize, initializedSize uint64, compressionUnitSizeLog uint16, compressed bool) []byte {

	const headerLen = 64
	total := headerLen + len(runsEncoded)
	buf := make([]byte, total)

	writeUint32(buf, 0, uint32(kind))
	writeUint32(buf, 4, uint32(total))
	buf[8] = 1 // non-resident
	buf[9] = 0
	writeUint16(buf, 10, 0)
	var flags uint16
	if compressed {
		flags |= 0x0001
	}
	writeUint16(buf, 12, flags)
	writeUint16(buf, 14, attributeID)
	writeUint64(buf, 16, 0) // RunlistVCNStart
	writeUint64(buf, 24, 0) // RunlistVCNEnd
	writeUint16(buf, 32, uint16(headerLen))
	writeUint16(buf, 34, compressionUnitSizeLog)
	writeUint64(buf, 40, allocatedSize)
	writeUint64(buf, 48, actualSize)
	writeUint64(buf, 56, initializedSize)
	copy(buf[headerLen:], runsEncoded)
	return buf
}

// buildMFTRecord assembles a complete, fixup-free MFT record (FixupCount
// 0 - callers that need fixup coverage build it separately in
// fixup_test.go) of totalSize bytes containing attrs back to back,
// terminated by the 0xFFFFFFFF end marker.
func buildMFTRecord(recordNumber uint32, flags uint16, totalSize int, attrs [][]byte) []byte {
	buf := make([]byte, totalSize)
	copy(buf[0:4], "FILE")
	writeUint16(buf, 4, 0)  // FixupOffset
	writeUint16(buf, 6, 0)  // FixupCount
	writeUint64(buf, 8, 0)  // LogfileSequenceNumber
	writeUint16(buf, 16, 1) // SequenceValue
	writeUint16(buf, 18, 1) // LinkCount
	writeUint16(buf, 20, mftEntryHeaderSize)
	writeUint16(buf, 22, flags)
	writeUint64(buf, 32, 0) // BaseRecordReference
	writeUint16(buf, 40, 100)
	writeUint32(buf, 44, recordNumber)

	offset := mftEntryHeaderSize
	for _, a := range attrs {
		copy(buf[offset:], a)
		offset += len(a)
	}
	writeUint32(buf, offset, uint32(AttrEndOfAttributes))
	offset += 4

	writeUint32(buf, 24, uint32(offset))      // UsedSize
	writeUint32(buf, 28, uint32(totalSize))   // AllocatedSize
	return buf
}

// fakeResolver is a minimal EntryResolver backed by an in-memory id->entry
// map, for tests that exercise $ATTRIBUTE_LIST expansion or path
// resolution without a real MFT bootstrap.
type fakeResolver struct {
	entries map[uint64]*MFTEntry
	cluster int64
	opts    Options
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		entries: make(map[uint64]*MFTEntry),
		cluster: 4096,
		opts:    GetDefaultOptions(),
	}
}

func (f *fakeResolver) GetMFTEntry(id uint64) (*MFTEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, newErr(NotFound, "fakeResolver.GetMFTEntry", nil)
	}
	return e, nil
}

func (f *fakeResolver) ClusterSize() int64 { return f.cluster }
func (f *fakeResolver) Options() Options   { return f.opts }

// encodeUTF16LE is decodeUTF16LE's inverse, good enough for the ASCII
// names these tests construct.
func encodeUTF16LE(s string) []byte {
	var buf []byte
	for _, r := range s {
		if r > 0xFFFF {
			r -= 0x10000
			hi := uint16(0xD800 + (r >> 10))
			lo := uint16(0xDC00 + (r & 0x3FF))
			buf = append(buf, byte(hi), byte(hi>>8), byte(lo), byte(lo>>8))
		} else {
			u := uint16(r)
			buf = append(buf, byte(u), byte(u>>8))
		}
	}
	return buf
}

// buildFileNameBody assembles a $FILE_NAME attribute body (spec §4.9;
// decodeFileNameBytes in model.go is the reader for this exact layout).
func buildFileNameBody(parentRef uint64, name string, nameType byte) []byte {
	encodedName := encodeUTF16LE(name)
	buf := make([]byte, 66+len(encodedName))
	writeUint64(buf, 0, parentRef)
	buf[64] = byte(len(name))
	buf[65] = nameType
	copy(buf[66:], encodedName)
	return buf
}

// buildAttributeListEntryBody assembles one unnamed $ATTRIBUTE_LIST entry
// (spec §4.5 attribute-list expansion; decodeAttributeListEntry in
// mftentry.go is the reader for this exact layout).
func buildAttributeListEntryBody(kind AttributeKind, mftReference uint64, attributeID uint16) []byte {
	const size = 26
	buf := make([]byte, size)
	writeUint32(buf, 0, uint32(kind))
	writeUint16(buf, 4, size)
	buf[6] = 0 // name length
	buf[7] = 0 // name offset
	writeUint64(buf, 8, 0) // StartVCN
	writeUint64(buf, 16, mftReference)
	writeUint16(buf, 24, attributeID)
	return buf
}
