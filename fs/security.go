package fs

import "io"

// SecurityIndexEntry is one $SII index value: the mapping from a
// security identifier to where its descriptor lives in the $SDS stream
// (spec §4.8 "Security Descriptor Index").
type SecurityIndexEntry struct {
	SecurityID uint32
	Hash       uint32
	SDSOffset  uint64
	SDSSize    uint32
}

const (
	indexEntryFlagHasSubnode = 0x0001
	indexEntryFlagLastEntry  = 0x0002
)

// ReadSIIIndex walks the $SII index's B-tree node(s) and returns every
// SecurityIndexEntry found. root is the $INDEX_ROOT attribute's data;
// allocationNodes, if non-nil, supplies the fixed-up $INDEX_ALLOCATION
// node buffers (one per index record) for volumes whose $SII outgrew a
// single resident node.
func ReadSIIIndex(root io.ReaderAt, rootSize int64, allocationNodes [][]byte) ([]SecurityIndexEntry, error) {
	const op = "ReadSIIIndex"

	buf := make([]byte, rootSize)
	n, err := root.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	buf = buf[:n]

	// INDEX_ROOT: AttributeType(4) CollationRule(4) EntrySize(4)
	// ClustersPerRecord(4), then the 16-byte node header.
	if len(buf) < 16 {
		return nil, newErr(CorruptRecord, op, nil)
	}

	var result []SecurityIndexEntry
	entries, err := walkIndexNode(buf, 16)
	if err != nil {
		return nil, err
	}
	result = append(result, entries...)

	for _, node := range allocationNodes {
		// $INDEX_ALLOCATION records repeat the STANDARD_INDEX_HEADER
		// (magic + fixup table) before their own 16-byte node header;
		// the fixup is applied by the caller via ApplyFixup before this
		// function ever sees the buffer.
		const recordHeaderSize = 24
		if len(node) < recordHeaderSize+16 {
			continue
		}
		entries, err := walkIndexNode(node, recordHeaderSize)
		if err != nil {
			continue
		}
		result = append(result, entries...)
	}

	return result, nil
}

// walkIndexNode reads the generic B-tree node header at
// buf[nodeHeaderSize:] and iterates its index entries, decoding each as a
// SecurityIndexEntry. nodeHeaderSize is the number of bytes preceding the
// node header: 16 within $INDEX_ROOT's body (its fixed fields), or 24
// within an $INDEX_ALLOCATION record (its STANDARD_INDEX_HEADER).
func walkIndexNode(buf []byte, nodeHeaderSize int) ([]SecurityIndexEntry, error) {
	const op = "walkIndexNode"

	if nodeHeaderSize+16 > len(buf) {
		return nil, newErr(CorruptRecord, op, nil)
	}

	firstEntryOffset := int64(readUint32(buf, int64(nodeHeaderSize)))
	totalSize := int64(readUint32(buf, int64(nodeHeaderSize)+4))

	nodeStart := int64(nodeHeaderSize)
	offset := nodeStart + firstEntryOffset
	end := nodeStart + totalSize
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}

	var result []SecurityIndexEntry
	for offset+16 <= end {
		length := int64(readUint16(buf, offset+8))
		if length < 16 || offset+length > int64(len(buf)) {
			break
		}
		flags := readUint16(buf, offset+12)

		if flags&indexEntryFlagLastEntry == 0 {
			dataOffset := int64(readUint16(buf, offset))
			dataLength := int64(readUint16(buf, offset+2))
			valueStart := offset + dataOffset
			valueEnd := valueStart + dataLength
			if dataLength >= 20 && valueEnd <= int64(len(buf)) {
				value := buf[valueStart:valueEnd]
				result = append(result, SecurityIndexEntry{
					Hash:       readUint32(value, 0),
					SecurityID: readUint32(value, 4),
					SDSOffset:  readUint64(value, 8),
					SDSSize:    readUint32(value, 16),
				})
			}
		}

		if flags&indexEntryFlagLastEntry != 0 {
			break
		}
		offset += length
	}

	return result, nil
}

// SecurityDescriptorHeader is the fixed header preceding every
// descriptor payload in the $SDS stream.
type SecurityDescriptorHeader struct {
	Hash       uint32
	SecurityID uint32
	Offset     uint64
	Size       uint32
}

// ReadSecurityDescriptor reads one $SDS record at the given byte offset
// and returns its header plus raw descriptor payload (the payload is an
// opaque SECURITY_DESCRIPTOR_RELATIVE blob this package does not
// interpret further; spec §4.8 scopes SID/ACL parsing out).
func ReadSecurityDescriptor(sds io.ReaderAt, offset uint64, size uint32) (*SecurityDescriptorHeader, []byte, error) {
	const op = "ReadSecurityDescriptor"

	if size < 20 {
		return nil, nil, newErr(CorruptRecord, op, nil)
	}

	buf := make([]byte, size)
	n, err := sds.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, nil, newErr(IoError, op, err)
	}
	buf = buf[:n]
	if len(buf) < 20 {
		return nil, nil, newErr(TruncatedAttribute, op, nil)
	}

	header := &SecurityDescriptorHeader{
		Hash:       readUint32(buf, 0),
		SecurityID: readUint32(buf, 4),
		Offset:     readUint64(buf, 8),
		Size:       readUint32(buf, 16),
	}

	return header, buf[20:], nil
}

// SecurityDescriptorIndex is a resolved, in-memory view over a volume's
// $Secure:$SII / $Secure:$SDS pair, built once at bootstrap.
type SecurityDescriptorIndex struct {
	bySecurityID map[uint32]SecurityIndexEntry
	sds          io.ReaderAt
}

// NewSecurityDescriptorIndex builds the identifier -> $SDS-location map
// from a decoded $SII index.
func NewSecurityDescriptorIndex(entries []SecurityIndexEntry, sds io.ReaderAt) *SecurityDescriptorIndex {
	index := &SecurityDescriptorIndex{
		bySecurityID: make(map[uint32]SecurityIndexEntry, len(entries)),
		sds:          sds,
	}
	for _, e := range entries {
		index.bySecurityID[e.SecurityID] = e
	}
	return index
}

// GetByIdentifier returns the raw descriptor payload for a security
// identifier, or NotFound if the index has no entry for it.
func (idx *SecurityDescriptorIndex) GetByIdentifier(securityID uint32) (*SecurityDescriptorHeader, []byte, error) {
	const op = "SecurityDescriptorIndex.GetByIdentifier"

	entry, ok := idx.bySecurityID[securityID]
	if !ok {
		return nil, nil, newErr(NotFound, op, nil)
	}

	header, payload, err := ReadSecurityDescriptor(idx.sds, entry.SDSOffset, entry.SDSSize)
	if err != nil {
		return nil, nil, err
	}
	if header.SecurityID != securityID || header.Size != entry.SDSSize {
		return nil, nil, newErr(CorruptRecord, op, nil)
	}
	return header, payload, nil
}
