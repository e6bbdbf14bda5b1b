package fs

import "io"

// EntryResolver is the facade's contract back into the MFT Entry Parser:
// resolving an $ATTRIBUTE_LIST entry that points at a different MFT
// record means fetching that record, which only the MFT Cache & Vector
// (spec §4.6) can do. Kept as an interface here to avoid a cycle between
// mftentry.go and mft.go.
type EntryResolver interface {
	GetMFTEntry(id uint64) (*MFTEntry, error)
	ClusterSize() int64
	Options() Options
}

// MFTEntry is a parsed MFT record: its header plus lazy attribute
// enumeration (spec §4.5 "MFT Entry Parser").
type MFTEntry struct {
	*MFTEntryHeader

	buf        []byte
	diskReader io.ReaderAt
}

// NewMFTEntry wraps a fixed-up MFT record buffer. buf must already have
// had ApplyFixup run over it.
func NewMFTEntry(buf []byte, diskReader io.ReaderAt) (*MFTEntry, error) {
	const op = "NewMFTEntry"

	header := NewMFTEntryHeader(buf)
	if !header.IsValidMagic() {
		return nil, newErr(CorruptRecord, op, nil)
	}
	// spec §4.5: used-size must not exceed the record itself, and the
	// first attribute must start past the fixed header.
	if int64(header.UsedSize()) > int64(len(buf)) {
		return nil, newErr(CorruptRecord, op, nil)
	}
	if int64(header.AttributeOffset()) < mftEntryHeaderSize {
		return nil, newErr(CorruptRecord, op, nil)
	}

	stats.incMFTEntriesParsed()
	return &MFTEntry{MFTEntryHeader: header, buf: buf, diskReader: diskReader}, nil
}

// GetDirectAttribute searches only this entry's own attribute records,
// never following $ATTRIBUTE_LIST indirection (spec §4.5; see
// https://github.com/CCXLabs/CCXDigger/issues/13 for why following
// indirection here can cycle: an attribute list can point to an entry
// whose own attribute list points back into the first entry).
func (e *MFTEntry) GetDirectAttribute(kind AttributeKind, attributeID uint16) (*Attribute, error) {
	const op = "MFTEntry.GetDirectAttribute"

	offset := int64(e.AttributeOffset())
	mftSize := int64(len(e.buf))

	for {
		if offset <= 0 || offset+attributeHeaderCommonSize > mftSize {
			break
		}
		header := NewAttributeHeader(e.buf[offset:], offset)
		length := int64(header.Length())
		if length <= 0 || offset+length > mftSize {
			break
		}
		if header.Kind() == kind && header.AttributeID() == attributeID {
			return DecodeAttribute(e.buf, offset)
		}
		offset += length
	}

	return nil, newErr(NotFound, op, nil)
}

// EnumerateAttributes walks every attribute in this entry, expanding any
// $ATTRIBUTE_LIST into the foreign attributes it references (spec §4.5).
// Expansion is one level deep: each foreign attribute is fetched with
// GetDirectAttribute, so an $ATTRIBUTE_LIST inside a foreign entry is not
// followed, and a cyclic list neither recurses nor fails. The
// CyclicAttributeList check against resolver.Options().MaxAttributeListDepth
// applies only to the depth enumerateAttributes is called with, which is
// always 0 from here.
func (e *MFTEntry) EnumerateAttributes(resolver EntryResolver) ([]*Attribute, error) {
	return e.enumerateAttributes(resolver, 0)
}

func (e *MFTEntry) enumerateAttributes(resolver EntryResolver, depth int) ([]*Attribute, error) {
	const op = "MFTEntry.EnumerateAttributes"

	if depth > resolver.Options().MaxAttributeListDepth {
		return nil, newErr(CyclicAttributeList, op, nil)
	}

	offset := int64(e.AttributeOffset())
	mftSize := int64(len(e.buf))
	result := make([]*Attribute, 0, 16)

	for {
		if offset <= 0 || offset+attributeHeaderCommonSize > mftSize {
			break
		}
		header := NewAttributeHeader(e.buf[offset:], offset)
		length := int64(header.Length())
		if length <= 0 || offset+length > mftSize {
			break
		}

		attr, err := DecodeAttribute(e.buf, offset)
		if err != nil {
			return nil, err
		}

		if attr.Kind() == AttrAttributeList {
			members, err := e.expandAttributeList(resolver, attr, depth)
			if err != nil {
				return nil, err
			}
			result = append(result, members...)
		}

		result = append(result, attr)
		offset += length
	}

	return result, nil
}

// AttributeListEntry is one decoded entry of an $ATTRIBUTE_LIST.
type AttributeListEntry struct {
	Kind          AttributeKind
	Length        uint16
	StartVCN      uint64
	MFTReference  uint64
	SequenceValue uint16
	AttributeID   uint16
	Name          string
}

func decodeAttributeListEntry(buf []byte, offset int64) (*AttributeListEntry, bool) {
	if offset < 0 || offset+26 > int64(len(buf)) {
		return nil, false
	}
	b := buf[offset:]
	length := readUint16(b, 4)
	if length == 0 {
		return nil, false
	}

	nameLength := b[6]
	nameOffset := b[7]
	mftRef := readUint64(b, 16)

	entry := &AttributeListEntry{
		Kind:          AttributeKind(readUint32(b, 0)),
		Length:        length,
		StartVCN:      readUint64(b, 8),
		MFTReference:  mftRef & 0x0000FFFFFFFFFFFF,
		SequenceValue: uint16(mftRef >> 48),
		AttributeID:   readUint16(b, 24),
	}

	if nameLength > 0 {
		nameStart := offset + int64(nameOffset)
		nameEnd := nameStart + int64(nameLength)*2
		if nameStart >= 0 && nameEnd <= int64(len(buf)) {
			entry.Name = decodeUTF16LE(buf[nameStart:nameEnd])
		}
	}

	return entry, true
}

// expandAttributeList reads listAttr's body as a sequence of
// AttributeListEntry records and resolves the ones that point outside
// this entry, via resolver, using GetDirectAttribute on the foreign
// entry to avoid recursing through that entry's own attribute list.
func (e *MFTEntry) expandAttributeList(resolver EntryResolver, listAttr *Attribute, depth int) ([]*Attribute, error) {
	const op = "MFTEntry.expandAttributeList"

	data, err := listAttr.Data(resolver.ClusterSize(), e.diskReader)
	if err != nil {
		return nil, err
	}

	size := listAttr.DataSize()
	buf := make([]byte, size)
	n, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	buf = buf[:n]

	selfRecordNumber := uint64(e.RecordNumber())

	var result []*Attribute
	offset := int64(0)
	for offset < int64(len(buf)) {
		entry, ok := decodeAttributeListEntry(buf, offset)
		if !ok {
			break
		}

		if entry.MFTReference != selfRecordNumber {
			foreign, err := resolver.GetMFTEntry(entry.MFTReference)
			if err == nil {
				attr, err := foreign.GetDirectAttribute(entry.Kind, entry.AttributeID)
				if err == nil {
					result = append(result, attr)
				}
			}
		}

		offset += int64(entry.Length)
	}

	_ = depth
	return result, nil
}

// StandardInformation returns the entry's decoded $STANDARD_INFORMATION
// attribute, if present.
func (e *MFTEntry) StandardInformation(resolver EntryResolver) (*StandardInformation, error) {
	const op = "MFTEntry.StandardInformation"

	attrs, err := e.EnumerateAttributes(resolver)
	if err != nil {
		return nil, err
	}
	for _, attr := range attrs {
		if attr.Kind() == AttrStandardInformation {
			return DecodeStandardInformation(attr, resolver.ClusterSize(), e.diskReader)
		}
	}
	return nil, newErr(NotFound, op, nil)
}

// FileNames returns every decoded $FILE_NAME attribute attached to this
// entry - there is one per hard link / naming convention (Win32, DOS, POSIX).
func (e *MFTEntry) FileNames(resolver EntryResolver) ([]*FileNameAttribute, error) {
	attrs, err := e.EnumerateAttributes(resolver)
	if err != nil {
		return nil, err
	}

	var result []*FileNameAttribute
	for _, attr := range attrs {
		if attr.Kind() == AttrFileName {
			fn, err := DecodeFileNameAttribute(attr, resolver.ClusterSize(), e.diskReader)
			if err == nil {
				result = append(result, fn)
			}
		}
	}
	return result, nil
}

// IsDirectory reports whether the entry's header has the directory flag
// set or the entry carries an $INDEX_ROOT or $INDEX_ALLOCATION attribute,
// which only directories have.
func (e *MFTEntry) IsDirectory(resolver EntryResolver) bool {
	if e.MFTEntryHeader.IsDirectory() {
		return true
	}
	attrs, err := e.EnumerateAttributes(resolver)
	if err != nil {
		return false
	}
	for _, attr := range attrs {
		if attr.Kind() == AttrIndexRoot || attr.Kind() == AttrIndexAllocation {
			return true
		}
	}
	return false
}

// GetAttribute returns the first attribute of the given kind (and, if
// attributeID is non-zero, that exact instance), optionally restricted
// to a named stream (e.g. an alternate data stream).
func (e *MFTEntry) GetAttribute(resolver EntryResolver, kind AttributeKind, attributeID uint16, stream string) (*Attribute, error) {
	const op = "MFTEntry.GetAttribute"

	attrs, err := e.EnumerateAttributes(resolver)
	if err != nil {
		return nil, err
	}
	for _, attr := range attrs {
		if attr.Kind() != kind {
			continue
		}
		if attributeID != 0 && attr.AttributeID() != attributeID {
			continue
		}
		if stream != "" && attr.Name() != stream {
			continue
		}
		return attr, nil
	}
	return nil, newErr(NotFound, op, nil)
}
