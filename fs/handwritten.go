package fs

import (
	"fmt"
)

// Hand written accessors over the two fixed on-disk headers this package
// cares about: the MFT entry header and the attribute header that
// precedes every attribute's own body. Both operate directly on a
// fixed-up in-memory buffer rather than re-reading through a profile, since
// by the time either is constructed ApplyFixup has already run.

// mftEntryHeaderSize is the fixed MFT_ENTRY header size (spec §6: magic
// through RecordNumber is exactly 48 bytes); the rest of the 1024 (or
// IOHandle.MFTEntrySize()) byte record is attribute data starting at
// AttributeOffset.
const mftEntryHeaderSize = 48

// MFTEntryHeader is the fixed header every MFT record begins with.
type MFTEntryHeader struct {
	b      []byte
	Offset int64
}

// NewMFTEntryHeader wraps buf, which must already be fixed up, as an
// MFT_ENTRY header view.
func NewMFTEntryHeader(buf []byte) *MFTEntryHeader {
	return &MFTEntryHeader{b: buf}
}

func (h *MFTEntryHeader) Magic() uint32                   { return readUint32(h.b, 0) }
func (h *MFTEntryHeader) FixupOffset() uint16             { return readUint16(h.b, 4) }
func (h *MFTEntryHeader) FixupCount() uint16              { return readUint16(h.b, 6) }
func (h *MFTEntryHeader) LogfileSequenceNumber() uint64   { return readUint64(h.b, 8) }
func (h *MFTEntryHeader) SequenceValue() uint16           { return readUint16(h.b, 16) }
func (h *MFTEntryHeader) LinkCount() uint16               { return readUint16(h.b, 18) }
func (h *MFTEntryHeader) AttributeOffset() uint16         { return readUint16(h.b, 20) }
func (h *MFTEntryHeader) Flags() uint16                   { return readUint16(h.b, 22) }
func (h *MFTEntryHeader) UsedSize() uint32                { return readUint32(h.b, 24) }
func (h *MFTEntryHeader) AllocatedSize() uint32           { return readUint32(h.b, 28) }
func (h *MFTEntryHeader) BaseRecordReference() uint64     { return readUint64(h.b, 32) }
func (h *MFTEntryHeader) NextAttributeID() uint16         { return readUint16(h.b, 40) }
func (h *MFTEntryHeader) RecordNumber() uint32            { return readUint32(h.b, 44) }

// IsValidMagic reports whether the record begins with the "FILE" magic
// (spec §4.1: every MFT record and index record starts with a 4-byte
// magic consumed by the Fixup Decoder's caller before fixup runs).
func (h *MFTEntryHeader) IsValidMagic() bool {
	return len(h.b) >= 4 && h.b[0] == 'F' && h.b[1] == 'I' && h.b[2] == 'L' && h.b[3] == 'E'
}

func (h *MFTEntryHeader) IsAllocated() bool { return h.Flags()&(1<<0) != 0 }
func (h *MFTEntryHeader) IsDirectory() bool { return h.Flags()&(1<<1) != 0 }

func (h *MFTEntryHeader) DebugString() string {
	return fmt.Sprintf(
		"struct MFT_ENTRY:\n"+
			"  FixupOffset: %#x\n"+
			"  FixupCount: %#x\n"+
			"  SequenceValue: %#x\n"+
			"  LinkCount: %#x\n"+
			"  AttributeOffset: %#x\n"+
			"  Flags: %#x (allocated=%v directory=%v)\n"+
			"  UsedSize: %#x\n"+
			"  AllocatedSize: %#x\n"+
			"  BaseRecordReference: %#x\n"+
			"  NextAttributeID: %#x\n"+
			"  RecordNumber: %#x\n",
		h.FixupOffset(), h.FixupCount(), h.SequenceValue(), h.LinkCount(),
		h.AttributeOffset(), h.Flags(), h.IsAllocated(), h.IsDirectory(),
		h.UsedSize(), h.AllocatedSize(), h.BaseRecordReference(),
		h.NextAttributeID(), h.RecordNumber())
}

// AttributeKind names a $STANDARD_INFORMATION-style attribute type code.
// Only $ATTRIBUTE_LIST and $DATA get bespoke handling (spec §4.3); every
// other kind passes through as an opaque, addressable byte range.
type AttributeKind uint32

const (
	AttrStandardInformation AttributeKind = 0x10
	AttrAttributeList       AttributeKind = 0x20
	AttrFileName            AttributeKind = 0x30
	AttrObjectID            AttributeKind = 0x40
	AttrSecurityDescriptor  AttributeKind = 0x50
	AttrVolumeName          AttributeKind = 0x60
	AttrVolumeInformation   AttributeKind = 0x70
	AttrData                AttributeKind = 0x80
	AttrIndexRoot           AttributeKind = 0x90
	AttrIndexAllocation     AttributeKind = 0xA0
	AttrBitmap              AttributeKind = 0xB0
	AttrReparsePoint        AttributeKind = 0xC0
	AttrEAInformation       AttributeKind = 0xD0
	AttrEA                  AttributeKind = 0xE0
	AttrLoggedUtilityStream AttributeKind = 0x100
	AttrEndOfAttributes     AttributeKind = 0xFFFFFFFF
)

func (k AttributeKind) String() string {
	switch k {
	case AttrStandardInformation:
		return "$STANDARD_INFORMATION"
	case AttrAttributeList:
		return "$ATTRIBUTE_LIST"
	case AttrFileName:
		return "$FILE_NAME"
	case AttrObjectID:
		return "$OBJECT_ID"
	case AttrSecurityDescriptor:
		return "$SECURITY_DESCRIPTOR"
	case AttrVolumeName:
		return "$VOLUME_NAME"
	case AttrVolumeInformation:
		return "$VOLUME_INFORMATION"
	case AttrData:
		return "$DATA"
	case AttrIndexRoot:
		return "$INDEX_ROOT"
	case AttrIndexAllocation:
		return "$INDEX_ALLOCATION"
	case AttrBitmap:
		return "$BITMAP"
	case AttrReparsePoint:
		return "$REPARSE_POINT"
	case AttrEAInformation:
		return "$EA_INFORMATION"
	case AttrEA:
		return "$EA"
	case AttrLoggedUtilityStream:
		return "$LOGGED_UTILITY_STREAM"
	case AttrEndOfAttributes:
		return "$END"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint32(k))
	}
}

// attributeHeaderCommonSize is the portion of the header shared by
// resident and non-resident attributes.
const attributeHeaderCommonSize = 16

// AttributeHeader is the fixed portion of an NTFS_ATTRIBUTE record; the
// resident/non-resident specific fields start at offset 16.
type AttributeHeader struct {
	b      []byte
	Offset int64
}

// NewAttributeHeader wraps buf[0:] as an attribute header view. buf must
// extend at least to Length() bytes for the header to be trustworthy;
// callers check that before touching the body.
func NewAttributeHeader(buf []byte, offset int64) *AttributeHeader {
	return &AttributeHeader{b: buf, Offset: offset}
}

func (a *AttributeHeader) Kind() AttributeKind { return AttributeKind(readUint32(a.b, 0)) }
func (a *AttributeHeader) Length() uint32      { return readUint32(a.b, 4) }
func (a *AttributeHeader) IsNonResident() bool { return len(a.b) > 8 && a.b[8] != 0 }
func (a *AttributeHeader) NameLength() uint8 {
	if len(a.b) <= 9 {
		return 0
	}
	return a.b[9]
}
func (a *AttributeHeader) NameOffset() uint16     { return readUint16(a.b, 10) }
func (a *AttributeHeader) Flags() uint16          { return readUint16(a.b, 12) }
func (a *AttributeHeader) AttributeID() uint16    { return readUint16(a.b, 14) }

// Resident-form fields (valid only when !IsNonResident()).
func (a *AttributeHeader) ContentSize() uint32   { return readUint32(a.b, 16) }
func (a *AttributeHeader) ContentOffset() uint16 { return readUint16(a.b, 20) }

// Non-resident-form fields (valid only when IsNonResident()).
func (a *AttributeHeader) RunlistVCNStart() uint64     { return readUint64(a.b, 16) }
func (a *AttributeHeader) RunlistVCNEnd() uint64        { return readUint64(a.b, 24) }
func (a *AttributeHeader) RunlistOffset() uint16        { return readUint16(a.b, 32) }
func (a *AttributeHeader) CompressionUnitSize() uint16  { return readUint16(a.b, 34) }
func (a *AttributeHeader) AllocatedSize() uint64        { return readUint64(a.b, 40) }
func (a *AttributeHeader) ActualSize() uint64           { return readUint64(a.b, 48) }
func (a *AttributeHeader) InitializedSize() uint64      { return readUint64(a.b, 56) }

func (a *AttributeHeader) IsCompressed() bool { return a.Flags()&0x0001 != 0 }
func (a *AttributeHeader) IsSparse() bool     { return a.Flags()&0x8000 != 0 }
func (a *AttributeHeader) IsEncrypted() bool  { return a.Flags()&0x4000 != 0 }

// Name returns the attribute's own name (distinct from its type), e.g.
// the stream name in "file.txt:stream_name:$DATA". Decoded as UTF-16LE.
func (a *AttributeHeader) Name() string {
	n := int(a.NameLength())
	if n == 0 {
		return ""
	}
	off := int(a.NameOffset())
	end := off + n*2
	if off < 0 || end > len(a.b) {
		return ""
	}
	return decodeUTF16LE(a.b[off:end])
}

func (a *AttributeHeader) DebugString() string {
	result := fmt.Sprintf("struct NTFS_ATTRIBUTE @ %#x:\n", a.Offset)
	result += fmt.Sprintf("  Type: %v\n", a.Kind())
	result += fmt.Sprintf("  Length: %#x\n", a.Length())
	result += fmt.Sprintf("  NonResident: %v\n", a.IsNonResident())
	result += fmt.Sprintf("  Name: %q\n", a.Name())
	result += fmt.Sprintf("  AttributeID: %#x\n", a.AttributeID())
	if !a.IsNonResident() {
		result += fmt.Sprintf("  ContentSize: %#x\n", a.ContentSize())
		result += fmt.Sprintf("  ContentOffset: %#x\n", a.ContentOffset())
	} else {
		result += fmt.Sprintf("  RunlistVCNStart: %#x\n", a.RunlistVCNStart())
		result += fmt.Sprintf("  RunlistVCNEnd: %#x\n", a.RunlistVCNEnd())
		result += fmt.Sprintf("  RunlistOffset: %#x\n", a.RunlistOffset())
		result += fmt.Sprintf("  CompressionUnitSize: %#x\n", a.CompressionUnitSize())
		result += fmt.Sprintf("  AllocatedSize: %#x\n", a.AllocatedSize())
		result += fmt.Sprintf("  ActualSize: %#x\n", a.ActualSize())
		result += fmt.Sprintf("  InitializedSize: %#x\n", a.InitializedSize())
	}
	return result
}

// decodeUTF16LE is a minimal UTF-16LE decoder good enough for NTFS names
// (attribute names, filenames): surrogate pairs are handled, unpaired
// surrogates pass through as the replacement rune.
func decodeUTF16LE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
	}
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) {
			u2 := units[i+1]
			if u2 >= 0xDC00 && u2 <= 0xDFFF {
				r := (rune(u-0xD800) << 10) | rune(u2-0xDC00)
				runes = append(runes, r+0x10000)
				i++
				continue
			}
		}
		runes = append(runes, rune(u))
	}
	return string(runes)
}
