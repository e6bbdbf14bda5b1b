package fs

import (
	"io"
	"time"
)

// winFileTimeToUnix converts a Windows FILETIME (100ns intervals since
// 1601-01-01) to a UTC time.Time.
func winFileTimeToUnix(ft uint64) time.Time {
	const epochDelta = 11644473600000 * 10000
	ticks := int64(ft) - epochDelta
	return time.Unix(ticks/10000000, (ticks%10000000)*100).UTC()
}

// NameType classifies a $FILE_NAME record's naming convention.
type NameType uint8

const (
	NamePOSIX   NameType = 0
	NameWin32   NameType = 1
	NameDOS     NameType = 2
	NameDOSWin32 NameType = 3
)

func (t NameType) String() string {
	switch t {
	case NamePOSIX:
		return "POSIX"
	case NameWin32:
		return "Win32"
	case NameDOS:
		return "DOS"
	case NameDOSWin32:
		return "DOS+Win32"
	default:
		return "Unknown"
	}
}

// StandardInformation is the decoded $STANDARD_INFORMATION attribute
// body: core timestamps and flags every MFT entry with content carries.
type StandardInformation struct {
	CreateTime       time.Time
	FileAlteredTime  time.Time
	MftAlteredTime   time.Time
	FileAccessedTime time.Time
	Flags            uint32
	OwnerID          uint32
	SecurityID       uint32
}

// DecodeStandardInformation reads a $STANDARD_INFORMATION body out of
// attr's data stream. Always resident per the NTFS format.
func DecodeStandardInformation(attr *Attribute, clusterSize int64, diskReader io.ReaderAt) (*StandardInformation, error) {
	const op = "DecodeStandardInformation"

	data, err := attr.Data(clusterSize, diskReader)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 72)
	n, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	if n < 48 {
		return nil, newErr(TruncatedAttribute, op, nil)
	}
	buf = buf[:n]

	si := &StandardInformation{
		CreateTime:       winFileTimeToUnix(readUint64(buf, 0)),
		FileAlteredTime:  winFileTimeToUnix(readUint64(buf, 8)),
		MftAlteredTime:   winFileTimeToUnix(readUint64(buf, 16)),
		FileAccessedTime: winFileTimeToUnix(readUint64(buf, 24)),
		Flags:            readUint32(buf, 32),
	}
	if len(buf) >= 48 {
		si.OwnerID = readUint32(buf, 44)
	}
	if len(buf) >= 72 {
		si.SecurityID = readUint32(buf, 48)
	}
	return si, nil
}

// FileNameAttribute is the decoded $FILE_NAME attribute body: the name
// itself, which parent directory it lives in, and its own copy of the
// core timestamps (spec's "dual timestamps": $STANDARD_INFORMATION vs
// $FILE_NAME commonly diverge and that divergence is itself a forensic
// signal).
type FileNameAttribute struct {
	ParentMFTReference  uint64
	ParentSequenceValue uint16
	Created             time.Time
	FileModified        time.Time
	MftModified         time.Time
	FileAccessed        time.Time
	AllocatedSize       uint64
	ActualSize          uint64
	Flags                uint32
	NameType            NameType
	Name                string
}

// DecodeFileNameAttribute reads a $FILE_NAME body out of attr's data
// stream. Always resident per the NTFS format.
func DecodeFileNameAttribute(attr *Attribute, clusterSize int64, diskReader io.ReaderAt) (*FileNameAttribute, error) {
	const op = "DecodeFileNameAttribute"

	data, err := attr.Data(clusterSize, diskReader)
	if err != nil {
		return nil, err
	}

	size := attr.DataSize()
	buf := make([]byte, size)
	n, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	buf = buf[:n]

	return decodeFileNameBytes(buf)
}

// decodeFileNameBytes decodes a $FILE_NAME attribute body wherever it
// appears verbatim: as an attribute's resident content, or as the key
// of a directory index entry (spec §4.9 directory listing).
func decodeFileNameBytes(buf []byte) (*FileNameAttribute, error) {
	const op = "decodeFileNameBytes"

	if len(buf) < 66 {
		return nil, newErr(TruncatedAttribute, op, nil)
	}

	parentRef := readUint64(buf, 0)
	nameLength := buf[64]
	nameType := buf[65]

	nameStart := 66
	nameEnd := nameStart + int(nameLength)*2
	if nameEnd > len(buf) {
		return nil, newErr(TruncatedAttribute, op, nil)
	}

	return &FileNameAttribute{
		ParentMFTReference:  parentRef & 0x0000FFFFFFFFFFFF,
		ParentSequenceValue: uint16(parentRef >> 48),
		Created:             winFileTimeToUnix(readUint64(buf, 8)),
		FileModified:        winFileTimeToUnix(readUint64(buf, 16)),
		MftModified:         winFileTimeToUnix(readUint64(buf, 24)),
		FileAccessed:        winFileTimeToUnix(readUint64(buf, 32)),
		AllocatedSize:       readUint64(buf, 40),
		ActualSize:          readUint64(buf, 48),
		Flags:               readUint32(buf, 56),
		NameType:            NameType(nameType),
		Name:                decodeUTF16LE(buf[nameStart:nameEnd]),
	}, nil
}
