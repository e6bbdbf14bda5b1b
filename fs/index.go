package fs

import "io"

// DirectoryEntry is one resolved entry of a directory's $FILE_NAME index
// (spec §4.9 directory listing): the child's MFT reference plus its
// $FILE_NAME key as stored in the index (not re-read from the child
// entry, matching how NTFS itself keeps the index authoritative for
// listing purposes).
type DirectoryEntry struct {
	MFTReference  uint64
	SequenceValue uint16
	FileName      *FileNameAttribute
}

const directoryIndexHeaderSize = 16

// walkDirectoryNode iterates one $FILE_NAME index node's entries.
// nodeHeaderSize locates the 16-byte INDEX_HEADER that precedes the
// entries themselves - 16 within $INDEX_ROOT's body, or
// indexRecordHeaderSize (24, past the STANDARD_INDEX_HEADER) within an
// $INDEX_ALLOCATION record.
func walkDirectoryNode(buf []byte, nodeHeaderSize int) []*DirectoryEntry {
	if nodeHeaderSize+directoryIndexHeaderSize > len(buf) {
		return nil
	}

	firstEntryOffset := int64(readUint32(buf, int64(nodeHeaderSize)))
	totalSize := int64(readUint32(buf, int64(nodeHeaderSize)+4))

	nodeStart := int64(nodeHeaderSize)
	offset := nodeStart + firstEntryOffset
	end := nodeStart + totalSize
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}

	var result []*DirectoryEntry
	for offset+16 <= end {
		fileRef := readUint64(buf, offset)
		length := int64(readUint16(buf, offset+8))
		keyLength := int64(readUint16(buf, offset+10))
		flags := readUint16(buf, offset+12)

		if length < 16 || offset+length > int64(len(buf)) {
			break
		}

		if flags&indexEntryFlagLastEntry == 0 && keyLength > 0 {
			keyStart := offset + 16
			keyEnd := keyStart + keyLength
			if keyEnd <= int64(len(buf)) {
				if fn, err := decodeFileNameBytes(buf[keyStart:keyEnd]); err == nil {
					result = append(result, &DirectoryEntry{
						MFTReference:  fileRef & 0x0000FFFFFFFFFFFF,
						SequenceValue: uint16(fileRef >> 48),
						FileName:      fn,
					})
				}
			}
		}

		if flags&indexEntryFlagLastEntry != 0 {
			break
		}
		offset += length
	}

	return result
}

const indexRecordHeaderSize = 24

// ListDirectory resolves every child $FILE_NAME index entry of a
// directory MFT entry: the resident $INDEX_ROOT node, plus every node of
// its $INDEX_ALLOCATION, if present. $INDEX_ALLOCATION is read as
// 0x1000-byte records; each record carrying the "INDX" magic is fixed up
// here (ApplyFixup with 512-byte sectors, same protocol as MFT entries)
// before it is walked.
func ListDirectory(entry *MFTEntry, resolver EntryResolver) ([]*DirectoryEntry, error) {
	attrs, err := entry.EnumerateAttributes(resolver)
	if err != nil {
		return nil, err
	}

	var result []*DirectoryEntry

	for _, attr := range attrs {
		if attr.Kind() != AttrIndexRoot {
			continue
		}
		reader, err := attr.Data(resolver.ClusterSize(), entry.diskReader)
		if err != nil {
			continue
		}
		size := attr.DataSize()
		buf := make([]byte, size)
		n, rerr := reader.ReadAt(buf, 0)
		if rerr != nil && rerr != io.EOF {
			continue
		}
		buf = buf[:n]
		// INDEX_ROOT: AttributeType(4) CollationRule(4) EntrySize(4)
		// ClustersPerRecord(4), then the 16-byte node header.
		result = append(result, walkDirectoryNode(buf, 16)...)
	}

	for _, attr := range attrs {
		if attr.Kind() != AttrIndexAllocation {
			continue
		}
		data, err := attr.Data(resolver.ClusterSize(), entry.diskReader)
		if err != nil {
			continue
		}
		recordSize := int64(0x1000)
		total := attr.DataSize()
		for off := int64(0); off+recordSize <= total; off += recordSize {
			record := make([]byte, recordSize)
			n, rerr := data.ReadAt(record, off)
			if rerr != nil && rerr != io.EOF {
				continue
			}
			record = record[:n]
			if len(record) < 4 || record[0] != 'I' || record[1] != 'N' ||
				record[2] != 'D' || record[3] != 'X' {
				continue
			}
			header := NewMFTEntryHeader(record)
			_ = ApplyFixup(record, int(header.FixupOffset()), int(header.FixupCount()), 512)
			result = append(result, walkDirectoryNode(record, indexRecordHeaderSize)...)
		}
	}

	return result, nil
}
