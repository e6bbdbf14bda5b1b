package fs

import (
	"bytes"
	"io"
)

// Attribute is a decoded NTFS_ATTRIBUTE: its header plus enough of the
// surrounding MFT entry buffer to resolve its body, whether resident or
// run-list addressed (spec §4.3 "Attribute Decoder").
type Attribute struct {
	*AttributeHeader

	// raw holds the attribute's own bytes, Length() long, sliced out of
	// the owning MFT entry's buffer at Offset.
	raw []byte
}

// residentReader adapts a fixed byte slice to RangeReaderAt so resident
// and non-resident attributes present the same interface to callers.
type residentReader struct {
	*bytes.Reader
	size int64
}

func (r residentReader) Ranges() []Range {
	return []Range{{Offset: 0, Length: r.size}}
}

// DecodeAttribute parses the attribute header at buf[offset:] and slices
// out its full body. buf is the owning MFT entry's fixed-up buffer.
func DecodeAttribute(buf []byte, offset int64) (*Attribute, error) {
	const op = "DecodeAttribute"

	if offset < 0 || offset+attributeHeaderCommonSize > int64(len(buf)) {
		return nil, newErrAt(CorruptRecord, op, offset, nil)
	}

	header := NewAttributeHeader(buf[offset:], offset)
	length := int64(header.Length())
	if length <= 0 || offset+length > int64(len(buf)) {
		return nil, newErrAt(CorruptRecord, op, offset, nil)
	}

	raw := buf[offset : offset+length]
	stats.incAttributesParsed()

	return &Attribute{
		AttributeHeader: NewAttributeHeader(raw, offset),
		raw:             raw,
	}, nil
}

// RunList decodes the attribute's data-run list (spec §4.2). Valid only
// for non-resident attributes.
func (a *Attribute) RunList(clusterSize int64) ([]Run, error) {
	const op = "Attribute.RunList"

	if !a.IsNonResident() {
		return nil, newErr(InvalidArgument, op, nil)
	}

	runlistOffset := int64(a.RunlistOffset())
	if runlistOffset < 0 || runlistOffset > int64(len(a.raw)) {
		return nil, newErr(CorruptRuns, op, nil)
	}

	return DecodeRuns(a.raw[runlistOffset:], clusterSize, int64(a.AllocatedSize()))
}

// Data returns the attribute's logical byte stream: the resident content
// for a resident attribute, or a RangeReader over its (possibly
// compressed, possibly sparse) run list otherwise.
func (a *Attribute) Data(clusterSize int64, diskReader io.ReaderAt) (RangeReaderAt, error) {
	const op = "Attribute.Data"

	if !a.IsNonResident() {
		size := int64(a.ContentSize())
		contentOffset := int64(a.ContentOffset())
		if contentOffset < 0 || contentOffset+size > int64(len(a.raw)) {
			return nil, newErr(TruncatedAttribute, op, nil)
		}
		return residentReader{Reader: bytes.NewReader(a.raw[contentOffset : contentOffset+size]), size: size}, nil
	}

	runs, err := a.RunList(clusterSize)
	if err != nil {
		return nil, err
	}

	actualSize := int64(a.ActualSize())
	initializedSize := int64(a.InitializedSize())

	if a.IsCompressed() {
		compressionUnitSize := int64(1) << uint(a.CompressionUnitSize())
		return NewCompressedRangeReader(runs, clusterSize, diskReader, compressionUnitSize, actualSize, initializedSize), nil
	}

	return NewRangeReader(runs, clusterSize, diskReader, actualSize, initializedSize), nil
}

// DataSize is the logical size of the attribute's content: ContentSize
// for resident attributes, ActualSize otherwise.
func (a *Attribute) DataSize() int64 {
	if !a.IsNonResident() {
		return int64(a.ContentSize())
	}
	return int64(a.ActualSize())
}
