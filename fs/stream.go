package fs

import "io"

// Range describes one addressable extent of a non-resident attribute's
// logical byte stream, in file-offset space (spec §4.4 "Cluster-Block
// Stream"). It is the address-only counterpart of MappedReader: useful to
// callers that want to know where the holes are without pulling in an
// io.ReaderAt.
type Range struct {
	Offset   int64
	Length   int64
	IsSparse bool
}

// RangeReaderAt is an io.ReaderAt that can also describe its own extents.
// Bootstrap uses this (via sizeOf in mft.go) to size the $MFT stream
// without re-deriving it from the run list.
type RangeReaderAt interface {
	io.ReaderAt
	Ranges() []Range
}

// MappedReader is one normalized, absolute extent of a RangeReader: a
// contiguous file-offset range backed either by a run of disk clusters, a
// hole (IsSparse), or - when CompressedLength is non-zero - a single LZNT1
// compression unit that must be inflated before any of it can be read.
type MappedReader struct {
	FileOffset       int64
	TargetOffset     int64
	Length           int64
	CompressedLength int64
	IsSparse         bool
	Reader           io.ReaderAt
}

func (m *MappedReader) decompress(clusterSize int64) ([]byte, error) {
	compressed := make([]byte, m.CompressedLength*clusterSize)
	n, err := m.Reader.ReadAt(compressed, m.TargetOffset*clusterSize)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, "MappedReader.decompress", err)
	}
	compressed = compressed[:n]

	decompressed, err := LZNT1Decompress(compressed)
	if err != nil {
		return nil, err
	}
	return decompressed, nil
}

// BuildRanges converts a decoded run list (runs.go) into absolute,
// cluster-addressed MappedReaders backed by diskReader. This is the
// uncompressed case; compressed attributes additionally run the result
// through NormalizeForCompression.
func BuildRanges(runs []Run, diskReader io.ReaderAt) []*MappedReader {
	result := make([]*MappedReader, 0, len(runs))
	fileOffset := int64(0)

	for _, run := range runs {
		m := &MappedReader{
			FileOffset: fileOffset,
			Length:     run.Length,
			Reader:     diskReader,
			IsSparse:   run.IsSparse,
		}
		if !run.IsSparse {
			m.TargetOffset = run.LCN
		}
		result = append(result, m)
		fileOffset += run.Length
	}
	return result
}

// NormalizeForCompression folds a run shorter than compressionUnitSize
// clusters that is followed by a sparse run into a single compressed
// MappedReader one unit long, matching how NTFS lays out a compressed
// compression unit on disk: a shorter-than-full run of real clusters
// followed by a sparse run filling out the remainder of the unit. Whole
// units of real clusters are kept as uncompressed extents. There is no
// default unit size; the caller passes it.
func NormalizeForCompression(ranges []*MappedReader, compressionUnitSize int64) []*MappedReader {
	normalized := make([]*MappedReader, 0, len(ranges))

	for i := 0; i < len(ranges); i++ {
		run := *ranges[i]
		if run.Length == 0 {
			continue
		}

		if run.Length >= compressionUnitSize {
			whole := run
			whole.Length = run.Length - run.Length%compressionUnitSize
			normalized = append(normalized, &whole)

			run = MappedReader{
				FileOffset:   whole.FileOffset + whole.Length,
				TargetOffset: whole.TargetOffset + whole.Length,
				Length:       run.Length - whole.Length,
				Reader:       run.Reader,
			}
		}

		if run.Length == 0 {
			continue
		}

		if i+1 < len(ranges) &&
			ranges[i+1].Length+run.Length >= compressionUnitSize &&
			ranges[i+1].IsSparse {

			normalized = append(normalized, &MappedReader{
				FileOffset:       run.FileOffset,
				TargetOffset:     run.TargetOffset,
				Length:           compressionUnitSize,
				CompressedLength: run.Length,
				Reader:           run.Reader,
			})
			ranges[i+1].Length -= compressionUnitSize - run.Length
			ranges[i+1].FileOffset += compressionUnitSize - run.Length
			continue
		}

		normalized = append(normalized, &run)
	}

	return normalized
}

// RangeReader presents a sequence of MappedReaders as one linear
// io.ReaderAt over the attribute's logical byte stream (spec §4.4). Size,
// when non-zero, clips reads and Ranges() to the attribute's actual
// (valid) size rather than the whole-cluster extent the run list
// addresses. InitializedSize, when less than Size, marks the tail
// [InitializedSize, Size) as unwritten: reads in that range return zero
// without touching diskReader, matching libfsntfs's VCN-range read
// padding for an attribute whose initialized size trails its valid size
// (spec §3, §4.4 point 4).
type RangeReader struct {
	ranges          []*MappedReader
	clusterSize     int64
	Size            int64
	InitializedSize int64
}

// NewRangeReader builds a RangeReader over an uncompressed run list.
// initializedSize is the attribute's InitializedSize; pass the same value
// as size when the whole attribute is initialized.
func NewRangeReader(runs []Run, clusterSize int64, diskReader io.ReaderAt, size int64, initializedSize int64) *RangeReader {
	return &RangeReader{
		ranges:          BuildRanges(runs, diskReader),
		clusterSize:     clusterSize,
		Size:            size,
		InitializedSize: initializedSize,
	}
}

// NewCompressedRangeReader builds a RangeReader over a compressed run
// list, normalizing it into whole-unit compressed/uncompressed extents
// first.
func NewCompressedRangeReader(runs []Run, clusterSize int64, diskReader io.ReaderAt, compressionUnitSize int64, size int64, initializedSize int64) *RangeReader {
	ranges := BuildRanges(runs, diskReader)
	return &RangeReader{
		ranges:          NormalizeForCompression(ranges, compressionUnitSize),
		clusterSize:     clusterSize,
		Size:            size,
		InitializedSize: initializedSize,
	}
}

// Ranges implements RangeReaderAt.
func (r *RangeReader) Ranges() []Range {
	result := make([]Range, 0, len(r.ranges))
	for _, m := range r.ranges {
		offset := m.FileOffset * r.clusterSize
		length := m.Length * r.clusterSize
		if r.Size > 0 {
			if offset >= r.Size {
				break
			}
			if offset+length > r.Size {
				length = r.Size - offset
			}
		}
		result = append(result, Range{Offset: offset, Length: length, IsSparse: m.IsSparse})
	}
	return result
}

func (r *RangeReader) readFromRange(idx int, buf []byte, runOffset int, fileOffset int64) (int, error) {
	m := r.ranges[idx]
	targetOffset := m.TargetOffset * r.clusterSize

	toRead := int(m.Length*r.clusterSize) - runOffset
	if len(buf) < toRead {
		toRead = len(buf)
	}
	if toRead < 0 {
		toRead = 0
	}

	// Bytes at or beyond InitializedSize but still within Size are
	// unwritten padding (spec §3, §4.4 point 4): return zero without
	// reading the underlying disk cluster, whether or not the run
	// itself is sparse.
	if r.InitializedSize < r.Size && fileOffset >= r.InitializedSize {
		for i := 0; i < toRead; i++ {
			buf[i] = 0
		}
		return toRead, nil
	}
	if r.InitializedSize < r.Size && fileOffset+int64(toRead) > r.InitializedSize {
		toRead = int(r.InitializedSize - fileOffset)
	}

	if m.CompressedLength > 0 {
		decompressed, err := m.decompress(r.clusterSize)
		if err != nil {
			return 0, err
		}

		i := 0
		for runOffset < len(decompressed) && i < toRead {
			buf[i] = decompressed[runOffset]
			runOffset++
			i++
		}
		return i, nil
	}

	if m.IsSparse {
		for i := 0; i < toRead; i++ {
			buf[i] = 0
		}
		return toRead, nil
	}

	n, err := m.Reader.ReadAt(buf[:toRead], targetOffset+int64(runOffset))
	if err != nil && err != io.EOF {
		return n, newErr(IoError, "RangeReader.ReadAt", err)
	}
	return n, nil
}

// ReadAt implements io.ReaderAt over the logical, decompressed byte
// stream addressed by fileOffset.
func (r *RangeReader) ReadAt(buf []byte, fileOffset int64) (int, error) {
	if r.Size > 0 {
		if fileOffset >= r.Size {
			return 0, io.EOF
		}
		if fileOffset+int64(len(buf)) > r.Size {
			buf = buf[:r.Size-fileOffset]
		}
	}

	bufIdx := 0

	for j := 0; j < len(r.ranges) && bufIdx < len(buf); {
		runFileOffset := r.ranges[j].FileOffset * r.clusterSize
		runLength := r.ranges[j].Length * r.clusterSize
		runEnd := runFileOffset + runLength

		if runFileOffset <= fileOffset && fileOffset < runEnd {
			runOffset := int(fileOffset - runFileOffset)

			n, err := r.readFromRange(j, buf[bufIdx:], runOffset, fileOffset)
			if err != nil {
				return bufIdx, err
			}
			if n == 0 {
				return bufIdx, io.EOF
			}

			bufIdx += n
			fileOffset += int64(n)

			// readFromRange may stop short of runEnd - at InitializedSize,
			// not just at buf capacity - so only move on once this range
			// is actually exhausted.
			if fileOffset < runEnd {
				continue
			}
		}

		j++
	}

	if bufIdx == 0 {
		return bufIdx, io.EOF
	}
	return bufIdx, nil
}
