package fs

import (
	"io"
	"sync"

	"github.com/Velocidex/ordereddict"
)

// maxMFTEntrySize caps the MFT entry size readAndFixup will allocate a
// buffer for, so a corrupt or lying entry size cannot force a huge
// allocation for a single record.
const maxMFTEntrySize = 1 << 16

// maxPlatformMFTSize bounds how large a caller-declared mft_size may be
// (spec §4.9: "fails ... if mft_size exceeds platform max"), and is also
// the fallback used when an IOHandle cannot report VolumeSize.
const maxPlatformMFTSize = int64(1) << 48

// Flags controls Bootstrap's strategy for locating the logical $MFT
// stream (spec §6 "Flags").
type Flags uint32

const (
	// MFTOnly tells Bootstrap to treat the bytes at ioHandle.MFTOffset(),
	// mftSize bytes long, as the literal $MFT (spec §4.6 "MFT-only
	// mode"): entry 0's own $DATA run list is never resolved, and no
	// entry beyond mftSize/entrySize is ever reachable.
	MFTOnly Flags = 1 << 0
)

// boundedReaderAt clips ReadAt to [0, limit), used by MFT-only mode so a
// read past the supplied blob's declared size fails predictably instead
// of reading whatever happens to follow it on the backing store.
type boundedReaderAt struct {
	r     io.ReaderAt
	base  int64
	limit int64
}

func (b *boundedReaderAt) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= b.limit {
		return 0, io.EOF
	}
	if offset+int64(len(buf)) > b.limit {
		buf = buf[:b.limit-offset]
	}
	return b.r.ReadAt(buf, b.base+offset)
}

// vcnRange is one $DATA stream's place in the logical $MFT file, used
// only when the $MFT itself spans more than one MFT record (spec §4.6:
// $MFT laid out as several VCN-addressed $DATA attributes).
type vcnRange struct {
	offset int64
	end    int64
	reader io.ReaderAt
}

// joinedVCNReader stitches together the $DATA streams of a split $MFT
// into one continuous logical reader.
type joinedVCNReader struct {
	runs []vcnRange
}

func (j *joinedVCNReader) ReadAt(buf []byte, offset int64) (int, error) {
	idx := 0
	for idx < len(buf) {
		found := false
		for _, run := range j.runs {
			if run.offset <= offset+int64(idx) && offset+int64(idx) < run.end {
				available := run.end - (offset + int64(idx))
				toRead := int64(len(buf) - idx)
				if toRead > available {
					toRead = available
				}
				n, err := run.reader.ReadAt(buf[idx:idx+int(toRead)], offset+int64(idx)-run.offset)
				idx += n
				if err != nil {
					return idx, err
				}
				found = true
				break
			}
		}
		if !found {
			if idx == 0 {
				return 0, io.EOF
			}
			return idx, nil
		}
	}
	return idx, nil
}

// MFTVector is the MFT Cache & Vector (spec §4.6): the bootstrapped
// logical $MFT stream plus the two-tier cache (parsed entries, filename
// summaries) that sits in front of it.
type MFTVector struct {
	// coordinator guards mftReader and numberOfEntries, independent of
	// any facade-level lock so a long block read never blocks a facade
	// caller that only needs cached metadata (spec §5).
	coordinator sync.RWMutex

	ioHandle   IOHandle
	diskReader io.ReaderAt
	mftReader  io.ReaderAt

	options Options

	entryLRU     *LRU
	summaryCache *MFTEntryCache

	numberOfEntries int64
}

// readAndFixup reads one MFT-record-sized buffer directly off diskReader
// at byteOffset and applies the fixup protocol in place.
func readAndFixup(diskReader io.ReaderAt, byteOffset int64, entrySize int64, sectorSize int64) ([]byte, error) {
	const op = "readAndFixup"

	size := entrySize
	if size <= 0 || size > maxMFTEntrySize {
		return nil, newErr(CorruptRecord, op, nil)
	}

	buf := make([]byte, size)
	n, err := diskReader.ReadAt(buf, byteOffset)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	if int64(n) < size {
		return nil, newErr(CorruptRecord, op, nil)
	}

	header := NewMFTEntryHeader(buf)
	if !header.IsValidMagic() {
		return nil, newErr(CorruptRecord, op, nil)
	}

	if err := ApplyFixup(buf, int(header.FixupOffset()), int(header.FixupCount()), sectorSize); err != nil {
		return nil, err
	}
	return buf, nil
}

// Bootstrap locates and reconstructs the logical $MFT stream (spec §4.6
// "bootstrap"):
//
//  1. Read MFT record 0 directly off the volume with a stub reader - no
//     cache, no run-list-backed $MFT reader exists yet.
//  2. Find its $DATA attribute(s). The common case is exactly one,
//     giving a complete run-list-backed reader immediately.
//  3. If record 0 also carries an $ATTRIBUTE_LIST, the $MFT is split
//     across multiple records; install the first $DATA stream as a
//     provisional MFTReader, re-parse record 0 through the now-working
//     cache to expand the attribute list, and join every $DATA stream
//     it names (ordered by starting VCN) into one continuous reader.
//
// mftSize bounds the operation (spec §4.9: "fails if ... mft_size
// exceeds platform max"; §8: "read_mft(mft_size=0) fails with
// OutOfBounds"). When flags carries MFTOnly, mftSize is authoritative:
// the blob at ioHandle.MFTOffset(), mftSize bytes long, is used as the
// literal $MFT and entry 0's own $DATA run list is never resolved
// (spec §4.6 "MFT-only mode"). Otherwise mftSize is only a sanity bound
// checked up front; the real extent comes from entry 0's $DATA once
// bootstrap resolves it.
func Bootstrap(ioHandle IOHandle, diskReader io.ReaderAt, mftSize int64, flags Flags, options Options) (*MFTVector, error) {
	const op = "Bootstrap"

	if ioHandle.MFTOffset() < 0 {
		return nil, newErr(InvalidArgument, op, nil)
	}
	if mftSize == 0 {
		return nil, newErr(OutOfBounds, op, nil)
	}
	if mftSize < 0 || mftSize > maxPlatformMFTSize {
		return nil, newErr(InvalidArgument, op, nil)
	}

	entryLRU, err := NewLRU(options.MFTCacheSize, nil, "MFTEntryCache")
	if err != nil {
		return nil, err
	}

	v := &MFTVector{
		ioHandle:   ioHandle,
		diskReader: diskReader,
		options:    options,
		entryLRU:   entryLRU,
	}
	v.summaryCache = NewMFTEntryCache(v, options.SummaryCacheSize)

	clusterSize := ioHandle.ClusterSize()
	entrySize := ioHandle.MFTEntrySize()
	sectorSize := ioHandle.BytesPerSector()

	stubBuf, err := readAndFixup(diskReader, ioHandle.MFTOffset(), entrySize, sectorSize)
	if err != nil {
		return nil, err
	}

	if flags&MFTOnly != 0 {
		v.mftReader = &boundedReaderAt{r: diskReader, base: ioHandle.MFTOffset(), limit: mftSize}
		v.numberOfEntries = mftSize / entrySize
		return v, nil
	}

	rootEntry, err := NewMFTEntry(stubBuf, diskReader)
	if err != nil {
		return nil, err
	}

	var firstDataReader RangeReaderAt
	hasAttributeList := false

	offset := int64(rootEntry.AttributeOffset())
	entryBufSize := int64(len(stubBuf))
	for offset > 0 && offset+attributeHeaderCommonSize <= entryBufSize {
		header := NewAttributeHeader(stubBuf[offset:], offset)
		length := int64(header.Length())
		if length <= 0 || offset+length > entryBufSize {
			break
		}
		switch header.Kind() {
		case AttrAttributeList:
			hasAttributeList = true
		case AttrData:
			if firstDataReader == nil {
				attr, err := DecodeAttribute(stubBuf, offset)
				if err != nil {
					return nil, err
				}
				firstDataReader, err = attr.Data(clusterSize, diskReader)
				if err != nil {
					return nil, err
				}
			}
		}
		offset += length
	}

	if firstDataReader == nil {
		return nil, newErr(NotFound, op, nil)
	}

	if !hasAttributeList {
		v.mftReader = firstDataReader
		v.numberOfEntries = sizeOf(firstDataReader) / entrySize
		return v, nil
	}

	// $MFT is split: install the provisional reader so the second pass
	// can actually read record 0's attribute list body, then re-fetch
	// record 0 through the cache to expand it.
	v.mftReader = firstDataReader

	rootEntry, err = v.GetMFTEntry(0)
	if err != nil {
		return nil, err
	}
	attrs, err := rootEntry.EnumerateAttributes(v)
	if err != nil {
		return nil, err
	}

	var runs []vcnRange
	var total int64
	for _, attr := range attrs {
		if attr.Kind() != AttrData {
			continue
		}
		dataReader, err := attr.Data(clusterSize, diskReader)
		if err != nil {
			continue
		}
		start := int64(attr.RunlistVCNStart()) * clusterSize
		length := sizeOf(dataReader)
		end := start + length
		runs = append(runs, vcnRange{offset: start, end: end, reader: dataReader})
		if end > total {
			total = end
		}
	}

	v.mftReader = &joinedVCNReader{runs: runs}
	v.numberOfEntries = total / entrySize

	// Forget anything cached from the provisional single-stream view -
	// record 0 in particular may read differently now.
	v.entryLRU.Purge()

	return v, nil
}

func sizeOf(r RangeReaderAt) int64 {
	var total int64
	for _, rng := range r.Ranges() {
		end := rng.Offset + rng.Length
		if end > total {
			total = end
		}
	}
	return total
}

// ClusterSize implements EntryResolver.
func (v *MFTVector) ClusterSize() int64 { return v.ioHandle.ClusterSize() }

// Options implements EntryResolver.
func (v *MFTVector) Options() Options { return v.options }

// NumberOfEntries returns the number of MFT record slots in the logical
// $MFT stream, including unallocated ones.
func (v *MFTVector) NumberOfEntries() int64 {
	v.coordinator.RLock()
	defer v.coordinator.RUnlock()
	return v.numberOfEntries
}

// GetMFTEntry returns the parsed MFT entry at id, consulting the bounded
// cache first (spec §4.6). Implements EntryResolver.
func (v *MFTVector) GetMFTEntry(id uint64) (*MFTEntry, error) {
	const op = "MFTVector.GetMFTEntry"

	if cached, ok := v.entryLRU.Get(int(id)); ok {
		if entry, ok := cached.(*MFTEntry); ok {
			return entry, nil
		}
	}

	entry, err := v.GetMFTEntryUncached(int64(id))
	if err != nil {
		return nil, err
	}
	v.entryLRU.Add(int(id), entry)
	return entry, nil
}

// GetMFTEntryUncached reads and parses an MFT entry without consulting
// or populating the cache, for callers doing a cache-bypassing sweep
// (e.g. validating the whole table) who do not want to evict hot entries.
func (v *MFTVector) GetMFTEntryUncached(id int64) (*MFTEntry, error) {
	const op = "MFTVector.GetMFTEntryUncached"

	if id < 0 {
		return nil, newErr(EntryOutOfRange, op, nil)
	}

	v.coordinator.RLock()
	reader := v.mftReader
	entrySize := v.ioHandle.MFTEntrySize()
	numberOfEntries := v.numberOfEntries
	v.coordinator.RUnlock()

	if numberOfEntries > 0 && id >= numberOfEntries {
		return nil, newErr(EntryOutOfRange, op, nil)
	}

	buf := make([]byte, entrySize)
	n, err := reader.ReadAt(buf, id*entrySize)
	if err != nil && err != io.EOF {
		return nil, newErr(IoError, op, err)
	}
	if int64(n) < entrySize {
		return nil, newErr(CorruptRecord, op, nil)
	}

	header := NewMFTEntryHeader(buf)
	if !header.IsValidMagic() {
		return nil, newErr(CorruptRecord, op, nil)
	}

	if err := ApplyFixup(buf, int(header.FixupOffset()), int(header.FixupCount()), v.ioHandle.BytesPerSector()); err != nil {
		return nil, err
	}

	return NewMFTEntry(buf, v.diskReader)
}

// GetMFTSummary returns the lightweight filename summary for id,
// preferring sequence seq when the cache holds a preloaded alternative.
func (v *MFTVector) GetMFTSummary(id uint64, seq uint16) (*MFTEntrySummary, error) {
	return v.summaryCache.GetSummary(id, seq)
}

// Stats renders the vector's cache diagnostics.
func (v *MFTVector) Stats() *ordereddict.Dict {
	return ordereddict.NewDict().
		Set("Entries", v.entryLRU.Stats()).
		Set("Summaries", v.summaryCache.Stats()).
		Set("NumberOfEntries", v.NumberOfEntries())
}
