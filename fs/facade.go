package fs

import (
	"io"
	"path"
	"strings"
	"sync"

	"github.com/Velocidex/ordereddict"
)

// Well-known MFT entry indices (spec §4.9, fixed by the NTFS format for
// every volume).
const (
	MFTEntryIndexMFT       = 0
	MFTEntryIndexMFTMirror = 1
	MFTEntryIndexLogFile   = 2
	MFTEntryIndexVolume    = 3
	MFTEntryIndexAttrDef   = 4
	MFTEntryIndexRoot      = 5
	MFTEntryIndexBitmap    = 6
	MFTEntryIndexBoot      = 7
	MFTEntryIndexBadClus   = 8
	MFTEntryIndexSecure    = 9
	MFTEntryIndexUpCase    = 10
	MFTEntryIndexExtend    = 11
)

// Facade is the File-System Facade (spec §4.9): the single entry point
// that wires the MFT Cache & Vector, the Bitmap Reader and the Security
// Descriptor Index together, and is the only type that takes the
// multi-reader/single-writer coordination lock (spec §5) - none of its
// collaborators lock at that granularity, so a long block read through
// the MFT vector never blocks another reader's unrelated lookup.
type Facade struct {
	coordinator sync.RWMutex

	ioHandle   IOHandle
	diskReader io.ReaderAt
	options    Options

	vector *MFTVector

	allocation []AllocationRange
	security   *SecurityDescriptorIndex

	closed bool
}

// Open bootstraps a Facade over diskReader using the volume geometry in
// ioHandle, via the full run-list-resolving MFT bootstrap (spec §4.6
// steps 1-5). This does not itself parse a boot sector (spec §1 scopes
// that out); ioHandle already encodes what a boot-sector parser would
// have produced.
func Open(ioHandle IOHandle, diskReader io.ReaderAt, options Options) (*Facade, error) {
	return open(ioHandle, diskReader, defaultMFTSizeFor(ioHandle), 0, options)
}

// OpenMFTOnly bootstraps a Facade directly over a literal $MFT blob of
// mftSize bytes starting at ioHandle.MFTOffset() - "MFT-only mode"
// (spec §4.6, §6 MFT_ONLY flag). Entry 0's own $DATA run list is never
// resolved, and no entry beyond mftSize/ioHandle.MFTEntrySize() is ever
// reachable; attempts to read one fail with EntryOutOfRange.
func OpenMFTOnly(ioHandle IOHandle, diskReader io.ReaderAt, mftSize int64, options Options) (*Facade, error) {
	return open(ioHandle, diskReader, mftSize, MFTOnly, options)
}

// defaultMFTSizeFor sizes the sanity bound Open passes to Bootstrap from
// the I/O handle's declared volume size, falling back to a generous
// platform-max bound when VolumeSize is unknown (zero or negative) -
// most boot-sector parsers this package's callers wrap do supply it, but
// the I/O Handle contract (spec §6) does not require it.
func defaultMFTSizeFor(h IOHandle) int64 {
	if v := h.VolumeSize(); v > h.MFTOffset() {
		return v - h.MFTOffset()
	}
	return maxPlatformMFTSize
}

func open(ioHandle IOHandle, diskReader io.ReaderAt, mftSize int64, flags Flags, options Options) (*Facade, error) {
	vector, err := Bootstrap(ioHandle, diskReader, mftSize, flags, options)
	if err != nil {
		return nil, err
	}

	f := &Facade{
		ioHandle:   ioHandle,
		diskReader: diskReader,
		options:    options,
		vector:     vector,
	}

	// Both the bitmap and the security descriptor index are optional:
	// a raw $MFT-only analysis (spec §9, MFT-only mode) may not have a
	// live $Bitmap or $Secure entry resolvable at all, and an error
	// reading either must not prevent opening the rest of the volume.
	if ranges, err := f.readBitmap(); err == nil {
		f.allocation = ranges
	}
	if index, err := f.readSecurityDescriptors(); err == nil {
		f.security = index
	}

	return f, nil
}

func (f *Facade) readBitmap() ([]AllocationRange, error) {
	entry, err := f.vector.GetMFTEntry(MFTEntryIndexBitmap)
	if err != nil {
		return nil, err
	}
	attr, err := entry.GetAttribute(f.vector, AttrData, 0, "")
	if err != nil {
		return nil, err
	}
	data, err := attr.Data(f.vector.ClusterSize(), f.diskReader)
	if err != nil {
		return nil, err
	}
	return ReadBitmap(data, attr.DataSize())
}

func (f *Facade) readSecurityDescriptors() (*SecurityDescriptorIndex, error) {
	const op = "Facade.readSecurityDescriptors"

	entry, err := f.vector.GetMFTEntry(MFTEntryIndexSecure)
	if err != nil {
		return nil, err
	}

	names, err := entry.FileNames(f.vector)
	if err != nil {
		return nil, err
	}
	found := false
	for _, fn := range names {
		if fn.Name == "$Secure" {
			found = true
			break
		}
	}
	if !found {
		return nil, newErr(NotFound, op, nil)
	}

	sdsAttr, err := entry.GetAttribute(f.vector, AttrData, 0, "$SDS")
	if err != nil {
		return nil, err
	}
	sds, err := sdsAttr.Data(f.vector.ClusterSize(), f.diskReader)
	if err != nil {
		return nil, err
	}

	rootAttr, err := entry.GetAttribute(f.vector, AttrIndexRoot, 0, "$SII")
	if err != nil {
		return nil, err
	}
	root, err := rootAttr.Data(f.vector.ClusterSize(), f.diskReader)
	if err != nil {
		return nil, err
	}

	var allocationNodes [][]byte
	if allocAttr, err := entry.GetAttribute(f.vector, AttrIndexAllocation, 0, "$SII"); err == nil {
		allocData, err := allocAttr.Data(f.vector.ClusterSize(), f.diskReader)
		if err == nil {
			recordSize := int64(0x1000)
			total := allocAttr.DataSize()
			for off := int64(0); off+recordSize <= total; off += recordSize {
				record := make([]byte, recordSize)
				n, rerr := allocData.ReadAt(record, off)
				if rerr != nil && rerr != io.EOF {
					continue
				}
				record = record[:n]
				header := NewMFTEntryHeader(record)
				if err := ApplyFixup(record, int(header.FixupOffset()), int(header.FixupCount()), 512); err == nil {
					allocationNodes = append(allocationNodes, record)
				}
			}
		}
	}

	entries, err := ReadSIIIndex(root, rootAttr.DataSize(), allocationNodes)
	if err != nil {
		return nil, err
	}

	return NewSecurityDescriptorIndex(entries, sds), nil
}

// Resolver returns the EntryResolver backing this facade's MFT, for
// callers (the CLI, directory listing) that need to walk attributes or
// directories directly rather than going through a facade method.
func (f *Facade) Resolver() EntryResolver {
	return f.vector
}

// NumberOfMFTEntries returns the number of MFT record slots on the
// volume, including unallocated ones.
func (f *Facade) NumberOfMFTEntries() int64 {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return f.vector.NumberOfEntries()
}

// GetMFTEntryByIndex returns the parsed MFT entry at id, going through
// the bounded cache.
func (f *Facade) GetMFTEntryByIndex(id uint64) (*MFTEntry, error) {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return f.vector.GetMFTEntry(id)
}

// GetMFTEntryByIndexNoCache returns the parsed MFT entry at id, bypassing
// (and not populating) the primary cache - for callers sweeping the
// whole table who would otherwise evict every hot entry.
func (f *Facade) GetMFTEntryByIndexNoCache(id uint64) (*MFTEntry, error) {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return f.vector.GetMFTEntryUncached(int64(id))
}

// GetSecurityDescriptorValuesByIdentifier returns the raw descriptor
// payload for a security identifier (spec §4.8), or NotFound if the
// volume has no $Secure index, or no entry for that identifier.
func (f *Facade) GetSecurityDescriptorValuesByIdentifier(securityID uint32) (*SecurityDescriptorHeader, []byte, error) {
	const op = "Facade.GetSecurityDescriptorValuesByIdentifier"

	f.coordinator.RLock()
	defer f.coordinator.RUnlock()

	if f.security == nil {
		return nil, nil, newErr(NotFound, op, nil)
	}
	return f.security.GetByIdentifier(securityID)
}

// AllocatedRanges returns the volume's allocated-cluster ranges as
// recorded by $Bitmap (spec §4.7), or nil if the bitmap could not be
// read when the facade was opened.
func (f *Facade) AllocatedRanges() []AllocationRange {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return f.allocation
}

// IsClusterAllocated reports whether cluster is marked allocated in
// $Bitmap.
func (f *Facade) IsClusterAllocated(cluster int64) bool {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return IsAllocated(f.allocation, cluster)
}

// GetHardLinks returns every known path to mftID, each as an ordered
// slice of path components (spec §4.9).
func (f *Facade) GetHardLinks(mftID uint64, max int) [][]string {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()
	return GetHardLinks(f.vector, mftID, f.options.MaxDirectoryDepth, max)
}

// GetFullPath returns the first hard link path to mftID, joined with
// "/", or "" if none could be resolved.
func (f *Facade) GetFullPath(mftID uint64) string {
	links := f.GetHardLinks(mftID, 1)
	if len(links) == 0 {
		return ""
	}
	return "/" + path.Join(links[0]...)
}

// Open walks filename (a '\'- or '/'-separated path) from the volume
// root, returning the MFT entry it resolves to. Matching is case
// insensitive, matching NTFS's default collation.
func (f *Facade) Open(filename string) (*MFTEntry, error) {
	const op = "Facade.Open"

	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = strings.Split(filename, ":")[0]
	components := strings.Split(path.Clean(filename), "/")

	f.coordinator.RLock()
	defer f.coordinator.RUnlock()

	directory, err := f.vector.GetMFTEntry(MFTEntryIndexRoot)
	if err != nil {
		return nil, err
	}

	for _, component := range components {
		if component == "" {
			continue
		}
		next, err := findInDirectory(f.vector, directory, component)
		if err != nil {
			return nil, newErr(NotFound, op, err)
		}
		directory = next
	}

	return directory, nil
}

func findInDirectory(resolver EntryResolver, dir *MFTEntry, component string) (*MFTEntry, error) {
	const op = "findInDirectory"

	component = strings.ToLower(component)

	entries, err := ListDirectory(dir, resolver)
	if err != nil {
		return nil, err
	}

	vector, ok := resolver.(*MFTVector)
	if !ok {
		return nil, newErr(InvalidArgument, op, nil)
	}

	for _, entry := range entries {
		if entry.FileName == nil {
			continue
		}
		if strings.ToLower(entry.FileName.Name) == component {
			return vector.GetMFTEntry(entry.MFTReference)
		}
	}

	return nil, newErr(NotFound, op, nil)
}

// Stats renders combined diagnostics for the facade and its collaborators.
func (f *Facade) Stats() *ordereddict.Dict {
	f.coordinator.RLock()
	defer f.coordinator.RUnlock()

	return ordereddict.NewDict().
		Set("Global", Stats()).
		Set("Vector", f.vector.Stats()).
		Set("AllocationRanges", len(f.allocation)).
		Set("HasSecurityIndex", f.security != nil)
}

// Close releases the facade's caches. A Facade must not be used after
// Close.
func (f *Facade) Close() {
	f.coordinator.Lock()
	defer f.coordinator.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.vector.entryLRU.Purge()
}
