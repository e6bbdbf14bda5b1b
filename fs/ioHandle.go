package fs

import "io"

// IOHandle is the volume-level contract this package consumes but never
// produces. Boot-sector parsing and validation are out of scope (spec §1);
// whoever opens the volume supplies an IOHandle describing the geometry it
// found there.
type IOHandle interface {
	// ClusterSize is the size, in bytes, of one allocation unit.
	ClusterSize() int64

	// MFTEntrySize is the fixed size, in bytes, of every MFT record
	// for the life of the session (spec §3 invariants).
	MFTEntrySize() int64

	// BytesPerSector is the underlying device's sector size, used by
	// the Fixup Decoder to find sector boundaries.
	BytesPerSector() int64

	// MFTOffset is the byte offset of the first MFT entry, as
	// declared by the volume's boot sector.
	MFTOffset() int64

	// VolumeSize is the total size, in bytes, of the volume as
	// declared by the boot sector. Zero or negative means unknown;
	// Open then falls back to a generous platform-max bound
	// instead of treating the volume as zero-sized (spec §3 data
	// model: "volume size" is the I/O handle's, not this package's,
	// to produce).
	VolumeSize() int64
}

// FileIO is the synchronous, possibly shared, byte source the caller
// supplies per call (spec §6 "I/O handle contract"). It is deliberately
// narrower than io.ReaderAt only in name, to mirror the distinction the
// spec draws between the volume-geometry handle (IOHandle) and the raw
// byte source (FileIO): both are commonly satisfied by the same os.File.
type FileIO interface {
	io.ReaderAt
}

// StaticIOHandle is a minimal concrete IOHandle for callers (tests, the
// CLI) that already know the volume geometry and do not need this package
// to parse a boot sector - boot-sector parsing is an external collaborator
// per spec §1.
type StaticIOHandle struct {
	Cluster    int64
	EntrySize  int64
	SectorSize int64
	Offset     int64
	Size       int64
}

func (h *StaticIOHandle) ClusterSize() int64    { return h.Cluster }
func (h *StaticIOHandle) MFTEntrySize() int64   { return h.EntrySize }
func (h *StaticIOHandle) BytesPerSector() int64 { return h.SectorSize }
func (h *StaticIOHandle) MFTOffset() int64      { return h.Offset }
func (h *StaticIOHandle) VolumeSize() int64     { return h.Size }

// NewStaticIOHandle builds a StaticIOHandle from the given cluster size,
// MFT entry size and MFT offset, with 512-byte sectors and an unknown
// (zero) volume size.
func NewStaticIOHandle(clusterSize, mftEntrySize, mftOffset int64) *StaticIOHandle {
	return &StaticIOHandle{
		Cluster:    clusterSize,
		EntrySize:  mftEntrySize,
		SectorSize: 512,
		Offset:     mftOffset,
	}
}
