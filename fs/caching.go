package fs

import (
	"sync"

	"github.com/Velocidex/ordereddict"
)

// FNSummary is the sliver of a $FILE_NAME attribute the summary cache
// keeps: just enough to resolve a path component without holding the
// whole parsed MFTEntry alive.
type FNSummary struct {
	Name                 string
	NameType             string
	ParentEntryNumber    uint64
	ParentSequenceNumber uint16
}

// MFTEntrySummary is the lightweight, second-tier cache record for one
// MFT entry (spec §4.6): its sequence number plus every $FILE_NAME it
// carries. Kept separate from the primary parsed-entry cache so that
// heavy path-resolution traffic (which only needs names and parents)
// does not evict hot, fully-parsed entries needed for attribute reads.
type MFTEntrySummary struct {
	Sequence  uint16
	Filenames []FNSummary
}

// MFTEntryCache resolves MFTEntrySummary records, preferring the live MFT
// but falling back to out-of-band preloaded summaries (e.g. sourced from
// a journal external to this package) when the MFT's sequence number
// does not match what the caller expects.
type MFTEntryCache struct {
	mu sync.Mutex

	resolver EntryResolver

	lru *LRU

	preloaded map[uint64]*MFTEntrySummary
}

// NewMFTEntryCache builds a summary cache of the given capacity, backed
// by resolver for cache misses.
func NewMFTEntryCache(resolver EntryResolver, capacity int) *MFTEntryCache {
	lru, _ := NewLRU(capacity, nil, "MFTEntryCache")
	return &MFTEntryCache{
		resolver:  resolver,
		lru:       lru,
		preloaded: make(map[uint64]*MFTEntrySummary),
	}
}

func (c *MFTEntryCache) Stats() *ordereddict.Dict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Stats().Set("Preloaded", len(c.preloaded))
}

func preloadKey(id uint64, seq uint16) uint64 {
	return id | uint64(seq)<<48
}

// SetPreload installs or updates an out-of-band summary for (id, seq).
// cb receives the currently preloaded entry (nil if none) and decides
// whether to replace it; this lets a caller merge rather than blindly
// overwrite.
func (c *MFTEntryCache) SetPreload(id uint64, seq uint16,
	cb func(entry *MFTEntrySummary) (*MFTEntrySummary, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := preloadKey(id, seq)
	entry := c.preloaded[key]
	newEntry, updated := cb(entry)
	if updated {
		c.preloaded[key] = newEntry
	}
}

// GetSummary resolves the summary for MFT id, preferring the exact
// sequence number seq when available via the preload map. A mismatched
// sequence from the live MFT is still returned - the caller decides
// whether a sequence mismatch is itself an error.
func (c *MFTEntryCache) GetSummary(id uint64, seq uint16) (*MFTEntrySummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.getSummaryFromMFT(id)
	if err != nil {
		return nil, err
	}

	if res.Sequence != seq {
		if preloaded, ok := c.preloaded[preloadKey(id, seq)]; ok {
			return preloaded, nil
		}
	}

	return res, nil
}

func (c *MFTEntryCache) getSummaryFromMFT(id uint64) (*MFTEntrySummary, error) {
	if cached, ok := c.lru.Get(int(id)); ok {
		if summary, ok := cached.(*MFTEntrySummary); ok {
			return summary, nil
		}
	}

	entry, err := c.resolver.GetMFTEntry(id)
	if err != nil {
		return nil, err
	}

	summary := &MFTEntrySummary{Sequence: entry.SequenceValue()}
	filenames, err := entry.FileNames(c.resolver)
	if err == nil {
		for _, fn := range filenames {
			summary.Filenames = append(summary.Filenames, FNSummary{
				Name:                 fn.Name,
				NameType:             fn.NameType.String(),
				ParentEntryNumber:    fn.ParentMFTReference,
				ParentSequenceNumber: fn.ParentSequenceValue,
			})
		}
	}

	c.lru.Add(int(id), summary)
	return summary, nil
}
