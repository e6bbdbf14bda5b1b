package fs

import (
	"sync"

	"github.com/Velocidex/ordereddict"
)

// stats is a process-wide set of counters used only for diagnostics; no
// parsing decision ever depends on its value.
var stats = &statCounters{}

type statCounters struct {
	mu sync.Mutex

	MFTEntriesParsed   int
	AttributesParsed   int
	FixupsApplied      int
	ContextsCreated    int
	CacheHits          int
	CacheMisses        int
	CacheEvictions     int
}

func (s *statCounters) incMFTEntriesParsed() { s.mu.Lock(); s.MFTEntriesParsed++; s.mu.Unlock() }
func (s *statCounters) incAttributesParsed() { s.mu.Lock(); s.AttributesParsed++; s.mu.Unlock() }
func (s *statCounters) incFixupsApplied()    { s.mu.Lock(); s.FixupsApplied++; s.mu.Unlock() }
func (s *statCounters) incContextsCreated()  { s.mu.Lock(); s.ContextsCreated++; s.mu.Unlock() }
func (s *statCounters) incCacheHits()        { s.mu.Lock(); s.CacheHits++; s.mu.Unlock() }
func (s *statCounters) incCacheMisses()      { s.mu.Lock(); s.CacheMisses++; s.mu.Unlock() }
func (s *statCounters) incCacheEvictions()   { s.mu.Lock(); s.CacheEvictions++; s.mu.Unlock() }

// Dict renders the current counters as an ordereddict.Dict for stable,
// order-preserving JSON/CLI output.
func (s *statCounters) Dict() *ordereddict.Dict {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ordereddict.NewDict().
		Set("MFTEntriesParsed", s.MFTEntriesParsed).
		Set("AttributesParsed", s.AttributesParsed).
		Set("FixupsApplied", s.FixupsApplied).
		Set("ContextsCreated", s.ContextsCreated).
		Set("CacheHits", s.CacheHits).
		Set("CacheMisses", s.CacheMisses).
		Set("CacheEvictions", s.CacheEvictions)
}

// Stats returns a snapshot of the package-wide instrumentation counters.
func Stats() *ordereddict.Dict {
	return stats.Dict()
}
