package fs

import (
	"container/list"
	"sync"

	"github.com/Velocidex/ordereddict"
)

// LRU is a fixed-capacity, thread-safe least-recently-used cache keyed by
// int (an MFT entry index). Used for both the primary parsed-entry cache
// and the lighter filename-summary cache (spec §4.6).
//
// No third-party LRU implementation appears anywhere in this project's
// dependency lineage, so this is built directly on container/list.
type LRU struct {
	mu sync.Mutex

	name     string
	capacity int
	evict    func(key int, value interface{})

	ll    *list.List
	items map[int]*list.Element

	hits, misses, evictions int
}

type lruEntry struct {
	key   int
	value interface{}
}

// NewLRU builds an LRU of the given capacity. onEvict, if non-nil, is
// called (outside the lock) whenever a live entry is displaced to make
// room for a new one - not when Purge clears the whole cache.
func NewLRU(capacity int, onEvict func(key int, value interface{}), name string) (*LRU, error) {
	if capacity <= 0 {
		return nil, newErr(InvalidArgument, "NewLRU", nil)
	}
	return &LRU{
		name:     name,
		capacity: capacity,
		evict:    onEvict,
		ll:       list.New(),
		items:    make(map[int]*list.Element),
	}, nil
}

// Get returns the cached value for key, promoting it to most-recently-used.
func (c *LRU) Get(key int) (interface{}, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		stats.incCacheMisses()
		return nil, false
	}
	c.ll.MoveToFront(elem)
	c.hits++
	value := elem.Value.(*lruEntry).value
	c.mu.Unlock()

	stats.incCacheHits()
	return value, true
}

// Add inserts or updates key, evicting the least-recently-used entry if
// the cache is already at capacity.
func (c *LRU) Add(key int, value interface{}) {
	c.mu.Lock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruEntry).value = value
		c.ll.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	elem := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = elem

	var evicted *lruEntry
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			entry := oldest.Value.(*lruEntry)
			delete(c.items, entry.key)
			evicted = entry
			c.evictions++
		}
	}
	c.mu.Unlock()

	if evicted != nil {
		stats.incCacheEvictions()
		if c.evict != nil {
			c.evict(evicted.key, evicted.value)
		}
	}
}

// Len returns the number of entries currently cached.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Purge drops every cached entry without invoking the eviction callback.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[int]*list.Element)
}

// Stats renders hit/miss/eviction counters for diagnostics.
func (c *LRU) Stats() *ordereddict.Dict {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ordereddict.NewDict().
		Set("Name", c.name).
		Set("Capacity", c.capacity).
		Set("Len", c.ll.Len()).
		Set("Hits", c.hits).
		Set("Misses", c.misses).
		Set("Evictions", c.evictions)
}

func (c *LRU) DebugString() string {
	return c.Stats().String()
}
