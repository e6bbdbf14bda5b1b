package fs

import (
	"testing"

	"github.com/alecthomas/assert"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	var evictedKeys []int
	lru, err := NewLRU(2, func(key int, value interface{}) {
		evictedKeys = append(evictedKeys, key)
	}, "test")
	assert.NoError(t, err)

	lru.Add(1, "a")
	lru.Add(2, "b")

	// Touch 1 so 2 becomes the least recently used.
	_, ok := lru.Get(1)
	assert.True(t, ok)

	lru.Add(3, "c")
	assert.Equal(t, []int{2}, evictedKeys)

	_, ok = lru.Get(2)
	assert.False(t, ok)

	v, ok := lru.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestLRUAddUpdatesExistingKeyWithoutEviction(t *testing.T) {
	var evictions int
	lru, err := NewLRU(1, func(key int, value interface{}) { evictions++ }, "test")
	assert.NoError(t, err)

	lru.Add(1, "a")
	lru.Add(1, "b")
	assert.Equal(t, 0, evictions)

	v, ok := lru.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestLRUPurgeDoesNotInvokeEvictionCallback(t *testing.T) {
	var evictions int
	lru, err := NewLRU(2, func(key int, value interface{}) { evictions++ }, "test")
	assert.NoError(t, err)

	lru.Add(1, "a")
	lru.Purge()
	assert.Equal(t, 0, evictions)
	assert.Equal(t, 0, lru.Len())

	_, ok := lru.Get(1)
	assert.False(t, ok)
}

func TestNewLRURejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewLRU(0, nil, "test")
	assert.Error(t, err)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, InvalidArgument, code)
}
