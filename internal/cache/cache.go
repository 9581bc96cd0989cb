// Package cache implements the LRU discovery cache: buffer identity to
// discovered functions, invalidated by the host's change tag.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/funclens/funclens/internal/model"
)

// DefaultSize is the production cache capacity.
const DefaultSize = 50

type entry struct {
	tag   uint64
	funcs []model.Func
}

// Cache maps buffer identity to discovered functions. An entry is valid
// only while the buffer's current change tag matches the tag recorded at
// insertion; a mismatched lookup is a miss even though the entry exists
// (GetStale still returns it for the stale render pass).
type Cache struct {
	lru *lru.Cache[model.BufferID, entry]
}

// New creates a cache holding at most size entries, evicting the least
// recently accessed entry on overflow.
func New(size int) (*Cache, error) {
	l, err := lru.New[model.BufferID, entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating discovery cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached functions for id when the recorded change tag
// matches tag. A tag mismatch is a miss and forces fresh discovery.
func (c *Cache) Get(id model.BufferID, tag uint64) ([]model.Func, bool) {
	e, ok := c.lru.Get(id)
	if !ok || e.tag != tag {
		return nil, false
	}
	return e.funcs, true
}

// GetStale returns the cached functions for id regardless of change-tag
// validity. The stale render phase trades accuracy for immediacy.
func (c *Cache) GetStale(id model.BufferID) ([]model.Func, bool) {
	e, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return e.funcs, true
}

// Put stores funcs for id under tag, refreshing recency. Inserting beyond
// capacity evicts the least recently used entry.
func (c *Cache) Put(id model.BufferID, tag uint64, funcs []model.Func) {
	c.lru.Add(id, entry{tag: tag, funcs: funcs})
}

// Invalidate force-evicts the entry for id. The host calls this on
// buffer close so no entry dangles after the buffer is gone.
func (c *Cache) Invalidate(id model.BufferID) {
	c.lru.Remove(id)
}

// Resize changes the capacity at runtime, evicting as needed.
func (c *Cache) Resize(size int) {
	c.lru.Resize(size)
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
