package cache

import (
	"container/list"
	"sync"

	"github.com/atharv3903/tripcorridor/internal/model"
)

// DefaultLRUCapacity is the default number of routes held in memory.
const DefaultLRUCapacity = 1024

type pairKey struct {
	origin, destination string
}

type lruEntry struct {
	key pairKey
	val *model.CachedRoute
}

// LRU is a bounded in-process cache of routes keyed by ordered endpoint pair.
// It's safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	m        map[pairKey]*list.Element
	ll       *list.List
	capacity int
	// stats
	puts      int
	gets      int
	hits      int
	evictions int
}

// NewLRU returns an LRU with the provided capacity, or the default when
// capacity <= 0.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = DefaultLRUCapacity
	}
	return &LRU{
		m:        make(map[pairKey]*list.Element, capacity),
		ll:       list.New(),
		capacity: capacity,
	}
}

// Get returns the route for the pair and updates its LRU position on hit.
func (c *LRU) Get(originID, destinationID string) (*model.CachedRoute, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if el, ok := c.m[pairKey{originID, destinationID}]; ok {
		c.hits++
		c.ll.MoveToFront(el)
		return el.Value.(lruEntry).val, true
	}
	return nil, false
}

// Put inserts r. If insertion exceeds capacity the least-recently-used route
// is evicted.
func (c *LRU) Put(r *model.CachedRoute) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := pairKey{r.OriginID, r.DestinationID}
	c.puts++
	if el, ok := c.m[key]; ok {
		el.Value = lruEntry{key: key, val: r}
		c.ll.MoveToFront(el)
		return
	}

	c.m[key] = c.ll.PushFront(lruEntry{key: key, val: r})
	if c.ll.Len() > c.capacity {
		if tail := c.ll.Back(); tail != nil {
			delete(c.m, tail.Value.(lruEntry).key)
			c.ll.Remove(tail)
			c.evictions++
		}
	}
}

// Remove drops a single pair, if present. Not counted as an eviction.
func (c *LRU) Remove(originID, destinationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey{originID, destinationID}
	if el, ok := c.m[key]; ok {
		delete(c.m, key)
		c.ll.Remove(el)
	}
}

// RemoveMatching drops every route for which match returns true and reports
// how many were removed.
func (c *LRU) RemoveMatching(match func(*model.CachedRoute) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(lruEntry)
		if match(e.val) {
			delete(c.m, e.key)
			c.ll.Remove(el)
			n++
		}
		el = next
	}
	return n
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear fully resets the cache and stats.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[pairKey]*list.Element, c.capacity)
	c.ll.Init()
	c.puts = 0
	c.gets = 0
	c.hits = 0
	c.evictions = 0
}

// Stats returns (gets, hits, puts, evictions), snapshot under lock.
func (c *LRU) Stats() (gets, hits, puts, evictions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.hits, c.puts, c.evictions
}
