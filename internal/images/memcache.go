// Package images resolves displayable card artwork through a tiered
// pipeline: memory cache, disk cache, local image mapping, remote image
// metadata, and a synthesized placeholder as the last resort.
package images

import (
	"container/list"
	"sync"
)

// MemoryCache is a bounded, thread-safe LRU cache of encoded image bytes
// keyed by card ID.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	maxBytes int64
	curBytes int64
	order    *list.List
	entries  map[string]*list.Element
}

type memEntry struct {
	key  string
	data []byte
}

// NewMemoryCache creates an LRU cache holding at most capacity entries and
// maxBytes total payload. Zero values disable the respective limit.
func NewMemoryCache(capacity int, maxBytes int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		maxBytes: maxBytes,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached bytes for key and marks the entry most recently
// used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*memEntry).data, true
}

// Put stores the bytes under key, evicting least-recently-used entries
// until the cache is back under its limits.
func (c *MemoryCache) Put(key string, data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memEntry)
		c.curBytes += int64(len(data)) - int64(len(entry.data))
		entry.data = data
		c.order.MoveToFront(elem)
	} else {
		elem := c.order.PushFront(&memEntry{key: key, data: data})
		c.entries[key] = elem
		c.curBytes += int64(len(data))
	}

	for c.overLimit() {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*memEntry)
		c.order.Remove(oldest)
		delete(c.entries, entry.key)
		c.curBytes -= int64(len(entry.data))
	}
}

func (c *MemoryCache) overLimit() bool {
	if c.capacity > 0 && c.order.Len() > c.capacity {
		return true
	}
	if c.maxBytes > 0 && c.curBytes > c.maxBytes {
		return true
	}
	return false
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.curBytes = 0
}
