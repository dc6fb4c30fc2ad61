package cards

import (
	"sync"
	"time"
)

// catalogCache holds the in-memory copy of the card catalog together with
// the time it was stored. Thread-safe.
type catalogCache struct {
	mu       sync.RWMutex
	cards    []CardSummary
	storedAt time.Time
}

// Get returns a copy of the cached catalog and its storage time. The
// returned slice is safe for the caller to retain.
func (c *catalogCache) Get() ([]CardSummary, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cards == nil {
		return nil, time.Time{}, false
	}
	out := make([]CardSummary, len(c.cards))
	copy(out, c.cards)
	return out, c.storedAt, true
}

// Set replaces the cached catalog.
func (c *catalogCache) Set(cards []CardSummary, storedAt time.Time) {
	stored := make([]CardSummary, len(cards))
	copy(stored, cards)
	c.mu.Lock()
	c.cards = stored
	c.storedAt = storedAt
	c.mu.Unlock()
}

// Replace swaps the entry with the given ID in place. Returns false when
// the catalog is empty or has no such entry.
func (c *catalogCache) Replace(summary CardSummary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cards {
		if c.cards[i].ID == summary.ID {
			c.cards[i] = summary
			return true
		}
	}
	return false
}

// Clear drops the cached catalog.
func (c *catalogCache) Clear() {
	c.mu.Lock()
	c.cards = nil
	c.storedAt = time.Time{}
	c.mu.Unlock()
}

// detailEntry is one cached card detail with its storage time.
type detailEntry struct {
	detail   *CardDetail
	storedAt time.Time
}

// detailCache holds in-memory card details keyed by card ID. Thread-safe.
type detailCache struct {
	mu      sync.RWMutex
	entries map[string]detailEntry
}

func newDetailCache() *detailCache {
	return &detailCache{entries: make(map[string]detailEntry)}
}

func (c *detailCache) Get(id string) (*CardDetail, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, time.Time{}, false
	}
	copied := *entry.detail
	return &copied, entry.storedAt, true
}

func (c *detailCache) Set(id string, detail *CardDetail, storedAt time.Time) {
	copied := *detail
	c.mu.Lock()
	c.entries[id] = detailEntry{detail: &copied, storedAt: storedAt}
	c.mu.Unlock()
}

func (c *detailCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]detailEntry)
	c.mu.Unlock()
}
