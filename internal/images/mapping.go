package images

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nexuus/creditcard-sub000/internal/storage"
)

// Source identifies where an image mapping record came from. Precedence:
// manual records are never overwritten by api-sourced writes.
type Source string

const (
	SourceAPI     Source = "api"
	SourceManual  Source = "manual"
	SourceDefault Source = "default"
	SourceMatched Source = "matched"

	// SourcePending marks a card known to have no resolvable image so the
	// pipeline stops asking the remote endpoint for it.
	SourcePending Source = "pending"
)

// Record maps one card to its image location.
type Record struct {
	CardID      string    `json:"cardId"`
	Issuer      string    `json:"issuer"`
	Name        string    `json:"name"`
	RemoteURL   string    `json:"remoteUrl,omitempty"`
	LocalPath   string    `json:"localPath,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      Source    `json:"source"`
}

const mappingKey = "images.mapping"

// Mapping is the local image-mapping database, held in memory and
// persisted to the key-value store on every mutation.
type Mapping struct {
	mu      sync.RWMutex
	store   *storage.KVStore
	logger  *slog.Logger
	records map[string]Record
}

// NewMapping creates a mapping database backed by the given store and
// loads any persisted records.
func NewMapping(ctx context.Context, store *storage.KVStore, logger *slog.Logger) *Mapping {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapping{
		store:   store,
		logger:  logger,
		records: make(map[string]Record),
	}

	var persisted map[string]Record
	if _, err := store.GetJSON(ctx, mappingKey, &persisted); err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warn("image mapping load failed", "error", err)
		}
	} else if persisted != nil {
		m.records = persisted
	}

	return m
}

// Get returns the record for an exact card ID.
func (m *Mapping) Get(cardID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[cardID]
	return rec, ok
}

// Match finds a record whose issuer+name contains, or is contained by, the
// given issuer+name. Used when no exact ID match exists.
func (m *Mapping) Match(issuer, name string) (Record, bool) {
	needle := strings.ToLower(strings.TrimSpace(issuer + " " + name))
	if needle == "" {
		return Record{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		haystack := strings.ToLower(strings.TrimSpace(rec.Issuer + " " + rec.Name))
		if haystack == "" {
			continue
		}
		if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
			return rec, true
		}
	}
	return Record{}, false
}

// Upsert writes a record, honoring source precedence: an api-, matched-,
// or pending-sourced write never replaces a manual record. Manual writes
// always win.
func (m *Mapping) Upsert(ctx context.Context, rec Record) {
	m.mu.Lock()
	existing, ok := m.records[rec.CardID]
	if ok && existing.Source == SourceManual && rec.Source != SourceManual {
		m.mu.Unlock()
		return
	}
	rec.LastUpdated = time.Now().UTC()
	m.records[rec.CardID] = rec
	m.mu.Unlock()

	m.persist(ctx)
}

// MarkPending records that the card has no resolvable image. Manual
// records are left alone.
func (m *Mapping) MarkPending(ctx context.Context, cardID, issuer, name string) {
	m.Upsert(ctx, Record{
		CardID: cardID,
		Issuer: issuer,
		Name:   name,
		Source: SourcePending,
	})
}

// Remove deletes the record for a card ID.
func (m *Mapping) Remove(ctx context.Context, cardID string) {
	m.mu.Lock()
	delete(m.records, cardID)
	m.mu.Unlock()
	m.persist(ctx)
}

// ClearNonManual drops every record except the manually curated ones.
func (m *Mapping) ClearNonManual(ctx context.Context) {
	m.mu.Lock()
	for id, rec := range m.records {
		if rec.Source != SourceManual {
			delete(m.records, id)
		}
	}
	m.mu.Unlock()
	m.persist(ctx)
}

func (m *Mapping) persist(ctx context.Context) {
	m.mu.RLock()
	snapshot := make(map[string]Record, len(m.records))
	for id, rec := range m.records {
		snapshot[id] = rec
	}
	m.mu.RUnlock()

	if err := m.store.Set(ctx, mappingKey, snapshot); err != nil {
		m.logger.Warn("image mapping persist failed", "error", err)
	}
}
