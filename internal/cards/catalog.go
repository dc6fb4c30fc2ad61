package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
	"github.com/nexuus/creditcard-sub000/internal/storage"
)

// ErrRemoteUnavailable wraps remote fetch failures that the caller may
// retry. When the catalog has stale data it is returned alongside this
// error rather than discarded.
var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

const catalogKey = "catalog.cards"

// searchTerms is the fixed set of issuer and category queries merged into
// the basic listing on every remote refresh.
var searchTerms = []string{
	"chase",
	"american express",
	"capital one",
	"citi",
	"discover",
	"wells fargo",
	"bank of america",
	"travel",
	"cash back",
	"dining",
	"hotel",
	"airline",
	"business",
	"student",
}

// Catalog resolves the card catalog through three tiers: an in-memory
// cache, the persistent store, and the remote rewards API.
type Catalog struct {
	client *rewardsapi.Client
	store  *storage.KVStore
	ttl    time.Duration
	logger *slog.Logger

	memory catalogCache
}

// NewCatalog creates a catalog manager. A nil logger falls back to
// slog.Default().
func NewCatalog(client *rewardsapi.Client, store *storage.KVStore, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		client: client,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// valid reports whether an entry stored at the given time is still inside
// the TTL window. An entry exactly at the boundary is expired.
func (c *Catalog) valid(storedAt time.Time, now time.Time) bool {
	return now.Sub(storedAt) < c.ttl
}

// Get returns the card catalog, consulting memory, then the persistent
// store, then the remote API. When the remote fetch fails but stale data
// exists, the stale catalog is returned together with a non-nil error
// wrapping ErrRemoteUnavailable.
func (c *Catalog) Get(ctx context.Context) ([]CardSummary, error) {
	now := time.Now().UTC()

	if cached, storedAt, ok := c.memory.Get(); ok && c.valid(storedAt, now) {
		return cached, nil
	}

	var stored []CardSummary
	storedAt, err := c.store.GetJSON(ctx, catalogKey, &stored)
	if err == nil && c.valid(storedAt, now) {
		c.memory.Set(stored, storedAt)
		return stored, nil
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		c.logger.Warn("catalog store read failed", "error", err)
	}

	fresh, fetchErr := c.fetchRemote(ctx)
	if fetchErr != nil {
		// Stale data beats no data. Prefer whichever tier still has
		// something before resorting to the sample set.
		if cached, _, ok := c.memory.Get(); ok {
			return cached, fetchErr
		}
		if len(stored) > 0 {
			c.memory.Set(stored, storedAt)
			return stored, fetchErr
		}
		return SampleCatalog(), fetchErr
	}

	c.writeThrough(ctx, fresh, now)
	return fresh, nil
}

// ForceRefresh clears every cache tier and refetches the catalog from the
// remote API.
func (c *Catalog) ForceRefresh(ctx context.Context) ([]CardSummary, error) {
	c.memory.Clear()
	if err := c.store.Delete(ctx, catalogKey); err != nil {
		c.logger.Warn("catalog store clear failed", "error", err)
	}

	fresh, err := c.fetchRemote(ctx)
	if err != nil {
		return SampleCatalog(), err
	}

	c.writeThrough(ctx, fresh, time.Now().UTC())
	return fresh, nil
}

// Current returns whatever the memory tier holds without triggering any
// fetch. Used for in-place summary replacement after a detail load.
func (c *Catalog) Current() ([]CardSummary, bool) {
	cards, _, ok := c.memory.Get()
	return cards, ok
}

// ReplaceSummary swaps the catalog entry with the same ID in the memory
// tier and persists the updated list. A miss is not an error.
func (c *Catalog) ReplaceSummary(ctx context.Context, summary CardSummary) {
	if !c.memory.Replace(summary) {
		return
	}
	cards, _, ok := c.memory.Get()
	if !ok {
		return
	}
	if err := c.store.Set(ctx, catalogKey, cards); err != nil {
		c.logger.Warn("catalog store write failed", "error", err)
	}
}

// Clear drops the catalog from both cache tiers.
func (c *Catalog) Clear(ctx context.Context) error {
	c.memory.Clear()
	if err := c.store.Delete(ctx, catalogKey); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("clear catalog store: %w", err)
	}
	return nil
}

// SearchByTerm queries the remote name-search endpoint. When the remote
// call fails, the cached catalog is filtered locally instead.
func (c *Catalog) SearchByTerm(ctx context.Context, term string) ([]CardSummary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("search term is empty")
	}

	results, err := c.client.SearchByName(ctx, term)
	if err != nil {
		c.logger.Warn("remote search failed, filtering cached catalog", "term", term, "error", err)
		cached, _, ok := c.memory.Get()
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		return filterByTerm(cached, term), nil
	}

	out := make([]CardSummary, 0, len(results))
	for _, rec := range results {
		out = append(out, summaryFromSearch(rec))
	}
	return out, nil
}

// fetchRemote assembles the catalog from the basic listing plus the fixed
// search terms, deduplicates, and sorts. A top-level failure is one where
// the basic listing errored and nothing else produced cards.
func (c *Catalog) fetchRemote(ctx context.Context) ([]CardSummary, error) {
	seen := make(map[string]int)
	var merged []CardSummary

	listing, listErr := c.client.ListCards(ctx)
	if listErr != nil {
		c.logger.Warn("basic card listing failed", "error", listErr)
	} else {
		merged = mergeListing(listing, seen)
	}

	for _, term := range searchTerms {
		results, err := c.client.SearchByName(ctx, term)
		if err != nil {
			c.logger.Warn("search term skipped", "term", term, "error", err)
			continue
		}
		for _, rec := range results {
			if _, dup := seen[rec.CardKey]; dup {
				continue
			}
			seen[rec.CardKey] = len(merged)
			merged = append(merged, summaryFromSearch(rec))
		}
	}

	if len(merged) == 0 {
		if listErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, listErr)
		}
		c.logger.Warn("remote catalog came back empty, using sample set")
		return SampleCatalog(), nil
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Issuer != merged[j].Issuer {
			return merged[i].Issuer < merged[j].Issuer
		}
		return merged[i].Name < merged[j].Name
	})
	return merged, nil
}

// mergeListing deduplicates the basic listing by card key, keeping the
// record with the highest earn multiplier. Equal multipliers keep the
// record seen first. The seen map is filled with final slice indexes so
// search results can extend the same dedup set.
func mergeListing(listing []rewardsapi.Card, seen map[string]int) []CardSummary {
	type best struct {
		rec   rewardsapi.Card
		value float64
	}
	order := make([]string, 0, len(listing))
	byKey := make(map[string]best)

	for _, rec := range listing {
		value := rec.Multiplier()
		existing, ok := byKey[rec.CardKey]
		if !ok {
			byKey[rec.CardKey] = best{rec: rec, value: value}
			order = append(order, rec.CardKey)
			continue
		}
		if value > existing.value {
			byKey[rec.CardKey] = best{rec: rec, value: value}
		}
	}

	out := make([]CardSummary, 0, len(order))
	for _, key := range order {
		seen[key] = len(out)
		out = append(out, summaryFromListing(byKey[key].rec))
	}
	return out
}

func filterByTerm(cards []CardSummary, term string) []CardSummary {
	needle := strings.ToLower(term)
	var out []CardSummary
	for _, card := range cards {
		if strings.Contains(strings.ToLower(card.Name), needle) ||
			strings.Contains(strings.ToLower(card.Issuer), needle) {
			out = append(out, card)
		}
	}
	return out
}

// writeThrough stores a freshly fetched catalog in both cache tiers.
func (c *Catalog) writeThrough(ctx context.Context, cards []CardSummary, storedAt time.Time) {
	c.memory.Set(cards, storedAt)
	if err := c.store.Set(ctx, catalogKey, cards); err != nil {
		c.logger.Warn("catalog store write failed", "error", err)
	}
}
