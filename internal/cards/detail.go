package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
	"github.com/nexuus/creditcard-sub000/internal/storage"
)

// ErrNotFound is returned when a card ID is empty or the remote API has no
// detail record for it.
var ErrNotFound = errors.New("card not found")

const (
	detailKeyPrefix = "detail."

	// prefetchConcurrency bounds the worker count of PrefetchDetails.
	prefetchConcurrency = 10
)

// DetailService resolves enriched card records through memory, the
// persistent store, and the remote detail endpoint, degrading to the
// catalog summary when the remote record cannot be fetched.
type DetailService struct {
	client  *rewardsapi.Client
	store   *storage.KVStore
	catalog *Catalog
	ttl     time.Duration
	logger  *slog.Logger

	memory *detailCache
}

// NewDetailService creates a detail service sharing the catalog's store
// and TTL. A nil logger falls back to slog.Default().
func NewDetailService(client *rewardsapi.Client, store *storage.KVStore, catalog *Catalog, ttl time.Duration, logger *slog.Logger) *DetailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailService{
		client:  client,
		store:   store,
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
		memory:  newDetailCache(),
	}
}

func (s *DetailService) valid(storedAt time.Time, now time.Time) bool {
	return now.Sub(storedAt) < s.ttl
}

// GetDetail returns the enriched record for one card. An empty ID and an
// empty remote detail array both yield ErrNotFound. On remote failure the
// catalog summary is upgraded to a detail-shaped value; when no summary
// exists either, the remote error propagates.
func (s *DetailService) GetDetail(ctx context.Context, id string) (*CardDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty card id", ErrNotFound)
	}

	now := time.Now().UTC()

	if detail, storedAt, ok := s.memory.Get(id); ok && s.valid(storedAt, now) {
		return detail, nil
	}

	var stored CardDetail
	storedAt, err := s.store.GetJSON(ctx, detailKeyPrefix+id, &stored)
	if err == nil && s.valid(storedAt, now) {
		s.memory.Set(id, &stored, storedAt)
		return &stored, nil
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		s.logger.Warn("detail store read failed", "card", id, "error", err)
	}

	records, fetchErr := s.client.GetCardDetail(ctx, id)
	if fetchErr != nil {
		if summary, ok := s.catalogSummary(id); ok {
			s.logger.Warn("detail fetch failed, degrading to catalog summary", "card", id, "error", fetchErr)
			return DetailFromSummary(summary), nil
		}
		return nil, fetchErr
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	detail := detailFromRecord(records[0])

	s.memory.Set(id, detail, now)
	if err := s.store.Set(ctx, detailKeyPrefix+id, detail); err != nil {
		s.logger.Warn("detail store write failed", "card", id, "error", err)
	}
	s.catalog.ReplaceSummary(ctx, detail.CardSummary)

	return detail, nil
}

// PrefetchDetails warms the detail caches for the given card IDs with
// bounded concurrency. Individual failures are logged and skipped; the
// batch always runs to completion.
func (s *DetailService) PrefetchDetails(ctx context.Context, ids []string) {
	sem := make(chan struct{}, prefetchConcurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(cardID string) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.GetDetail(ctx, cardID); err != nil {
				s.logger.Debug("prefetch skipped card", "card", cardID, "error", err)
			}
		}(id)
	}

	wg.Wait()
}

// ClearCache drops all cached details from both tiers.
func (s *DetailService) ClearCache(ctx context.Context) error {
	s.memory.Clear()
	if err := s.store.DeletePrefix(ctx, detailKeyPrefix); err != nil {
		return fmt.Errorf("clear detail store: %w", err)
	}
	return nil
}

func (s *DetailService) catalogSummary(id string) (CardSummary, bool) {
	cards, ok := s.catalog.Current()
	if !ok {
		return CardSummary{}, false
	}
	for _, card := range cards {
		if card.ID == id {
			return card, true
		}
	}
	return CardSummary{}, false
}
