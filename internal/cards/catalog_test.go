package cards

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
	"github.com/nexuus/creditcard-sub000/internal/storage"
)

func newTestStore(t *testing.T) *storage.KVStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewKVStore(db)
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return store
}

// testAPI is a fake rewards API whose listing payload and failure mode can
// be swapped mid-test.
type testAPI struct {
	server   *httptest.Server
	listing  atomic.Value // []map[string]any
	failing  atomic.Bool
	requests atomic.Int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{}
	api.listing.Store([]map[string]any{})

	mux := http.NewServeMux()
	mux.HandleFunc("/cards", func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		if api.failing.Load() {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(api.listing.Load())
	})
	mux.HandleFunc("/creditcard-detail-namesearch/", func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		if api.failing.Load() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("[]"))
	})

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (a *testAPI) client() *rewardsapi.Client {
	return rewardsapi.NewClient(rewardsapi.Options{
		BaseURL: a.server.URL,
		APIKey:  "test-key",
		APIHost: "test-host",
	})
}

func TestCatalogDedupKeepsHighestMultiplier(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 2, "spendBonusDesc": "2x on groceries"},
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 5, "spendBonusDesc": "5x on travel"},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	cards, err := catalog.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if len(cards) != 1 {
		t.Fatalf("expected 1 deduplicated card, got %d", len(cards))
	}
	if !strings.Contains(cards[0].Description, "5x") {
		t.Errorf("dedup kept the wrong record: %+v", cards[0])
	}
}

func TestCatalogDedupTieKeepsFirstSeen(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 3, "spendBonusDesc": "first record"},
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 3, "spendBonusDesc": "second record"},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	cards, err := catalog.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if len(cards) != 1 || cards[0].Description != "first record" {
		t.Errorf("equal multipliers should keep the first record: %+v", cards)
	}
}

func TestCatalogSortedByIssuerThenName(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "c1", "cardName": "Zeta", "cardIssuer": "Chase", "earnMultiplier": 1},
		{"cardKey": "c2", "cardName": "Alpha", "cardIssuer": "Chase", "earnMultiplier": 1},
		{"cardKey": "a1", "cardName": "Gold", "cardIssuer": "Amex", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	cards, err := catalog.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	want := []string{"a1", "c2", "c1"}
	if len(cards) != len(want) {
		t.Fatalf("expected %d cards, got %d", len(want), len(cards))
	}
	for i, id := range want {
		if cards[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, cards[i].ID, id)
		}
	}
}

func TestCatalogMemoryTierShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	ctx := context.Background()

	if _, err := catalog.Get(ctx); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	after := api.requests.Load()

	if _, err := catalog.Get(ctx); err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	if api.requests.Load() != after {
		t.Error("second Get() should be served from memory without remote calls")
	}
}

func TestCatalogZeroTTLExpiresImmediately(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), 0, nil)
	ctx := context.Background()

	if _, err := catalog.Get(ctx); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	before := api.requests.Load()

	if _, err := catalog.Get(ctx); err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	if api.requests.Load() == before {
		t.Error("age equal to TTL must count as expired and refetch")
	}
}

func TestCatalogStaleDataPreferredOverFailure(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), 0, nil)
	ctx := context.Background()

	first, err := catalog.Get(ctx)
	if err != nil {
		t.Fatalf("first Get() error: %v", err)
	}

	api.failing.Store(true)
	second, err := catalog.Get(ctx)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if len(second) != len(first) || second[0].ID != "a" {
		t.Errorf("expected stale catalog alongside the error, got %+v", second)
	}
}

func TestCatalogSampleFallbackWhenNothingCached(t *testing.T) {
	api := newTestAPI(t)
	api.failing.Store(true)

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	cards, err := catalog.Get(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if len(cards) == 0 {
		t.Fatal("expected the built-in sample catalog, got nothing")
	}
	for _, card := range cards {
		if card.ID == "" || card.Name == "" {
			t.Errorf("sample card missing required fields: %+v", card)
		}
	}
}

func TestCatalogPersistentTierSurvivesRestart(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 1},
	})
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := NewCatalog(api.client(), store, time.Hour, nil).Get(ctx); err != nil {
		t.Fatalf("warmup Get() error: %v", err)
	}

	// Fresh manager, same store: must hit the persistent tier, not remote.
	api.failing.Store(true)
	cards, err := NewCatalog(api.client(), store, time.Hour, nil).Get(ctx)
	if err != nil {
		t.Fatalf("Get() from persistent tier error: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "a" {
		t.Errorf("unexpected catalog from persistent tier: %+v", cards)
	}
}

func TestForceRefreshBypassesCache(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "Card A", "cardIssuer": "Chase", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	ctx := context.Background()

	if _, err := catalog.Get(ctx); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	api.listing.Store([]map[string]any{
		{"cardKey": "b", "cardName": "Card B", "cardIssuer": "Citi", "earnMultiplier": 1},
	})

	cards, err := catalog.ForceRefresh(ctx)
	if err != nil {
		t.Fatalf("ForceRefresh() error: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "b" {
		t.Errorf("ForceRefresh did not replace the catalog: %+v", cards)
	}
}

func TestCatalogNoDuplicateIDs(t *testing.T) {
	api := newTestAPI(t)
	api.listing.Store([]map[string]any{
		{"cardKey": "a", "cardName": "A", "cardIssuer": "X", "earnMultiplier": 1},
		{"cardKey": "b", "cardName": "B", "cardIssuer": "X", "earnMultiplier": 2},
		{"cardKey": "a", "cardName": "A", "cardIssuer": "X", "earnMultiplier": 3},
		{"cardKey": "b", "cardName": "B", "cardIssuer": "X", "earnMultiplier": 1},
	})

	catalog := NewCatalog(api.client(), newTestStore(t), time.Hour, nil)
	cards, err := catalog.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	seen := make(map[string]bool)
	for _, card := range cards {
		if seen[card.ID] {
			t.Errorf("duplicate id in catalog: %q", card.ID)
		}
		seen[card.ID] = true
	}
}
