package rewardsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Options{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		APIHost: "test-host",
	})
}

func TestListCards(t *testing.T) {
	var gotKey, gotHost string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		if r.URL.Path != "/cards" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"cardKey":"amex-gold","cardName":"Gold Card","cardIssuer":"American Express","spendType":"dining","earnMultiplier":"4","earnMultiplierValue":4},
			{"cardKey":"chase-freedom","cardName":"Freedom Unlimited","cardIssuer":"Chase","spendType":"all","earnMultiplier":1.5,"earnMultiplierValue":1.5}
		]`))
	}))

	cards, err := client.ListCards(context.Background())
	if err != nil {
		t.Fatalf("ListCards() error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if gotKey != "test-key" || gotHost != "test-host" {
		t.Errorf("auth headers not sent: key=%q host=%q", gotKey, gotHost)
	}
	if cards[0].Multiplier() != 4 {
		t.Errorf("string multiplier not coerced: got %v", cards[0].Multiplier())
	}
	if cards[1].Multiplier() != 1.5 {
		t.Errorf("numeric multiplier wrong: got %v", cards[1].Multiplier())
	}
}

func TestGetCardDetailNotFoundStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetCardDetail(context.Background(), "nope")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDoRequestServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))

	_, err := client.ListCards(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestDoRequestMalformedJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))

	_, err := client.ListCards(context.Background())
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestGetCardImageBothShapes(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"cardKey":"a","cardName":"A","cardImageUrl":"https://img.example/a.png"}]`))
		}))

		images, err := client.GetCardImage(context.Background(), "a")
		if err != nil {
			t.Fatalf("GetCardImage() error: %v", err)
		}
		if len(images) != 1 || images[0].CardImageURL != "https://img.example/a.png" {
			t.Errorf("unexpected images: %+v", images)
		}
	})

	t.Run("single object", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"cardKey":"b","cardName":"B","cardImageUrl":"https://img.example/b.png"}`))
		}))

		images, err := client.GetCardImage(context.Background(), "b")
		if err != nil {
			t.Fatalf("GetCardImage() error: %v", err)
		}
		if len(images) != 1 || images[0].CardKey != "b" {
			t.Errorf("unexpected images: %+v", images)
		}
	})
}

func TestSearchByNameEscapesTerm(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[{"cardKey":"x","cardIssuer":"Chase","cardName":"Sapphire"}]`))
	}))

	results, err := client.SearchByName(context.Background(), "cash back")
	if err != nil {
		t.Fatalf("SearchByName() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if gotPath != "/creditcard-detail-namesearch/cash%20back" {
		t.Errorf("term not escaped: %q", gotPath)
	}
}

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind Kind
	}{
		{"string", `"3"`, KindString},
		{"number", `2.5`, KindNumber},
		{"bool", `true`, KindBool},
		{"null", `null`, KindNull},
		{"list", `[1,"two"]`, KindList},
		{"map", `{"a":1}`, KindMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := v.UnmarshalJSON([]byte(tt.json)); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if v.Kind != tt.kind {
				t.Errorf("kind = %d, want %d", v.Kind, tt.kind)
			}
		})
	}

	var v Value
	_ = v.UnmarshalJSON([]byte(`"4.5"`))
	if f, ok := v.Float64(); !ok || f != 4.5 {
		t.Errorf("Float64() = %v, %v; want 4.5, true", f, ok)
	}
}
