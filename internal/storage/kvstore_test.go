package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *KVStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewKVStore(db)
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return store
}

func TestKVStoreSetGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := store.Set(ctx, "test.key", payload{Name: "hello", Count: 3}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	var got payload
	storedAt, err := store.GetJSON(ctx, "test.key", &got)
	if err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if got.Name != "hello" || got.Count != 3 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if storedAt.IsZero() {
		t.Error("expected stored_at to be set")
	}
}

func TestKVStoreOverwriteUpdatesTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	_, first, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if err := store.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	value, second, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if value != `"v2"` {
		t.Errorf("value not replaced: %q", value)
	}
	if second.Before(first) {
		t.Errorf("stored_at went backwards: %v then %v", first, second)
	}
}

func TestKVStoreMissingKey(t *testing.T) {
	store := setupTestStore(t)

	_, _, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestKVStoreDeletePrefix(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"detail.a", "detail.b", "catalog.cards"} {
		if err := store.Set(ctx, key, "x"); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
	}

	if err := store.DeletePrefix(ctx, "detail."); err != nil {
		t.Fatalf("DeletePrefix() error: %v", err)
	}

	keys, err := store.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "catalog.cards" {
		t.Errorf("unexpected surviving keys: %v", keys)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"profiles":[{"id":"p1"}]}`)

	encrypted, err := EncryptData(plaintext, DefaultEncryptionConfig("passphrase"))
	if err != nil {
		t.Fatalf("EncryptData() error: %v", err)
	}

	decrypted, err := DecryptData(encrypted, DefaultEncryptionConfig("passphrase"))
	if err != nil {
		t.Fatalf("DecryptData() error: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("round trip mismatch: %q", decrypted)
	}

	if _, err := DecryptData(encrypted, DefaultEncryptionConfig("wrong")); err == nil {
		t.Error("expected decryption with wrong password to fail")
	}
}
