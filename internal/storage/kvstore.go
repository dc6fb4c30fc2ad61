package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned when a key is absent from the store.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is a key/value repository over SQLite. Values are JSON blobs and
// every write records a stored_at timestamp. The store is safe for
// concurrent independent-key access; no cross-key transactions are offered.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a key/value store backed by db. The kv_entries table
// must already exist (see migrations).
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// InitSchema creates the kv_entries table directly, bypassing the migration
// manager. Intended for in-memory test databases where the file-based
// migration path does not apply.
func (s *KVStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			stored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create kv_entries table: %w", err)
	}
	return nil
}

// Get retrieves the raw value and its write time for a key.
func (s *KVStore) Get(ctx context.Context, key string) (string, time.Time, error) {
	var value string
	var storedAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT value, stored_at FROM kv_entries WHERE key = ?", key,
	).Scan(&value, &storedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", time.Time{}, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, storedAt, nil
}

// GetJSON retrieves a key and unmarshals its value into target.
func (s *KVStore) GetJSON(ctx context.Context, key string, target interface{}) (time.Time, error) {
	value, storedAt, err := s.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return storedAt, nil
}

// Set stores a JSON-encoded value under key with a fresh timestamp.
func (s *KVStore) Set(ctx context.Context, key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal key %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at
	`, key, string(encoded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key beginning with prefix.
func (s *KVStore) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	if err != nil {
		return fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}
	return nil
}

// Keys returns all keys beginning with prefix.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv_entries WHERE key LIKE ? ESCAPE '\\' ORDER BY key", escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
