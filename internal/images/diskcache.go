package images

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	maxKeyLength   = 100
	truncatedStem  = 60
	hashSuffixLen  = 16
	cacheExtension = ".img"
)

// DiskCache stores image bytes as files under a single directory, keyed by
// a filesystem-safe transformation of the lookup key. A byte cap is
// enforced by evicting the least recently used files.
type DiskCache struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
}

// NewDiskCache creates a disk cache rooted at dir, creating it if needed.
// maxBytes of zero disables eviction.
func NewDiskCache(dir string, maxBytes int64) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image cache directory: %w", err)
	}
	return &DiskCache{dir: dir, maxBytes: maxBytes}, nil
}

// SanitizeKey converts a card ID or URL into a safe filename stem.
// Reserved characters become dashes; overlong keys keep a prefix plus a
// content-hash suffix so distinct keys stay distinct.
func SanitizeKey(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '&', '=', ' ', '%', '#':
			return '-'
		}
		return r
	}, key)

	if len(sanitized) > maxKeyLength {
		sum := sha256.Sum256([]byte(key))
		sanitized = sanitized[:truncatedStem] + "-" + hex.EncodeToString(sum[:])[:hashSuffixLen]
	}
	return sanitized
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, SanitizeKey(key)+cacheExtension)
}

// Get returns the cached bytes for key, touching the file so eviction
// treats it as recently used.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil, false
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return data, true
}

// Put writes the bytes for key and evicts old files if the cache grew past
// its cap.
func (c *DiskCache) Put(key string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to cache empty image for %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cached image: %w", err)
	}
	c.evictLocked()
	return nil
}

// Size returns the total bytes currently stored.
func (c *DiskCache) Size() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("scan image cache: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheExtension) {
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}

// Clear removes every cached image file.
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("scan image cache: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheExtension) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove cached image: %w", err)
		}
	}
	return nil
}

// evictLocked removes least recently used files until the cache fits its
// byte cap. Caller holds the mutex.
func (c *DiskCache) evictLocked() {
	if c.maxBytes <= 0 {
		return
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	var files []fileInfo
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(c.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}

	if total <= c.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	for _, f := range files {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
		}
	}
}
