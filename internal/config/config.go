// Package config loads and persists the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Remote rewards API settings
	API APIConfig `toml:"api"`

	// Catalog/detail cache settings
	Cache CacheConfig `toml:"cache"`

	// Image pipeline settings
	Images ImageConfig `toml:"images"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// APIConfig contains rewards API authentication and endpoint settings.
type APIConfig struct {
	Key     string `toml:"key"`      // API key header value
	Host    string `toml:"host"`     // API host header value
	BaseURL string `toml:"base_url"` // Endpoint override (empty = production)
}

// CacheConfig contains catalog and detail caching settings.
type CacheConfig struct {
	TTL     string `toml:"ttl"`      // Cache TTL (e.g., "168h" = 7 days)
	DataDir string `toml:"data_dir"` // Directory for the SQLite store
}

// ImageConfig contains image cache settings.
type ImageConfig struct {
	CacheDir      string `toml:"cache_dir"`      // Directory for cached image files
	MaxCacheBytes int64  `toml:"max_cache_bytes"` // Disk cache cap (0 = unlimited)
	MemoryEntries int    `toml:"memory_entries"` // In-memory image cache capacity
	OverridesFile string `toml:"overrides_file"` // Manual image-overrides TOML file
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{},
		Cache: CacheConfig{
			TTL: "168h", // 7 days
		},
		Images: ImageConfig{
			MaxCacheBytes: 200 * 1024 * 1024, // 200 MB
			MemoryEntries: 256,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".rewards-cache")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from disk. Returns default config if the
// file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &config, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Cache.TTL, err)
	}

	if c.Images.MaxCacheBytes < 0 {
		return fmt.Errorf("image cache size cannot be negative: %d", c.Images.MaxCacheBytes)
	}

	if c.Images.MemoryEntries < 0 {
		return fmt.Errorf("image memory entries cannot be negative: %d", c.Images.MemoryEntries)
	}

	return nil
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Cache.TTL)
}

// DataDir returns the configured data directory, defaulting to
// ~/.rewards-cache.
func (c *Config) DataDir() (string, error) {
	if c.Cache.DataDir != "" {
		return c.Cache.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".rewards-cache"), nil
}
