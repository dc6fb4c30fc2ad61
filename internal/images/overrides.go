package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Override is one manually curated image assignment from the overrides
// file.
type Override struct {
	CardID string `toml:"card_id"`
	Issuer string `toml:"issuer"`
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Path   string `toml:"path"`
}

type overridesFile struct {
	Override []Override `toml:"override"`
}

// OverridesWatcher loads manual image overrides from a TOML file into the
// mapping database and reapplies them when the file changes on disk.
type OverridesWatcher struct {
	path    string
	mapping *Mapping
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewOverridesWatcher creates a watcher for the given overrides file. The
// file is allowed to be absent.
func NewOverridesWatcher(path string, mapping *Mapping, logger *slog.Logger) *OverridesWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverridesWatcher{
		path:    path,
		mapping: mapping,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Load reads the overrides file and upserts every entry as a manual
// record. A missing file is not an error.
func (w *OverridesWatcher) Load(ctx context.Context) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read overrides file: %w", err)
	}

	var parsed overridesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse overrides file: %w", err)
	}

	for _, ov := range parsed.Override {
		if ov.CardID == "" {
			w.logger.Warn("override entry missing card_id, skipped", "name", ov.Name)
			continue
		}
		w.mapping.Upsert(ctx, Record{
			CardID:    ov.CardID,
			Issuer:    ov.Issuer,
			Name:      ov.Name,
			RemoteURL: ov.URL,
			LocalPath: ov.Path,
			Source:    SourceManual,
		})
	}

	w.logger.Info("manual image overrides applied", "count", len(parsed.Override))
	return nil
}

// Start begins watching the overrides file's directory and reloads on
// write events until ctx is cancelled or Close is called.
func (w *OverridesWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch overrides directory: %w", err)
	}
	w.watcher = watcher

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := w.Load(ctx); err != nil {
					w.logger.Warn("overrides reload failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("overrides watcher error", "error", err)
			}
		}
	}()

	return nil
}

// Close stops the watch loop.
func (w *OverridesWatcher) Close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}
