// Package app wires the catalog, detail, image, and profile subsystems
// behind one facade consumed by the CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/nexuus/creditcard-sub000/internal/cards"
	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
	"github.com/nexuus/creditcard-sub000/internal/config"
	"github.com/nexuus/creditcard-sub000/internal/images"
	"github.com/nexuus/creditcard-sub000/internal/profiles"
	"github.com/nexuus/creditcard-sub000/internal/storage"
)

// prefetchCount bounds how many catalog cards get their details warmed
// after a catalog load.
const prefetchCount = 10

// Service is the facade over every subsystem. All methods are safe for
// concurrent use.
type Service struct {
	catalog  *cards.Catalog
	details  *cards.DetailService
	pipeline *images.Pipeline
	sync     *profiles.Synchronizer
	backup   *storage.BackupManager
	db       *storage.DB
	logger   *slog.Logger

	mu         sync.Mutex
	workingSet []profiles.OwnedCard
	lastErr    error
	hasData    bool
}

// Options are the assembled dependencies of a Service. Tests construct
// these directly; production code uses NewFromConfig.
type Options struct {
	Catalog  *cards.Catalog
	Details  *cards.DetailService
	Pipeline *images.Pipeline
	Sync     *profiles.Synchronizer
	Backup   *storage.BackupManager
	DB       *storage.DB
	Logger   *slog.Logger
}

// New creates a Service from pre-built dependencies and loads the active
// profile's owned cards into the working set.
func New(opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Service{
		catalog:  opts.Catalog,
		details:  opts.Details,
		pipeline: opts.Pipeline,
		sync:     opts.Sync,
		backup:   opts.Backup,
		db:       opts.DB,
		logger:   opts.Logger,
	}

	owned, err := s.sync.OwnedCards()
	if err != nil {
		return nil, fmt.Errorf("load active profile: %w", err)
	}
	s.workingSet = owned
	return s, nil
}

// NewFromConfig opens the database, runs migrations, and assembles the
// full service from configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dataDir, "rewards-cache.db")

	dbCfg := storage.DefaultConfig(dbPath)
	dbCfg.AutoMigrate = true
	db, err := storage.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := storage.NewKVStore(db.Conn())

	client := rewardsapi.NewClient(rewardsapi.Options{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.Key,
		APIHost: cfg.API.Host,
	})

	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, err
	}

	catalog := cards.NewCatalog(client, store, ttl, logger)
	details := cards.NewDetailService(client, store, catalog, ttl, logger)

	imageDir := cfg.Images.CacheDir
	if imageDir == "" {
		imageDir = filepath.Join(dataDir, "images")
	}
	disk, err := images.NewDiskCache(imageDir, cfg.Images.MaxCacheBytes)
	if err != nil {
		return nil, err
	}
	mapping := images.NewMapping(ctx, store, logger)
	pipeline := images.NewPipeline(images.NewMemoryCache(cfg.Images.MemoryEntries, 0), disk, mapping, client, logger)

	if cfg.Images.OverridesFile != "" {
		watcher := images.NewOverridesWatcher(cfg.Images.OverridesFile, mapping, logger)
		if err := watcher.Load(ctx); err != nil {
			logger.Warn("manual image overrides not loaded", "error", err)
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("overrides watcher not started", "error", err)
		}
	}

	synchronizer, err := profiles.NewSynchronizer(ctx, store, logger)
	if err != nil {
		return nil, err
	}

	return New(Options{
		Catalog:  catalog,
		Details:  details,
		Pipeline: pipeline,
		Sync:     synchronizer,
		Backup:   storage.NewBackupManager(dbPath),
		DB:       db,
		Logger:   logger,
	})
}

// Close releases the database.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetCatalog returns the card catalog and warms the detail caches for its
// most prominent cards. A remote failure with usable stale or sample data
// is recorded as the last error instead of failing the call.
func (s *Service) GetCatalog(ctx context.Context) ([]cards.CardSummary, error) {
	catalog, err := s.catalog.Get(ctx)
	s.record(err, len(catalog) > 0)
	if len(catalog) == 0 {
		return nil, err
	}

	if err == nil {
		ids := make([]string, 0, prefetchCount)
		for i := 0; i < len(catalog) && i < prefetchCount; i++ {
			ids = append(ids, catalog[i].ID)
		}
		go s.details.PrefetchDetails(context.WithoutCancel(ctx), ids)
	}

	return catalog, nil
}

// ForceRefreshCatalog drops every catalog tier and refetches.
func (s *Service) ForceRefreshCatalog(ctx context.Context) ([]cards.CardSummary, error) {
	catalog, err := s.catalog.ForceRefresh(ctx)
	s.record(err, len(catalog) > 0)
	if len(catalog) == 0 {
		return nil, err
	}
	return catalog, nil
}

// GetDetail returns the enriched record for one card.
func (s *Service) GetDetail(ctx context.Context, id string) (*cards.CardDetail, error) {
	detail, err := s.details.GetDetail(ctx, id)
	s.record(err, detail != nil)
	return detail, err
}

// SearchByTerm searches the remote catalog, falling back to a local
// filter of the cached catalog when the remote is down.
func (s *Service) SearchByTerm(ctx context.Context, term string) ([]cards.CardSummary, error) {
	results, err := s.catalog.SearchByTerm(ctx, term)
	s.record(err, len(results) > 0)
	return results, err
}

// ResolveImage returns displayable artwork for the card. Never fails.
func (s *Service) ResolveImage(ctx context.Context, id string) []byte {
	req := images.Request{CardID: id}
	if catalog, ok := s.catalog.Current(); ok {
		for _, card := range catalog {
			if card.ID == id {
				req.Name = card.Name
				req.Issuer = card.Issuer
				req.Category = card.Category
				break
			}
		}
	}
	return s.pipeline.Resolve(ctx, req)
}

// ClearAllCaches empties the catalog, detail, and image caches. Manual
// image overrides survive.
func (s *Service) ClearAllCaches(ctx context.Context) error {
	if err := s.catalog.Clear(ctx); err != nil {
		return err
	}
	if err := s.details.ClearCache(ctx); err != nil {
		return err
	}
	if err := s.pipeline.ClearCaches(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.hasData = false
	s.mu.Unlock()
	return nil
}

// SwitchProfile flushes the owned-card working set into the outgoing
// profile, switches the active flag, and loads the incoming profile's
// cards into the working set.
func (s *Service) SwitchProfile(ctx context.Context, id string) ([]profiles.OwnedCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync.SyncOwnedCards(ctx, s.workingSet); err != nil {
		return nil, fmt.Errorf("flush working set: %w", err)
	}
	if err := s.sync.SwitchActiveProfile(ctx, id); err != nil {
		return nil, err
	}

	owned, err := s.sync.OwnedCards()
	if err != nil {
		return nil, err
	}
	s.workingSet = owned
	return owned, nil
}

// SetProfileActive changes the active flag without touching the working
// set. SwitchProfile is the safe path; this exists for repair flows where
// the working set is already known to be flushed.
func (s *Service) SetProfileActive(ctx context.Context, id string) error {
	return s.sync.SwitchActiveProfile(ctx, id)
}

// CreateProfile adds a new inactive profile.
func (s *Service) CreateProfile(ctx context.Context, name string) (profiles.Profile, error) {
	return s.sync.CreateProfile(ctx, name)
}

// DeleteProfile removes a profile, reassigning the active flag if needed.
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync.DeleteProfile(ctx, id); err != nil {
		return err
	}
	owned, err := s.sync.OwnedCards()
	if err != nil {
		return err
	}
	s.workingSet = owned
	return nil
}

// Profiles lists all profiles.
func (s *Service) Profiles() []profiles.Profile {
	return s.sync.Profiles()
}

// ActiveProfile returns the single active profile.
func (s *Service) ActiveProfile() (profiles.Profile, error) {
	return s.sync.ActiveProfile()
}

// OwnedCards returns a copy of the working set.
func (s *Service) OwnedCards() []profiles.OwnedCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]profiles.OwnedCard, len(s.workingSet))
	copy(out, s.workingSet)
	return out
}

// AddOwnedCard appends a card to the active profile and the working set.
func (s *Service) AddOwnedCard(ctx context.Context, card profiles.OwnedCard) error {
	return s.mutateOwned(ctx, func() error {
		return s.sync.AddOwnedCard(ctx, card)
	})
}

// UpdateOwnedCard replaces a card in the active profile and working set.
func (s *Service) UpdateOwnedCard(ctx context.Context, card profiles.OwnedCard) error {
	return s.mutateOwned(ctx, func() error {
		return s.sync.UpdateOwnedCard(ctx, card)
	})
}

// RemoveOwnedCard deletes a card from the active profile and working set.
func (s *Service) RemoveOwnedCard(ctx context.Context, cardID string) error {
	return s.mutateOwned(ctx, func() error {
		return s.sync.RemoveOwnedCard(ctx, cardID)
	})
}

// ToggleBonusAchieved flips the signup-bonus flag on one owned card.
func (s *Service) ToggleBonusAchieved(ctx context.Context, cardID string) error {
	return s.mutateOwned(ctx, func() error {
		return s.sync.ToggleBonusAchieved(ctx, cardID)
	})
}

// SetOwnedCardActive activates or inactivates one owned card.
func (s *Service) SetOwnedCardActive(ctx context.Context, cardID string, active bool) error {
	return s.mutateOwned(ctx, func() error {
		return s.sync.SetOwnedCardActive(ctx, cardID, active)
	})
}

func (s *Service) mutateOwned(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync.SyncOwnedCards(ctx, s.workingSet); err != nil {
		return fmt.Errorf("flush working set: %w", err)
	}
	if err := fn(); err != nil {
		return err
	}
	owned, err := s.sync.OwnedCards()
	if err != nil {
		return err
	}
	s.workingSet = owned
	return nil
}

// Backup writes an atomic copy of the database into the backup directory
// and returns its path.
func (s *Service) Backup(dir string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("no database open")
	}
	return s.backup.Backup(s.db.Conn(), dir)
}

// ExportProfiles writes the full profile set, encrypted, to destPath.
func (s *Service) ExportProfiles(destPath, password string) error {
	data, err := json.Marshal(s.sync.Profiles())
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	return s.backup.ExportEncrypted(data, destPath, password)
}

// LastError returns the most recent recorded remote failure, if any.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasData reports whether any catalog data has been served this session.
func (s *Service) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData
}

func (s *Service) record(err error, gotData bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if gotData {
		s.hasData = true
	}
}
