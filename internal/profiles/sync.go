package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nexuus/creditcard-sub000/internal/storage"
)

var (
	// ErrProfileNotFound is returned for operations on an unknown profile ID.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrLastProfile rejects deleting the only remaining profile.
	ErrLastProfile = errors.New("cannot delete the last profile")

	// ErrCardNotFound is returned for operations on an unknown owned-card ID.
	ErrCardNotFound = errors.New("owned card not found")
)

const (
	profileSetKey = "profiles.set"

	// ownedCardsKey redundantly stores the active profile's owned cards so
	// an export or a corrupted profile set never loses them.
	ownedCardsKey = "profiles.ownedCards"

	defaultProfileName = "Default"
)

// Synchronizer owns the profile set and enforces that exactly one profile
// is active at any time. Callers flush the owned-card working set into the
// outgoing profile before switching and reload from the incoming profile
// afterwards; the synchronizer never auto-loads.
type Synchronizer struct {
	mu     sync.Mutex
	store  *storage.KVStore
	logger *slog.Logger
	set    []Profile
}

// NewSynchronizer loads the persisted profile set, creating a default
// active profile when none exists yet.
func NewSynchronizer(ctx context.Context, store *storage.KVStore, logger *slog.Logger) (*Synchronizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{store: store, logger: logger}

	var persisted []Profile
	_, err := store.GetJSON(ctx, profileSetKey, &persisted)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		first := NewProfile(defaultProfileName)
		first.IsActive = true
		s.set = []Profile{first}
		if err := s.persistLocked(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load profile set: %w", err)
	default:
		s.set = persisted
		s.enforceSingleActiveLocked()
	}

	return s, nil
}

// Profiles returns a copy of the profile set.
func (s *Synchronizer) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Profile, len(s.set))
	copy(out, s.set)
	return out
}

// ActiveProfile returns the single active profile.
func (s *Synchronizer) ActiveProfile() (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.set {
		if p.IsActive {
			return p, nil
		}
	}
	return Profile{}, ErrProfileNotFound
}

// CreateProfile adds a new inactive profile.
func (s *Synchronizer) CreateProfile(ctx context.Context, name string) (Profile, error) {
	if name == "" {
		return Profile{}, fmt.Errorf("profile name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := NewProfile(name)
	s.set = append(s.set, p)
	if err := s.persistLocked(ctx); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// DeleteProfile removes a profile. Deleting the active profile promotes
// the first remaining one; deleting the last profile is rejected.
func (s *Synchronizer) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.set) <= 1 {
		return ErrLastProfile
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}

	wasActive := s.set[idx].IsActive
	s.set = append(s.set[:idx], s.set[idx+1:]...)
	if wasActive {
		s.set[0].IsActive = true
	}

	return s.persistLocked(ctx)
}

// SwitchActiveProfile makes the given profile the single active one. The
// caller must have flushed the working set via SyncOwnedCards first.
func (s *Synchronizer) SwitchActiveProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}

	for i := range s.set {
		s.set[i].IsActive = i == idx
	}
	return s.persistLocked(ctx)
}

// SyncOwnedCards flushes the owned-card working set into the active
// profile's stored collection.
func (s *Synchronizer) SyncOwnedCards(ctx context.Context, working []OwnedCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.activeIndexLocked()
	if idx < 0 {
		return ErrProfileNotFound
	}

	stored := make([]OwnedCard, len(working))
	copy(stored, working)
	s.set[idx].OwnedCards = stored

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	if err := s.store.Set(ctx, ownedCardsKey, stored); err != nil {
		s.logger.Warn("redundant owned-card write failed", "error", err)
	}
	return nil
}

// OwnedCards returns a copy of the active profile's stored collection.
// Loading it into a working set after a switch is the caller's move.
func (s *Synchronizer) OwnedCards() ([]OwnedCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.activeIndexLocked()
	if idx < 0 {
		return nil, ErrProfileNotFound
	}
	out := make([]OwnedCard, len(s.set[idx].OwnedCards))
	copy(out, s.set[idx].OwnedCards)
	return out, nil
}

// AddOwnedCard appends a card to the active profile.
func (s *Synchronizer) AddOwnedCard(ctx context.Context, card OwnedCard) error {
	return s.mutateActive(ctx, func(p *Profile) error {
		p.OwnedCards = append(p.OwnedCards, card)
		return nil
	})
}

// UpdateOwnedCard replaces the card with the same ID in the active
// profile.
func (s *Synchronizer) UpdateOwnedCard(ctx context.Context, card OwnedCard) error {
	return s.mutateActive(ctx, func(p *Profile) error {
		for i := range p.OwnedCards {
			if p.OwnedCards[i].ID == card.ID {
				p.OwnedCards[i] = card
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrCardNotFound, card.ID)
	})
}

// RemoveOwnedCard deletes the card with the given ID from the active
// profile.
func (s *Synchronizer) RemoveOwnedCard(ctx context.Context, cardID string) error {
	return s.mutateActive(ctx, func(p *Profile) error {
		for i := range p.OwnedCards {
			if p.OwnedCards[i].ID == cardID {
				p.OwnedCards = append(p.OwnedCards[:i], p.OwnedCards[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	})
}

// ToggleBonusAchieved flips the signup-bonus flag on one owned card.
func (s *Synchronizer) ToggleBonusAchieved(ctx context.Context, cardID string) error {
	return s.mutateActive(ctx, func(p *Profile) error {
		for i := range p.OwnedCards {
			if p.OwnedCards[i].ID == cardID {
				p.OwnedCards[i].BonusAchieved = !p.OwnedCards[i].BonusAchieved
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	})
}

// SetOwnedCardActive activates or inactivates one owned card, stamping the
// inactivation date.
func (s *Synchronizer) SetOwnedCardActive(ctx context.Context, cardID string, active bool) error {
	return s.mutateActive(ctx, func(p *Profile) error {
		for i := range p.OwnedCards {
			if p.OwnedCards[i].ID != cardID {
				continue
			}
			p.OwnedCards[i].IsActive = active
			if active {
				p.OwnedCards[i].DateInactivated = nil
			} else {
				now := time.Now().UTC()
				p.OwnedCards[i].DateInactivated = &now
			}
			return nil
		}
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	})
}

func (s *Synchronizer) mutateActive(ctx context.Context, fn func(*Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.activeIndexLocked()
	if idx < 0 {
		return ErrProfileNotFound
	}
	if err := fn(&s.set[idx]); err != nil {
		return err
	}

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	if err := s.store.Set(ctx, ownedCardsKey, s.set[idx].OwnedCards); err != nil {
		s.logger.Warn("redundant owned-card write failed", "error", err)
	}
	return nil
}

func (s *Synchronizer) indexLocked(id string) int {
	for i := range s.set {
		if s.set[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) activeIndexLocked() int {
	for i := range s.set {
		if s.set[i].IsActive {
			return i
		}
	}
	return -1
}

// enforceSingleActiveLocked repairs a loaded set so exactly one profile is
// active.
func (s *Synchronizer) enforceSingleActiveLocked() {
	if len(s.set) == 0 {
		return
	}
	active := -1
	for i := range s.set {
		if s.set[i].IsActive {
			if active < 0 {
				active = i
			} else {
				s.set[i].IsActive = false
			}
		}
	}
	if active < 0 {
		s.set[0].IsActive = true
	}
}

func (s *Synchronizer) persistLocked(ctx context.Context) error {
	if err := s.store.Set(ctx, profileSetKey, s.set); err != nil {
		return fmt.Errorf("persist profile set: %w", err)
	}
	return nil
}
