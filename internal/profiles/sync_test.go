package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

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

func newTestSync(t *testing.T) *Synchronizer {
	t.Helper()
	s, err := NewSynchronizer(context.Background(), newTestStore(t), nil)
	if err != nil {
		t.Fatalf("NewSynchronizer() error: %v", err)
	}
	return s
}

func assertSingleActive(t *testing.T, s *Synchronizer) {
	t.Helper()
	active := 0
	for _, p := range s.Profiles() {
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly 1 active profile, got %d", active)
	}
}

func TestNewSynchronizerCreatesDefaultProfile(t *testing.T) {
	s := newTestSync(t)

	set := s.Profiles()
	if len(set) != 1 || set[0].Name != defaultProfileName {
		t.Fatalf("unexpected initial profile set: %+v", set)
	}
	assertSingleActive(t, s)
}

func TestSwitchActiveProfileKeepsExactlyOneActive(t *testing.T) {
	s := newTestSync(t)
	ctx := context.Background()

	second, err := s.CreateProfile(ctx, "Work")
	if err != nil {
		t.Fatalf("CreateProfile() error: %v", err)
	}
	third, err := s.CreateProfile(ctx, "Family")
	if err != nil {
		t.Fatalf("CreateProfile() error: %v", err)
	}

	if err := s.SwitchActiveProfile(ctx, second.ID); err != nil {
		t.Fatalf("SwitchActiveProfile() error: %v", err)
	}
	assertSingleActive(t, s)

	active, err := s.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active = %q, want %q", active.ID, second.ID)
	}

	if err := s.SwitchActiveProfile(ctx, third.ID); err != nil {
		t.Fatalf("SwitchActiveProfile() error: %v", err)
	}
	assertSingleActive(t, s)
}

func TestSwitchToUnknownProfileFails(t *testing.T) {
	s := newTestSync(t)
	err := s.SwitchActiveProfile(context.Background(), "no-such-id")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	assertSingleActive(t, s)
}

func TestSyncThenSwitchPreservesEdits(t *testing.T) {
	s := newTestSync(t)
	ctx := context.Background()

	original, err := s.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error: %v", err)
	}
	second, err := s.CreateProfile(ctx, "Work")
	if err != nil {
		t.Fatalf("CreateProfile() error: %v", err)
	}

	// Three working-set edits, flushed before the switch.
	working := []OwnedCard{
		NewOwnedCard("Sapphire Preferred", "Chase", 95, 60000),
		NewOwnedCard("Gold Card", "American Express", 250, 60000),
	}
	working[0].Notes = "edited"
	if err := s.SyncOwnedCards(ctx, working); err != nil {
		t.Fatalf("SyncOwnedCards() error: %v", err)
	}
	if err := s.SwitchActiveProfile(ctx, second.ID); err != nil {
		t.Fatalf("SwitchActiveProfile() error: %v", err)
	}

	// Incoming profile starts empty; nothing auto-loads.
	incoming, err := s.OwnedCards()
	if err != nil {
		t.Fatalf("OwnedCards() error: %v", err)
	}
	if len(incoming) != 0 {
		t.Errorf("new profile should have no owned cards, got %d", len(incoming))
	}

	// Switching back restores the flushed collection.
	if err := s.SyncOwnedCards(ctx, incoming); err != nil {
		t.Fatalf("SyncOwnedCards() error: %v", err)
	}
	if err := s.SwitchActiveProfile(ctx, original.ID); err != nil {
		t.Fatalf("SwitchActiveProfile() error: %v", err)
	}
	restored, err := s.OwnedCards()
	if err != nil {
		t.Fatalf("OwnedCards() error: %v", err)
	}
	if len(restored) != 2 || restored[0].Notes != "edited" {
		t.Errorf("owned-card edits lost across switch: %+v", restored)
	}
}

func TestDeleteActiveProfileReassignsActive(t *testing.T) {
	s := newTestSync(t)
	ctx := context.Background()

	if _, err := s.CreateProfile(ctx, "Work"); err != nil {
		t.Fatalf("CreateProfile() error: %v", err)
	}
	active, err := s.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error: %v", err)
	}

	if err := s.DeleteProfile(ctx, active.ID); err != nil {
		t.Fatalf("DeleteProfile() error: %v", err)
	}
	assertSingleActive(t, s)

	remaining, err := s.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error: %v", err)
	}
	if remaining.ID == active.ID {
		t.Error("deleted profile still active")
	}
}

func TestDeleteLastProfileRejected(t *testing.T) {
	s := newTestSync(t)
	only := s.Profiles()[0]

	err := s.DeleteProfile(context.Background(), only.ID)
	if !errors.Is(err, ErrLastProfile) {
		t.Fatalf("expected ErrLastProfile, got %v", err)
	}
}

func TestOwnedCardLifecycle(t *testing.T) {
	s := newTestSync(t)
	ctx := context.Background()

	card := NewOwnedCard("Double Cash", "Citi", 0, 200)
	if err := s.AddOwnedCard(ctx, card); err != nil {
		t.Fatalf("AddOwnedCard() error: %v", err)
	}

	if err := s.ToggleBonusAchieved(ctx, card.ID); err != nil {
		t.Fatalf("ToggleBonusAchieved() error: %v", err)
	}
	owned, _ := s.OwnedCards()
	if !owned[0].BonusAchieved {
		t.Error("bonus flag should be toggled on")
	}

	if err := s.SetOwnedCardActive(ctx, card.ID, false); err != nil {
		t.Fatalf("SetOwnedCardActive() error: %v", err)
	}
	owned, _ = s.OwnedCards()
	if owned[0].IsActive || owned[0].DateInactivated == nil {
		t.Errorf("inactivation not recorded: %+v", owned[0])
	}

	if err := s.RemoveOwnedCard(ctx, card.ID); err != nil {
		t.Fatalf("RemoveOwnedCard() error: %v", err)
	}
	owned, _ = s.OwnedCards()
	if len(owned) != 0 {
		t.Errorf("card not removed: %+v", owned)
	}

	if err := s.UpdateOwnedCard(ctx, card); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound after removal, got %v", err)
	}
}

func TestProfileSetSurvivesReload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := NewSynchronizer(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewSynchronizer() error: %v", err)
	}
	work, err := first.CreateProfile(ctx, "Work")
	if err != nil {
		t.Fatalf("CreateProfile() error: %v", err)
	}
	if err := first.SwitchActiveProfile(ctx, work.ID); err != nil {
		t.Fatalf("SwitchActiveProfile() error: %v", err)
	}

	second, err := NewSynchronizer(ctx, store, nil)
	if err != nil {
		t.Fatalf("reload NewSynchronizer() error: %v", err)
	}
	assertSingleActive(t, second)
	active, err := second.ActiveProfile()
	if err != nil {
		t.Fatalf("ActiveProfile() error: %v", err)
	}
	if active.ID != work.ID {
		t.Errorf("active profile lost across reload: %+v", active)
	}
}
