// Package profiles manages user profiles and their owned-card
// collections, keeping exactly one profile active at a time.
package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexuus/creditcard-sub000/internal/cards"
)

// Profile is one user of the app with an independent owned-card
// collection and catalog preferences.
type Profile struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar,omitempty"`
	Email       string      `json:"email,omitempty"`
	IsActive    bool        `json:"isActive"`
	OwnedCards  []OwnedCard `json:"ownedCards"`
	Preferences Preferences `json:"preferences"`
	Theme       string      `json:"theme,omitempty"`
}

// OwnedCard is one card a profile actually holds. Its ID is generated
// locally and is never shared across profiles, even when two profiles own
// the same catalog card.
type OwnedCard struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Issuer          string     `json:"issuer"`
	DateOpened      time.Time  `json:"dateOpened"`
	SignupBonus     int        `json:"signupBonus"`
	BonusAchieved   bool       `json:"bonusAchieved"`
	AnnualFee       float64    `json:"annualFee"`
	Notes           string     `json:"notes,omitempty"`
	IsActive        bool       `json:"isActive"`
	DateInactivated *time.Time `json:"dateInactivated,omitempty"`
}

// Preferences are per-profile catalog view settings.
type Preferences struct {
	FavoriteCardIDs     map[string]bool     `json:"favoriteCardIds,omitempty"`
	HiddenCardIDs       map[string]bool     `json:"hiddenCardIds,omitempty"`
	PreferredCategories []string            `json:"preferredCategories,omitempty"`
	PreferredIssuers    []string            `json:"preferredIssuers,omitempty"`
	CustomCards         []cards.CardSummary `json:"customCards,omitempty"`
}

// NewProfile creates a profile with a fresh ID and empty collections.
func NewProfile(name string) Profile {
	return Profile{
		ID:         uuid.NewString(),
		Name:       name,
		OwnedCards: []OwnedCard{},
		Preferences: Preferences{
			FavoriteCardIDs: map[string]bool{},
			HiddenCardIDs:   map[string]bool{},
		},
	}
}

// NewOwnedCard creates an owned card with a fresh local ID, opened now and
// active.
func NewOwnedCard(name, issuer string, annualFee float64, signupBonus int) OwnedCard {
	return OwnedCard{
		ID:          uuid.NewString(),
		Name:        name,
		Issuer:      issuer,
		DateOpened:  time.Now().UTC(),
		SignupBonus: signupBonus,
		AnnualFee:   annualFee,
		IsActive:    true,
	}
}
