// Package cards provides the browsable card catalog and per-card detail
// records, cached across memory, the persistent store, and the remote
// rewards API.
package cards

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nexuus/creditcard-sub000/internal/cards/rewardsapi"
	"github.com/nexuus/creditcard-sub000/internal/classify"
)

// CardSummary is one row of the browsable catalog. ID is the stable
// catalog key and the join key across all cache tiers.
type CardSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Issuer      string  `json:"issuer"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	AnnualFee   float64 `json:"annualFee"`
	SignupBonus int     `json:"signupBonus"`
	APR         string  `json:"apr"`
	ApplyURL    string  `json:"applyUrl"`
}

// Benefit is one perk listed on a card detail record.
type Benefit struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BonusCategory is one earn-multiplier category on a card detail record.
type BonusCategory struct {
	Group       string  `json:"group"`
	Name        string  `json:"name"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description"`
}

// CardDetail is the enriched per-card record. Its embedded summary shares
// the same ID as the catalog entry it augments.
type CardDetail struct {
	CardSummary

	Network     string `json:"network,omitempty"`
	CardType    string `json:"cardType,omitempty"`
	CreditRange string `json:"creditRange,omitempty"`

	BonusTerms string `json:"bonusTerms,omitempty"`

	Benefits        []Benefit       `json:"benefits,omitempty"`
	BonusCategories []BonusCategory `json:"bonusCategories,omitempty"`

	LoungeAccess      bool `json:"loungeAccess,omitempty"`
	FreeHotelNight    bool `json:"freeHotelNight,omitempty"`
	GlobalEntryCredit bool `json:"globalEntryCredit,omitempty"`
}

// TopBonusCategory returns the bonus category with the highest multiplier,
// or nil when the card has none. Equal multipliers keep the earlier entry.
func (d *CardDetail) TopBonusCategory() *BonusCategory {
	if len(d.BonusCategories) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(d.BonusCategories); i++ {
		if d.BonusCategories[i].Multiplier > d.BonusCategories[best].Multiplier {
			best = i
		}
	}
	return &d.BonusCategories[best]
}

// DetailFromSummary upgrades a catalog summary into a detail-shaped value
// with empty optional fields. Used when the remote detail fetch fails but
// the catalog already knows the card.
func DetailFromSummary(summary CardSummary) *CardDetail {
	return &CardDetail{CardSummary: summary}
}

// classifyInfo converts a detail record into the classifier's input shape.
func (d *CardDetail) classifyInfo() classify.CardInfo {
	bonus := make([]classify.BonusInfo, 0, len(d.BonusCategories))
	for _, bc := range d.BonusCategories {
		bonus = append(bonus, classify.BonusInfo{
			Name:        bc.Group + " " + bc.Name,
			Description: bc.Description,
			Multiplier:  bc.Multiplier,
		})
	}
	return classify.CardInfo{
		Category:    d.Category,
		Name:        d.Name,
		Description: d.Description,
		Issuer:      d.Issuer,
		Bonus:       bonus,
	}
}

// Normalize re-derives the detail's category: the highest-multiplier bonus
// category when present, with the classifier as fallback.
func (d *CardDetail) Normalize() {
	if top := d.TopBonusCategory(); top != nil {
		if cat := classify.Classify(top.Group + " " + top.Name + " " + top.Description); cat != classify.General {
			d.Category = string(cat)
			return
		}
	}
	d.Category = string(classify.CategorizeCard(d.classifyInfo()))
}

// summaryFromListing converts a basic-list API record into a catalog
// summary. The category comes from the classifier since the listing has no
// category field of its own.
func summaryFromListing(rec rewardsapi.Card) CardSummary {
	category := classify.Classify(rec.SpendType + " " + rec.SpendBonusDesc)
	if category == classify.General {
		category = classify.Classify(rec.CardName)
	}
	return CardSummary{
		ID:          rec.CardKey,
		Name:        rec.CardName,
		Issuer:      rec.CardIssuer,
		Category:    string(category),
		Description: rec.SpendBonusDesc,
	}
}

// summaryFromSearch converts a name-search API record into a minimal
// catalog summary.
func summaryFromSearch(rec rewardsapi.SearchResult) CardSummary {
	return CardSummary{
		ID:       rec.CardKey,
		Name:     rec.CardName,
		Issuer:   rec.CardIssuer,
		Category: string(classify.Classify(rec.CardName)),
	}
}

// detailFromRecord converts a remote detail record into the domain shape
// and derives its category.
func detailFromRecord(rec rewardsapi.CardDetailRecord) *CardDetail {
	detail := &CardDetail{
		CardSummary: CardSummary{
			ID:          rec.CardKey,
			Name:        rec.CardName,
			Issuer:      rec.CardIssuer,
			Description: rec.CardDescription,
			AnnualFee:   rec.AnnualFee,
			SignupBonus: parseBonusAmount(rec.SignupBonusAmount),
			APR:         rec.AprDesc,
			ApplyURL:    rec.CardURL,
		},
		Network:           rec.CardNetwork,
		CardType:          rec.CardType,
		CreditRange:       rec.CreditRange,
		BonusTerms:        signupTerms(rec),
		LoungeAccess:      rec.IsLoungeAccess != 0,
		FreeHotelNight:    rec.IsFreeHotelNight != 0,
		GlobalEntryCredit: rec.IsGlobalEntry != 0,
	}

	for _, b := range rec.Benefits {
		detail.Benefits = append(detail.Benefits, Benefit{
			Title:       b.BenefitTitle,
			Description: b.BenefitDesc,
		})
	}
	for _, sb := range rec.SpendBonusCategory {
		detail.BonusCategories = append(detail.BonusCategories, BonusCategory{
			Group:       sb.SpendBonusCategoryGroup,
			Name:        sb.SpendBonusCategoryName,
			Multiplier:  sb.EarnMultiplier,
			Description: sb.SpendBonusDesc,
		})
	}

	detail.Normalize()
	return detail
}

// signupTerms renders the structured signup-bonus fields into one
// human-readable terms string.
func signupTerms(rec rewardsapi.CardDetailRecord) string {
	if rec.SignupBonusDesc != "" {
		return rec.SignupBonusDesc
	}
	if rec.SignupBonusAmount == "" {
		return ""
	}
	terms := rec.SignupBonusAmount + " " + rec.SignupBonusType
	if rec.SignupReqSpend > 0 {
		terms += fmt.Sprintf(" after $%.0f spend", rec.SignupReqSpend)
		if rec.SignupSpendLength > 0 {
			terms += fmt.Sprintf(" in %.0f months", rec.SignupSpendLength)
		}
	}
	return terms
}

// parseBonusAmount extracts an integer bonus from strings like "60,000" or
// "60000 points". Unparseable input yields zero.
func parseBonusAmount(raw string) int {
	cleaned := strings.Builder{}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			cleaned.WriteRune(r)
		}
	}
	if cleaned.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(cleaned.String())
	if err != nil {
		return 0
	}
	return n
}
