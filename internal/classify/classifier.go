// Package classify maps free-form card text to a fixed set of rewards
// categories using keyword precedence. It is pure and performs no I/O.
package classify

import (
	"sort"
	"strings"
)

// Category is a standardized rewards category label.
type Category string

// The fixed category set. Order in categoryOrder is the precedence used
// for tie-breaking during classification; General is the fallback.
const (
	Travel    Category = "Travel"
	Airline   Category = "Airline"
	Hotel     Category = "Hotel"
	Cashback  Category = "Cashback"
	Dining    Category = "Dining"
	Groceries Category = "Groceries"
	Gas       Category = "Gas"
	Business  Category = "Business"
	Student   Category = "Student"
	Luxury    Category = "Luxury"
	General   Category = "General"
)

// categoryOrder fixes iteration order for classification. The first
// matching category wins.
var categoryOrder = []Category{
	Travel,
	Airline,
	Hotel,
	Cashback,
	Dining,
	Groceries,
	Gas,
	Business,
	Student,
	Luxury,
}

// keywords maps each non-default category to its keyword set. Matching is
// case-insensitive substring matching against the lowered input.
var keywords = map[Category][]string{
	Travel: {
		"travel", "vacation", "trip", "transit", "cruise", "rental car",
	},
	Airline: {
		"airline", "airfare", "airways", "flight", "skymiles", "aadvantage",
		"mileageplus", "jetblue", "southwest", "alaska air", "hawaiian",
	},
	Hotel: {
		"hotel", "resort", "marriott", "bonvoy", "hilton", "honors", "hyatt",
		"ihg", "wyndham", "radisson", "choice privileges",
	},
	Cashback: {
		"cash back", "cashback", "cash-back", "cash rewards",
	},
	Dining: {
		"dining", "restaurant", "takeout", "food delivery", "doordash",
		"grubhub",
	},
	Groceries: {
		"grocery", "groceries", "supermarket", "wholesale club",
	},
	Gas: {
		"gas station", "gasoline", "fuel", "ev charging", " gas",
	},
	Business: {
		"business", "corporate", "llc", "sole proprietor",
	},
	Student: {
		"student", "college", "university", "campus",
	},
	Luxury: {
		"luxury", "platinum", "reserve", "prestige", "centurion", "concierge",
	},
}

// Classify maps free text to a category. The input is lower-cased and each
// category's keyword set is checked in precedence order; the first substring
// match wins. When nothing matches, text mentioning points or miles (but not
// cash back) is treated as Travel, and everything else is General.
func Classify(text string) Category {
	lower := strings.ToLower(text)

	for _, cat := range categoryOrder {
		for _, kw := range keywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}

	if strings.Contains(lower, "point") || strings.Contains(lower, "mile") {
		if !(strings.Contains(lower, "cash") && strings.Contains(lower, "back")) {
			return Travel
		}
	}

	return General
}

// IsKnownCategory reports whether label matches one of the fixed category
// labels, ignoring case.
func IsKnownCategory(label string) bool {
	for _, cat := range categoryOrder {
		if strings.EqualFold(label, string(cat)) {
			return true
		}
	}
	return strings.EqualFold(label, string(General))
}

// Standardize normalizes a raw category label. Exact (case-insensitive)
// matches map to the canonical label; otherwise a small set of alias rules
// is applied. Unrecognized labels are returned unchanged so user-meaningful
// labels are never destroyed.
func Standardize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, cat := range categoryOrder {
		if strings.EqualFold(trimmed, string(cat)) {
			return string(cat)
		}
	}
	if strings.EqualFold(trimmed, string(General)) {
		return string(General)
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "cash") &&
		(strings.Contains(lower, "back") || strings.Contains(lower, "reward")):
		return string(Cashback)
	case strings.Contains(lower, "travel"),
		strings.Contains(lower, "point"),
		strings.Contains(lower, "mile"):
		return string(Travel)
	case strings.Contains(lower, "airline"), strings.Contains(lower, "flight"):
		return string(Airline)
	case strings.Contains(lower, "hotel"), strings.Contains(lower, "resort"):
		return string(Hotel)
	case strings.Contains(lower, "dining"), strings.Contains(lower, "restaurant"):
		return string(Dining)
	case strings.Contains(lower, "grocer"), strings.Contains(lower, "supermarket"):
		return string(Groceries)
	case strings.Contains(lower, "gas"), strings.Contains(lower, "fuel"):
		return string(Gas)
	case strings.Contains(lower, "business"):
		return string(Business)
	case strings.Contains(lower, "student"):
		return string(Student)
	}

	return raw
}

// BonusInfo describes one bonus-earn category on a card, as needed for
// card-level classification.
type BonusInfo struct {
	Name        string
	Description string
	Multiplier  float64
}

// CardInfo carries the card fields consulted by CategorizeCard.
type CardInfo struct {
	Category    string
	Name        string
	Description string
	Issuer      string
	Bonus       []BonusInfo
}

// CategorizeCard derives a category for a whole card. Signals are applied in
// order until one yields a non-default result: the card's existing category
// if already standardized, the highest-multiplier bonus category, the
// combined bonus descriptions, the card's own name and description, and
// finally issuer-level Business/Student hints.
func CategorizeCard(info CardInfo) Category {
	if info.Category != "" && IsKnownCategory(info.Category) {
		std := Category(Standardize(info.Category))
		if std != General {
			return std
		}
	}

	if top := topBonus(info.Bonus); top != nil {
		if cat := Classify(top.Name + " " + top.Description); cat != General {
			return cat
		}
	}

	if len(info.Bonus) > 0 {
		var combined strings.Builder
		for _, b := range info.Bonus {
			combined.WriteString(b.Name)
			combined.WriteString(" ")
			combined.WriteString(b.Description)
			combined.WriteString(" ")
		}
		if cat := Classify(combined.String()); cat != General {
			return cat
		}
	}

	if cat := Classify(info.Name + " " + info.Description); cat != General {
		return cat
	}

	lowerIssuer := strings.ToLower(info.Issuer + " " + info.Name)
	if strings.Contains(lowerIssuer, "business") {
		return Business
	}
	if strings.Contains(lowerIssuer, "student") {
		return Student
	}

	return General
}

// topBonus returns the bonus category with the highest multiplier.
// Equal multipliers keep the earlier entry.
func topBonus(bonus []BonusInfo) *BonusInfo {
	if len(bonus) == 0 {
		return nil
	}
	idx := make([]int, len(bonus))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return bonus[idx[i]].Multiplier > bonus[idx[j]].Multiplier
	})
	return &bonus[idx[0]]
}
