package cards

// SampleCatalog returns the built-in sample card set used when the remote
// API is unreachable and nothing is cached. The IDs are real catalog keys
// so that a later successful refresh replaces these rows cleanly.
func SampleCatalog() []CardSummary {
	return []CardSummary{
		{
			ID:          "chase-sapphirepreferred",
			Name:        "Chase Sapphire Preferred",
			Issuer:      "Chase",
			Category:    "Travel",
			Description: "2x points on travel and dining, 60,000 point signup bonus",
			AnnualFee:   95,
			SignupBonus: 60000,
			APR:         "21.49% - 28.49% Variable",
		},
		{
			ID:          "chase-freedomunlimited",
			Name:        "Chase Freedom Unlimited",
			Issuer:      "Chase",
			Category:    "Cashback",
			Description: "1.5% cash back on all purchases",
			AnnualFee:   0,
			SignupBonus: 200,
			APR:         "20.49% - 29.24% Variable",
		},
		{
			ID:          "amex-gold",
			Name:        "American Express Gold Card",
			Issuer:      "American Express",
			Category:    "Dining",
			Description: "4x points at restaurants and U.S. supermarkets",
			AnnualFee:   250,
			SignupBonus: 60000,
			APR:         "See Pay Over Time APR",
		},
		{
			ID:          "amex-platinum",
			Name:        "The Platinum Card",
			Issuer:      "American Express",
			Category:    "Luxury",
			Description: "5x points on flights, lounge access, hotel credits",
			AnnualFee:   695,
			SignupBonus: 80000,
			APR:         "See Pay Over Time APR",
		},
		{
			ID:          "capitalone-ventureone",
			Name:        "Capital One VentureOne",
			Issuer:      "Capital One",
			Category:    "Travel",
			Description: "1.25x miles on every purchase, no annual fee",
			AnnualFee:   0,
			SignupBonus: 20000,
			APR:         "19.99% - 29.99% Variable",
		},
		{
			ID:          "citi-doublecash",
			Name:        "Citi Double Cash",
			Issuer:      "Citi",
			Category:    "Cashback",
			Description: "2% cash back: 1% when you buy, 1% when you pay",
			AnnualFee:   0,
			SignupBonus: 200,
			APR:         "19.24% - 29.24% Variable",
		},
		{
			ID:          "discover-it",
			Name:        "Discover it Cash Back",
			Issuer:      "Discover",
			Category:    "Cashback",
			Description: "5% cash back in rotating quarterly categories",
			AnnualFee:   0,
			SignupBonus: 0,
			APR:         "17.24% - 28.24% Variable",
		},
		{
			ID:          "boa-customizedcash",
			Name:        "Bank of America Customized Cash Rewards",
			Issuer:      "Bank of America",
			Category:    "Gas",
			Description: "3% cash back in a category of your choice including gas",
			AnnualFee:   0,
			SignupBonus: 200,
			APR:         "19.24% - 29.24% Variable",
		},
	}
}
