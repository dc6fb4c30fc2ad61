package rewardsapi

// Card is one element of the GET /cards listing.
type Card struct {
	CardKey               string  `json:"cardKey"`
	CardName              string  `json:"cardName"`
	CardIssuer            string  `json:"cardIssuer"`
	SpendType             string  `json:"spendType"`
	EarnMultiplier        Value   `json:"earnMultiplier"`
	EarnMultiplierValue   float64 `json:"earnMultiplierValue"`
	SpendBonusDesc        string  `json:"spendBonusDesc"`
	LimitBeginDate        string  `json:"limitBeginDate"`
	LimitEndDate          string  `json:"limitEndDate"`
	IsSpendLimit          int     `json:"isSpendLimit"`
	SpendLimit            float64 `json:"spendLimit"`
	SpendLimitResetPeriod string  `json:"spendLimitResetPeriod"`
}

// Multiplier returns the card's effective earn multiplier, preferring the
// numeric field and falling back to the loosely typed one.
func (c Card) Multiplier() float64 {
	if c.EarnMultiplierValue != 0 {
		return c.EarnMultiplierValue
	}
	if f, ok := c.EarnMultiplier.Float64(); ok {
		return f
	}
	return 0
}

// BenefitRecord is one entry of a detail record's benefit list.
type BenefitRecord struct {
	BenefitTitle string `json:"benefitTitle"`
	BenefitDesc  string `json:"benefitDesc"`
}

// SpendBonusRecord is one entry of a detail record's bonus-category list.
type SpendBonusRecord struct {
	SpendBonusCategoryGroup string  `json:"spendBonusCategoryGroup"`
	SpendBonusCategoryName  string  `json:"spendBonusCategoryName"`
	EarnMultiplier          float64 `json:"earnMultiplier"`
	SpendBonusDesc          string  `json:"spendBonusDesc"`
}

// CardDetailRecord is one element of the GET /creditcard-detail-bycard
// response. The endpoint returns a single-element array.
type CardDetailRecord struct {
	CardKey            string             `json:"cardKey"`
	CardName           string             `json:"cardName"`
	CardIssuer         string             `json:"cardIssuer"`
	CardNetwork        string             `json:"cardNetwork"`
	CardType           string             `json:"cardType"`
	CreditRange        string             `json:"creditRange"`
	CardURL            string             `json:"cardUrl"`
	AnnualFee          float64            `json:"annualFee"`
	BaseSpendAmount    float64            `json:"baseSpendAmount"`
	BaseSpendEarnType  string             `json:"baseSpendEarnType"`
	AprDesc            string             `json:"aprDesc"`
	SignupBonusAmount  string             `json:"signupBonusAmount"`
	SignupBonusType    string             `json:"signupBonusType"`
	SignupBonusDesc    string             `json:"signupBonusDesc"`
	SignupReqSpend     float64            `json:"signupReqSpend"`
	SignupSpendLength  float64            `json:"signupSpendLength"`
	CardDescription    string             `json:"cardDescription"`
	IsLoungeAccess     int                `json:"isLoungeAccess"`
	IsFreeHotelNight   int                `json:"isFreeHotelNight"`
	IsGlobalEntry      int                `json:"isGlobalEntry"`
	Benefits           []BenefitRecord    `json:"benefit"`
	SpendBonusCategory []SpendBonusRecord `json:"spendBonusCategory"`
}

// SearchResult is one element of the GET /creditcard-detail-namesearch
// response.
type SearchResult struct {
	CardKey    string `json:"cardKey"`
	CardIssuer string `json:"cardIssuer"`
	CardName   string `json:"cardName"`
}

// CardImage is the GET /creditcard-card-image payload. The endpoint is
// inconsistent upstream and returns either an array or a bare object.
type CardImage struct {
	CardKey      string `json:"cardKey"`
	CardName     string `json:"cardName"`
	CardImageURL string `json:"cardImageUrl"`
}
