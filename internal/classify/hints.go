package classify

import "strings"

// HintConfidence is the provider's own confidence tier for a structured
// category hint.
type HintConfidence string

const (
	ConfidenceVeryHigh HintConfidence = "VERY_HIGH"
	ConfidenceHigh     HintConfidence = "HIGH"
	ConfidenceMedium   HintConfidence = "MEDIUM"
	ConfidenceLow      HintConfidence = "LOW"
	ConfidenceUnknown  HintConfidence = "UNKNOWN"
)

// Hint is a structured provider category: a primary/detailed pair plus the
// provider's confidence tier.
type Hint struct {
	Primary    string
	Detailed   string
	Confidence HintConfidence
}

// usable reports whether the hint meets the minimum confidence tier for the
// hint layer. Hints below HIGH are skipped and fall through to keywords.
func (h Hint) usable() bool {
	return h.Confidence == ConfidenceVeryHigh || h.Confidence == ConfidenceHigh
}

// detailedHintMap resolves provider detailed categories that are more
// specific than their primary would suggest. Checked before primaryHintMap.
var detailedHintMap = map[string]Category{
	"FOOD_AND_DRINK_GROCERIES":                     Groceries,
	"FOOD_AND_DRINK_RESTAURANT":                    Restaurants,
	"FOOD_AND_DRINK_FAST_FOOD":                     Restaurants,
	"FOOD_AND_DRINK_COFFEE":                        Restaurants,
	"GENERAL_MERCHANDISE_SUPERSTORES":              Groceries,
	"TRANSPORTATION_GAS":                           Transport,
	"TRANSPORTATION_PUBLIC_TRANSIT":                Transport,
	"TRANSPORTATION_TAXIS_AND_RIDE_SHARES":         Transport,
	"TRAVEL_FLIGHTS":                               Travel,
	"TRAVEL_LODGING":                               Travel,
	"GENERAL_SERVICES_EDUCATION":                   Education,
	"MEDICAL_PHARMACIES_AND_SUPPLEMENTS":           Health,
	"ENTERTAINMENT_TV_AND_MOVIES":                  Entertainment,
	"ENTERTAINMENT_MUSIC_AND_AUDIO":                Entertainment,
	"RENT_AND_UTILITIES_RENT":                      Utilities,
	"RENT_AND_UTILITIES_INTERNET_AND_CABLE":        Utilities,
	"RENT_AND_UTILITIES_GAS_AND_ELECTRICITY":       Utilities,
	"TRANSFER_IN_CASH_ADVANCES_AND_LOANS":          BankTransfer,
	"TRANSFER_OUT_WITHDRAWALS":                     BankTransfer,
	"INCOME_WAGES":                                 Income,
	"INCOME_DIVIDENDS":                             Income,
	"GENERAL_MERCHANDISE_ONLINE_MARKETPLACES":      Shopping,
	"GENERAL_MERCHANDISE_CLOTHING_AND_ACCESSORIES": Shopping,
}

// primaryHintMap resolves provider primary categories.
var primaryHintMap = map[string]Category{
	"FOOD_AND_DRINK":            Restaurants,
	"GENERAL_MERCHANDISE":       Shopping,
	"TRANSPORTATION":            Transport,
	"TRAVEL":                    Travel,
	"RENT_AND_UTILITIES":        Utilities,
	"ENTERTAINMENT":             Entertainment,
	"MEDICAL":                   Health,
	"PERSONAL_CARE":             Health,
	"GENERAL_SERVICES":          Miscellaneous,
	"GOVERNMENT_AND_NON_PROFIT": Miscellaneous,
	"HOME_IMPROVEMENT":          Shopping,
	"INCOME":                    Income,
	"TRANSFER_IN":               BankTransfer,
	"TRANSFER_OUT":              BankTransfer,
	"LOAN_PAYMENTS":             BankTransfer,
	"BANK_FEES":                 Miscellaneous,
}

// matchHint maps a structured provider hint onto a canonical category.
// Detailed entries win over primary ones. ok is false when the hint is
// missing, below the confidence floor, or unmapped.
func matchHint(hint *Hint) (Category, bool) {
	if hint == nil || !hint.usable() {
		return Uncategorized, false
	}
	if c, ok := detailedHintMap[strings.ToUpper(strings.TrimSpace(hint.Detailed))]; ok {
		return c, true
	}
	if c, ok := primaryHintMap[strings.ToUpper(strings.TrimSpace(hint.Primary))]; ok {
		return c, true
	}
	return Uncategorized, false
}
