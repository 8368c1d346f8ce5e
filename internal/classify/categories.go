// Package classify maps transactions to canonical spending categories via an
// ordered fallback chain: provider category hint, keyword heuristics, then a
// remote text classifier. Classification always operates on plaintext and
// must therefore run before any field encryption.
package classify

// Category is a canonical spending category label. The set is fixed; both
// the provider-hint map and the keyword table resolve into it, and the remote
// classifier's free-text answers are synonym-matched back onto it.
type Category string

const (
	Groceries     Category = "Groceries"
	Restaurants   Category = "Restaurants"
	Transport     Category = "Transport"
	Travel        Category = "Travel"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	Education     Category = "Education"
	Income        Category = "Income"
	BankTransfer  Category = "Bank Transfer"
	Miscellaneous Category = "Miscellaneous"
	Uncategorized Category = "Uncategorized"
)

// All lists every canonical category, in display order.
func All() []Category {
	return []Category{
		Groceries, Restaurants, Transport, Travel, Shopping, Utilities,
		Entertainment, Health, Education, Income, BankTransfer,
		Miscellaneous, Uncategorized,
	}
}

// Valid reports whether s is exactly a canonical label.
func Valid(s string) bool {
	for _, c := range All() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Tier records which layer of the fallback chain resolved a category.
type Tier string

const (
	// TierHint means the provider's structured category hint resolved it.
	TierHint Tier = "hint"
	// TierKeyword means the keyword heuristics resolved it.
	TierKeyword Tier = "keyword"
	// TierRemote means the external text classifier resolved it.
	TierRemote Tier = "remote"
	// TierDefault means a default rule applied (positive amount → Income,
	// or nothing matched at all).
	TierDefault Tier = "default"
)
