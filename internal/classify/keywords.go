package classify

import "strings"

// keywordRule associates an ordered keyword set with a category.
type keywordRule struct {
	category Category
	keywords []string
}

// keywordRules is evaluated top to bottom; the first rule with any matching
// keyword wins. Overlapping keywords ("market", "gas") are resolved purely by
// this order, not by specificity, so the order is part of the contract:
// groceries before dining before shopping, transfers last.
var keywordRules = []keywordRule{
	{Groceries, []string{
		"grocery", "groceries", "supermarket", "market", "aldi", "lidl",
		"tesco", "sainsbury", "waitrose", "asda", "morrisons", "carrefour",
		"rewe", "edeka",
	}},
	{Restaurants, []string{
		"restaurant", "cafe", "coffee", "mcdonald", "starbucks", "burger",
		"pizza", "takeaway", "deliveroo", "uber eats", "just eat", "kfc",
		"subway", "bakery",
	}},
	{Transport, []string{
		"uber", "taxi", "bolt", "fuel", "petrol", "gas", "parking", "train",
		"railway", "rail", "tfl", "metro", "tram", "bus",
	}},
	{Travel, []string{
		"airline", "flight", "hotel", "airbnb", "booking.com", "ryanair",
		"easyjet", "lufthansa", "expedia", "hostel",
	}},
	{Shopping, []string{
		"amazon", "store", "shopping", "mall", "zara", "h&m", "ikea",
		"ebay", "zalando", "decathlon",
	}},
	{Utilities, []string{
		"electric", "electricity", "water", "internet", "broadband", "rent",
		"vodafone", "o2", "telekom", "phone", "utility", "council tax",
	}},
	{Entertainment, []string{
		"netflix", "spotify", "cinema", "entertainment", "steam",
		"playstation", "xbox", "disney", "concert", "theatre",
	}},
	{Health, []string{
		"pharmacy", "doctor", "dental", "dentist", "hospital", "clinic",
		"gym", "fitness", "boots", "optician",
	}},
	{Education, []string{
		"tuition", "school", "university", "college", "udemy", "coursera",
		"course", "textbook",
	}},
	{Income, []string{
		"salary", "payroll", "wages", "income", "dividend", "refund",
	}},
	{BankTransfer, []string{
		"transfer", "atm", "withdrawal", "cash", "standing order", "revolut",
	}},
}

// matchKeywords runs the ordered keyword table over the lower-cased
// concatenation of description and counterparty. ok is false when no rule
// matched.
func matchKeywords(description, counterparty string) (Category, bool) {
	text := strings.ToLower(description + " " + counterparty)
	if strings.TrimSpace(text) == "" {
		return Uncategorized, false
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category, true
			}
		}
	}
	return Uncategorized, false
}
