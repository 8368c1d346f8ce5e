package classify

import (
	"context"
	"strings"
)

// RemoteRequest is one transaction sent to the external text-classification
// service. All values are plaintext; the remote tier runs before encryption
// like every other tier.
type RemoteRequest struct {
	Description string
	Merchant    string
	Amount      string
	Currency    string
}

// RemoteClassifier is the external classification service boundary. The
// response is a free-text category string per request, parallel to the
// input slice. Implementations must honor the context deadline. There is no
// retry; a failed call degrades the whole batch.
type RemoteClassifier interface {
	ClassifyBatch(ctx context.Context, reqs []RemoteRequest) ([]string, error)
}

// labelSynonym matches a fragment of the remote service's free-text answer
// to a canonical category. Evaluated in order.
type labelSynonym struct {
	fragment string
	category Category
}

var labelSynonyms = []labelSynonym{
	{"grocer", Groceries},
	{"supermarket", Groceries},
	{"restaurant", Restaurants},
	{"dining", Restaurants},
	{"food", Restaurants},
	{"transport", Transport},
	{"transit", Transport},
	{"commut", Transport},
	{"travel", Travel},
	{"vacation", Travel},
	{"shopping", Shopping},
	{"merchandise", Shopping},
	{"retail", Shopping},
	{"utilit", Utilities},
	{"rent", Utilities},
	{"entertain", Entertainment},
	{"subscript", Entertainment},
	{"health", Health},
	{"medical", Health},
	{"pharma", Health},
	{"educat", Education},
	{"tuition", Education},
	{"income", Income},
	{"salary", Income},
	{"payroll", Income},
	{"transfer", BankTransfer},
	{"withdrawal", BankTransfer},
	{"atm", BankTransfer},
	{"misc", Miscellaneous},
	{"other", Miscellaneous},
}

// MatchLabel maps a free-text category string from the remote service back
// onto the canonical label set. Exact canonical labels pass through; anything
// else goes through the synonym table; no match yields Uncategorized.
func MatchLabel(freeText string) Category {
	s := strings.TrimSpace(freeText)
	if s == "" {
		return Uncategorized
	}
	for _, c := range All() {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	lower := strings.ToLower(s)
	for _, syn := range labelSynonyms {
		if strings.Contains(lower, syn.fragment) {
			return syn.category
		}
	}
	return Uncategorized
}
