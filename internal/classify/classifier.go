package classify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Input carries the plaintext signals available for classifying one
// transaction.
type Input struct {
	Description  string
	Counterparty string
	Amount       decimal.Decimal
	Currency     string

	// Hint is the provider's structured category, when it supplied one.
	Hint *Hint
}

// Result is a resolved classification plus the tier that produced it.
type Result struct {
	Category Category
	Tier     Tier
}

// Classifier resolves a category through the ordered fallback chain. The
// remote classifier is optional; without one the chain ends at the keyword
// tier and unmatched records surface an error for the caller to handle.
type Classifier struct {
	remote RemoteClassifier
}

// New creates a Classifier. remote may be nil.
func New(remote RemoteClassifier) *Classifier {
	return &Classifier{remote: remote}
}

// Classify runs the chain: provider hint, keyword heuristics, amount-sign
// default, then the remote service. First match wins.
//
// Errors are returned, not swallowed: when the remote tier fails or nothing
// matches at all, the result is (Uncategorized, TierDefault/TierRemote, err)
// and the caller decides whether to degrade to Uncategorized or abort. A
// transaction is never blocked on classification alone.
func (c *Classifier) Classify(ctx context.Context, in Input) (Result, error) {
	if cat, ok := matchHint(in.Hint); ok {
		return Result{Category: cat, Tier: TierHint}, nil
	}

	if cat, ok := matchKeywords(in.Description, in.Counterparty); ok {
		return Result{Category: cat, Tier: TierKeyword}, nil
	}

	// Positive amounts with no keyword match are income by default.
	if in.Amount.Sign() > 0 {
		return Result{Category: Income, Tier: TierDefault}, nil
	}

	if c.remote == nil {
		return Result{Category: Uncategorized, Tier: TierDefault},
			fmt.Errorf("classify: no tier matched and no remote classifier configured")
	}

	labels, err := c.remote.ClassifyBatch(ctx, []RemoteRequest{{
		Description: in.Description,
		Merchant:    in.Counterparty,
		Amount:      in.Amount.String(),
		Currency:    in.Currency,
	}})
	if err != nil {
		return Result{Category: Uncategorized, Tier: TierRemote},
			fmt.Errorf("classify: remote classifier: %w", err)
	}
	if len(labels) != 1 {
		return Result{Category: Uncategorized, Tier: TierRemote},
			fmt.Errorf("classify: remote classifier returned %d labels, want 1", len(labels))
	}
	return Result{Category: MatchLabel(labels[0]), Tier: TierRemote}, nil
}
