package gocardless

import (
	"context"

	"github.com/nexpass/nexsync/internal/providers"
)

// Sync adapts the API client to the provider-agnostic sync boundary.
type Sync struct {
	client *Client
}

// NewSync wraps a Client.
func NewSync(client *Client) *Sync {
	return &Sync{client: client}
}

func (s *Sync) Provider() string { return ProviderName }

func (s *Sync) Transactions(ctx context.Context, accountID, dateFrom string) ([]providers.TransactionSource, error) {
	txs, err := s.client.Transactions(ctx, accountID, dateFrom)
	if err != nil {
		return nil, err
	}
	out := make([]providers.TransactionSource, len(txs))
	for i := range txs {
		out[i] = &txs[i]
	}
	return out, nil
}

func (s *Sync) Balances(ctx context.Context, accountID string) ([]providers.BalanceSource, error) {
	balances, err := s.client.Balances(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]providers.BalanceSource, len(balances))
	for i := range balances {
		out[i] = &balances[i]
	}
	return out, nil
}
