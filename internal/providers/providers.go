// Package providers defines the boundary between provider-native payloads
// and the canonical record shapes. Each provider package exposes concrete
// payload structs that normalize themselves; the ingestion engine only ever
// sees these interfaces and never probes payload fields reflectively.
package providers

import (
	"context"
	"errors"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/classify"
)

// ErrNormalization wraps any payload-to-canonical failure (missing ids,
// unparsable amounts). Records failing normalization are skipped with the
// batch continuing.
var ErrNormalization = errors.New("providers: normalization failed")

// NormalizedTransaction is a provider transaction converted to canonical
// form, already split along the plaintext/encrypted boundary, plus the
// structured category hint when the provider supplied one.
type NormalizedTransaction struct {
	Public    canonical.TransactionPublic
	Sensitive canonical.TransactionSensitive
	Hint      *classify.Hint
}

// TransactionSource is a provider-native transaction payload.
type TransactionSource interface {
	// Provider returns the upstream provider identifier.
	Provider() string

	// NormalizeTransaction converts the payload into canonical form for
	// the given owner and account. Date derivation, counterparty
	// resolution and truncation all happen here, before any encryption.
	NormalizeTransaction(userID, accountID string) (NormalizedTransaction, error)
}

// NormalizedBalance is a provider balance snapshot in canonical form.
type NormalizedBalance struct {
	Public    canonical.BalancePublic
	Sensitive canonical.BalanceSensitive
}

// BalanceSource is a provider-native balance payload.
type BalanceSource interface {
	Provider() string
	NormalizeBalance(userID, accountID string) (NormalizedBalance, error)
}

// NormalizedAccount is a provider account in canonical form.
type NormalizedAccount struct {
	Public    canonical.AccountPublic
	Sensitive canonical.AccountSensitive
}

// AccountSource is a provider-native account payload.
type AccountSource interface {
	Provider() string
	NormalizeAccount(userID, connectionID string) (NormalizedAccount, error)
}

// NormalizedConnection is a provider bank link in canonical form.
type NormalizedConnection struct {
	Public    canonical.ConnectionPublic
	Sensitive canonical.ConnectionSensitive
}

// ConnectionSource is a provider-native bank-link payload (requisition or
// item, depending on the provider).
type ConnectionSource interface {
	Provider() string
	NormalizeConnection(userID string) (NormalizedConnection, error)
}

// SyncClient fetches live payloads from a provider for one account at a
// time. dateFrom bounds the transaction window (inclusive); an empty value
// asks for full history. Overlapping windows are safe because ingestion is
// idempotent.
type SyncClient interface {
	Provider() string
	Transactions(ctx context.Context, accountID, dateFrom string) ([]TransactionSource, error)
	Balances(ctx context.Context, accountID string) ([]BalanceSource, error)
}
