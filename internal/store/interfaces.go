package store

import "context"

// TransactionStore persists transaction documents. Upsert is keyed by
// (userId, transactionId-ciphertext): re-ingesting the same provider
// transaction updates the existing document instead of inserting a second
// one.
type TransactionStore interface {
	// Upsert inserts or replaces the document matching the key fields.
	// Category and Exclude of an existing document survive the update so a
	// re-sync never clobbers user corrections.
	Upsert(ctx context.Context, doc *TransactionDoc) (UpsertResult, error)

	// FindByKey returns the document for (userID, transactionID ciphertext),
	// or ErrNotFound.
	FindByKey(ctx context.Context, userID, transactionID string) (*TransactionDoc, error)

	// UpdateUserFields applies a user correction to the document with the
	// given _id, or returns ErrNotFound.
	UpdateUserFields(ctx context.Context, userID, docID string, upd TransactionFieldUpdate) error

	// List returns documents matching the query, newest booking date first.
	List(ctx context.Context, q TransactionQuery) ([]*TransactionDoc, error)

	// LastBookingDate returns the most recent plaintext booking date stored
	// for an account, or "" when the account has no transactions yet. Drives
	// incremental sync windows.
	LastBookingDate(ctx context.Context, userID, accountID string) (string, error)

	// DeleteByAccount removes every transaction of an account and reports
	// how many documents went away.
	DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error)
}

// AccountStore persists account documents, keyed by
// (userId, accountId-ciphertext).
type AccountStore interface {
	Upsert(ctx context.Context, doc *AccountDoc) (UpsertResult, error)
	ListByUser(ctx context.Context, userID string) ([]*AccountDoc, error)
	ListByConnection(ctx context.Context, userID, connectionID string) ([]*AccountDoc, error)
	Delete(ctx context.Context, userID, accountID string) error
}

// BalanceStore persists balance snapshots, keyed by
// (userId, accountId-ciphertext, balanceType). A provider refresh moves the
// snapshot forward in place; history is not kept.
type BalanceStore interface {
	Upsert(ctx context.Context, doc *BalanceDoc) (UpsertResult, error)
	ListByAccount(ctx context.Context, userID, accountID string) ([]*BalanceDoc, error)
	DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error)
}

// ConnectionStore persists bank links, keyed by
// (userId, connectionId-ciphertext).
type ConnectionStore interface {
	Upsert(ctx context.Context, doc *ConnectionDoc) (UpsertResult, error)
	ListByUser(ctx context.Context, userID string) ([]*ConnectionDoc, error)
	ListByStatus(ctx context.Context, status string) ([]*ConnectionDoc, error)
	Delete(ctx context.Context, userID, connectionID string) error
}

// Store bundles the per-record stores behind one handle.
type Store interface {
	Transactions() TransactionStore
	Accounts() AccountStore
	Balances() BalanceStore
	Connections() ConnectionStore
}
