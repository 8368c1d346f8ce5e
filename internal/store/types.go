// Package store defines the document-store boundary for the pipeline. The
// stored document shapes carry ciphertext for every field the policy schema
// marks encrypted; the codec in this package is the single place where
// canonical records cross the plaintext/ciphertext line, transparently in
// both directions.
package store

import (
	"errors"
	"time"

	"github.com/nexpass/nexsync/internal/canonical"
)

var (
	// ErrStorageUnavailable indicates the document store could not be
	// reached. Fatal for the current operation; retrying is the caller's
	// policy, never this package's.
	ErrStorageUnavailable = errors.New("store: storage unavailable")

	// ErrNotFound indicates no document matched.
	ErrNotFound = errors.New("store: not found")
)

// TransactionDoc is a stored transaction: public fields in plaintext,
// sensitive fields as prefixed ciphertext strings. The pair
// (UserID, TransactionID-ciphertext) is unique; deterministic encryption
// keeps that constraint enforceable without decryption.
type TransactionDoc struct {
	ID string `bson:"_id"`

	canonical.TransactionPublic `bson:",inline"`

	TransactionID string `bson:"transactionId"`
	AccountID     string `bson:"accountId"`

	Amount           string  `bson:"amount"`
	Currency         string  `bson:"currency"`
	ValueDate        *string `bson:"valueDate,omitempty"`
	Description      *string `bson:"description,omitempty"`
	Counterparty     *string `bson:"counterparty,omitempty"`
	MerchantName     *string `bson:"merchantName,omitempty"`
	Location         *string `bson:"location,omitempty"`
	ProviderCategory *string `bson:"providerCategory,omitempty"`
	Raw              string  `bson:"raw,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// AccountDoc is a stored bank account.
type AccountDoc struct {
	ID string `bson:"_id"`

	canonical.AccountPublic `bson:",inline"`

	AccountID    string `bson:"accountId"`
	ConnectionID string `bson:"connectionId"`

	Name *string `bson:"name,omitempty"`
	IBAN *string `bson:"iban,omitempty"`
	Raw  string  `bson:"raw,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// BalanceDoc is a stored balance snapshot, one per
// (userId, accountId, balanceType).
type BalanceDoc struct {
	ID string `bson:"_id"`

	canonical.BalancePublic `bson:",inline"`

	AccountID string `bson:"accountId"`

	Amount   string `bson:"amount"`
	Currency string `bson:"currency"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ConnectionDoc is a stored bank link. AccessToken is always random
// ciphertext and is stripped before any document leaves an API surface.
type ConnectionDoc struct {
	ID string `bson:"_id"`

	canonical.ConnectionPublic `bson:",inline"`

	ConnectionID string `bson:"connectionId"`

	AccessToken string `bson:"accessToken,omitempty"`
	Raw         string `bson:"raw,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// UpsertResult reports whether an upsert inserted a new document or updated
// an existing one.
type UpsertResult struct {
	Inserted bool
}

// TransactionFieldUpdate carries a user correction at the stored-document
// level: values already encrypted where the policy requires it.
type TransactionFieldUpdate struct {
	Category     *string
	Exclude      *bool
	Description  *string
	Counterparty *string
}

// TransactionQuery filters stored transactions. Every predicate targets a
// plaintext field except AccountID, which is a deterministic-ciphertext
// equality; range predicates only ever apply to the plaintext booking date.
type TransactionQuery struct {
	UserID string

	AccountID string // deterministic ciphertext, equality only
	Category  string
	DateFrom  string // inclusive, YYYY-MM-DD
	DateTo    string // inclusive
	Month     string // YYYY-MM

	IncludeExcluded bool
	Limit           int64
}
