package store

import (
	"fmt"
	"time"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/fieldcipher"
	"github.com/nexpass/nexsync/internal/policy"
)

// Codec converts canonical records to stored documents and back, encrypting
// and decrypting per the policy schema. Every write path goes through a
// Seal* method and every read path through an Open* method; no other code
// touches ciphertext.
type Codec struct {
	cipher *fieldcipher.Cipher
}

// NewCodec wraps a field cipher in a policy-driven codec.
func NewCodec(c *fieldcipher.Cipher) *Codec {
	return &Codec{cipher: c}
}

// LookupKey encrypts a plaintext lookup value the same way the write path
// does, so callers can build equality filters against deterministic fields.
// The declared tier must be deterministic.
func (c *Codec) LookupKey(record policy.Record, field, value string) (string, error) {
	tier, err := policy.TierFor(record, field)
	if err != nil {
		return "", fmt.Errorf("LookupKey: %w", err)
	}
	if tier != policy.Deterministic {
		return "", fmt.Errorf("LookupKey: %s.%s is %s, not queryable by ciphertext equality", record, field, tier)
	}
	return c.cipher.Encrypt(value, fieldcipher.Deterministic)
}

func (c *Codec) seal(record policy.Record, field, value string) (string, error) {
	tier, err := policy.TierFor(record, field)
	if err != nil {
		return "", err
	}
	switch tier {
	case policy.Plaintext:
		return value, nil
	case policy.Deterministic:
		return c.cipher.Encrypt(value, fieldcipher.Deterministic)
	default:
		return c.cipher.Encrypt(value, fieldcipher.Random)
	}
}

func (c *Codec) sealOptional(record policy.Record, field string, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	out, err := c.seal(record, field, *value)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SealTransaction builds the stored form of a transaction. Any encryption
// failure aborts the whole record; a partially encrypted document is never
// produced.
func (c *Codec) SealTransaction(id string, pub canonical.TransactionPublic, sens canonical.TransactionSensitive, now time.Time) (*TransactionDoc, error) {
	doc := &TransactionDoc{
		ID:                id,
		TransactionPublic: pub,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var err error
	rec := policy.RecordTransaction
	if doc.TransactionID, err = c.seal(rec, "transactionId", sens.TransactionID); err != nil {
		return nil, fmt.Errorf("SealTransaction: transactionId: %w", err)
	}
	if doc.AccountID, err = c.seal(rec, "accountId", sens.AccountID); err != nil {
		return nil, fmt.Errorf("SealTransaction: accountId: %w", err)
	}
	if doc.Amount, err = c.seal(rec, "amount", sens.Amount); err != nil {
		return nil, fmt.Errorf("SealTransaction: amount: %w", err)
	}
	if doc.Currency, err = c.seal(rec, "currency", sens.Currency); err != nil {
		return nil, fmt.Errorf("SealTransaction: currency: %w", err)
	}
	if doc.ValueDate, err = c.sealOptional(rec, "valueDate", sens.ValueDate); err != nil {
		return nil, fmt.Errorf("SealTransaction: valueDate: %w", err)
	}
	if doc.Description, err = c.sealOptional(rec, "description", sens.Description); err != nil {
		return nil, fmt.Errorf("SealTransaction: description: %w", err)
	}
	if doc.Counterparty, err = c.sealOptional(rec, "counterparty", sens.Counterparty); err != nil {
		return nil, fmt.Errorf("SealTransaction: counterparty: %w", err)
	}
	if doc.MerchantName, err = c.sealOptional(rec, "merchantName", sens.MerchantName); err != nil {
		return nil, fmt.Errorf("SealTransaction: merchantName: %w", err)
	}
	if doc.Location, err = c.sealOptional(rec, "location", sens.Location); err != nil {
		return nil, fmt.Errorf("SealTransaction: location: %w", err)
	}
	if doc.ProviderCategory, err = c.sealOptional(rec, "providerCategory", sens.ProviderCategory); err != nil {
		return nil, fmt.Errorf("SealTransaction: providerCategory: %w", err)
	}
	if doc.Raw, err = c.seal(rec, "raw", sens.Raw); err != nil {
		return nil, fmt.Errorf("SealTransaction: raw: %w", err)
	}
	return doc, nil
}

// OpenTransaction decrypts a stored transaction into its read-side view.
func (c *Codec) OpenTransaction(doc *TransactionDoc) (*canonical.Transaction, error) {
	out := &canonical.Transaction{
		ID:                doc.ID,
		TransactionPublic: doc.TransactionPublic,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}

	var err error
	s := &out.TransactionSensitive
	if s.TransactionID, err = c.cipher.Decrypt(doc.TransactionID); err != nil {
		return nil, fmt.Errorf("OpenTransaction: transactionId: %w", err)
	}
	if s.AccountID, err = c.cipher.Decrypt(doc.AccountID); err != nil {
		return nil, fmt.Errorf("OpenTransaction: accountId: %w", err)
	}
	if s.Amount, err = c.cipher.Decrypt(doc.Amount); err != nil {
		return nil, fmt.Errorf("OpenTransaction: amount: %w", err)
	}
	if s.Currency, err = c.cipher.Decrypt(doc.Currency); err != nil {
		return nil, fmt.Errorf("OpenTransaction: currency: %w", err)
	}
	if s.ValueDate, err = c.cipher.DecryptOptional(doc.ValueDate); err != nil {
		return nil, fmt.Errorf("OpenTransaction: valueDate: %w", err)
	}
	if s.Description, err = c.cipher.DecryptOptional(doc.Description); err != nil {
		return nil, fmt.Errorf("OpenTransaction: description: %w", err)
	}
	if s.Counterparty, err = c.cipher.DecryptOptional(doc.Counterparty); err != nil {
		return nil, fmt.Errorf("OpenTransaction: counterparty: %w", err)
	}
	if s.MerchantName, err = c.cipher.DecryptOptional(doc.MerchantName); err != nil {
		return nil, fmt.Errorf("OpenTransaction: merchantName: %w", err)
	}
	if s.Location, err = c.cipher.DecryptOptional(doc.Location); err != nil {
		return nil, fmt.Errorf("OpenTransaction: location: %w", err)
	}
	if s.ProviderCategory, err = c.cipher.DecryptOptional(doc.ProviderCategory); err != nil {
		return nil, fmt.Errorf("OpenTransaction: providerCategory: %w", err)
	}
	if s.Raw, err = c.cipher.Decrypt(doc.Raw); err != nil {
		return nil, fmt.Errorf("OpenTransaction: raw: %w", err)
	}
	return out, nil
}

// SealTransactionUpdate encrypts the free-text members of a user correction.
// Category and Exclude are plaintext per the schema and pass through.
func (c *Codec) SealTransactionUpdate(upd canonical.TransactionUpdate) (TransactionFieldUpdate, error) {
	out := TransactionFieldUpdate{
		Category: upd.Category,
		Exclude:  upd.Exclude,
	}
	var err error
	if out.Description, err = c.sealOptional(policy.RecordTransaction, "description", upd.Description); err != nil {
		return out, fmt.Errorf("SealTransactionUpdate: description: %w", err)
	}
	if out.Counterparty, err = c.sealOptional(policy.RecordTransaction, "counterparty", upd.Counterparty); err != nil {
		return out, fmt.Errorf("SealTransactionUpdate: counterparty: %w", err)
	}
	return out, nil
}

// SealAccount builds the stored form of an account record.
func (c *Codec) SealAccount(id string, pub canonical.AccountPublic, sens canonical.AccountSensitive, now time.Time) (*AccountDoc, error) {
	doc := &AccountDoc{
		ID:            id,
		AccountPublic: pub,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var err error
	rec := policy.RecordAccount
	if doc.AccountID, err = c.seal(rec, "accountId", sens.AccountID); err != nil {
		return nil, fmt.Errorf("SealAccount: accountId: %w", err)
	}
	if doc.ConnectionID, err = c.seal(rec, "connectionId", sens.ConnectionID); err != nil {
		return nil, fmt.Errorf("SealAccount: connectionId: %w", err)
	}
	if doc.Name, err = c.sealOptional(rec, "name", sens.Name); err != nil {
		return nil, fmt.Errorf("SealAccount: name: %w", err)
	}
	if doc.IBAN, err = c.sealOptional(rec, "iban", sens.IBAN); err != nil {
		return nil, fmt.Errorf("SealAccount: iban: %w", err)
	}
	if doc.Raw, err = c.seal(rec, "raw", sens.Raw); err != nil {
		return nil, fmt.Errorf("SealAccount: raw: %w", err)
	}
	return doc, nil
}

// OpenAccount decrypts a stored account into its read-side view.
func (c *Codec) OpenAccount(doc *AccountDoc) (*canonical.Account, error) {
	out := &canonical.Account{
		ID:            doc.ID,
		AccountPublic: doc.AccountPublic,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	var err error
	s := &out.AccountSensitive
	if s.AccountID, err = c.cipher.Decrypt(doc.AccountID); err != nil {
		return nil, fmt.Errorf("OpenAccount: accountId: %w", err)
	}
	if s.ConnectionID, err = c.cipher.Decrypt(doc.ConnectionID); err != nil {
		return nil, fmt.Errorf("OpenAccount: connectionId: %w", err)
	}
	if s.Name, err = c.cipher.DecryptOptional(doc.Name); err != nil {
		return nil, fmt.Errorf("OpenAccount: name: %w", err)
	}
	if s.IBAN, err = c.cipher.DecryptOptional(doc.IBAN); err != nil {
		return nil, fmt.Errorf("OpenAccount: iban: %w", err)
	}
	if s.Raw, err = c.cipher.Decrypt(doc.Raw); err != nil {
		return nil, fmt.Errorf("OpenAccount: raw: %w", err)
	}
	return out, nil
}

// SealBalance builds the stored form of a balance snapshot.
func (c *Codec) SealBalance(id string, pub canonical.BalancePublic, sens canonical.BalanceSensitive, now time.Time) (*BalanceDoc, error) {
	doc := &BalanceDoc{
		ID:            id,
		BalancePublic: pub,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var err error
	rec := policy.RecordBalance
	if doc.AccountID, err = c.seal(rec, "accountId", sens.AccountID); err != nil {
		return nil, fmt.Errorf("SealBalance: accountId: %w", err)
	}
	if doc.Amount, err = c.seal(rec, "amount", sens.Amount); err != nil {
		return nil, fmt.Errorf("SealBalance: amount: %w", err)
	}
	if doc.Currency, err = c.seal(rec, "currency", sens.Currency); err != nil {
		return nil, fmt.Errorf("SealBalance: currency: %w", err)
	}
	return doc, nil
}

// OpenBalance decrypts a stored balance snapshot.
func (c *Codec) OpenBalance(doc *BalanceDoc) (*canonical.Balance, error) {
	out := &canonical.Balance{
		ID:            doc.ID,
		BalancePublic: doc.BalancePublic,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	var err error
	s := &out.BalanceSensitive
	if s.AccountID, err = c.cipher.Decrypt(doc.AccountID); err != nil {
		return nil, fmt.Errorf("OpenBalance: accountId: %w", err)
	}
	if s.Amount, err = c.cipher.Decrypt(doc.Amount); err != nil {
		return nil, fmt.Errorf("OpenBalance: amount: %w", err)
	}
	if s.Currency, err = c.cipher.Decrypt(doc.Currency); err != nil {
		return nil, fmt.Errorf("OpenBalance: currency: %w", err)
	}
	return out, nil
}

// SealConnection builds the stored form of a bank link.
func (c *Codec) SealConnection(id string, pub canonical.ConnectionPublic, sens canonical.ConnectionSensitive, now time.Time) (*ConnectionDoc, error) {
	doc := &ConnectionDoc{
		ID:               id,
		ConnectionPublic: pub,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var err error
	rec := policy.RecordConnection
	if doc.ConnectionID, err = c.seal(rec, "connectionId", sens.ConnectionID); err != nil {
		return nil, fmt.Errorf("SealConnection: connectionId: %w", err)
	}
	if doc.AccessToken, err = c.seal(rec, "accessToken", sens.AccessToken); err != nil {
		return nil, fmt.Errorf("SealConnection: accessToken: %w", err)
	}
	if doc.Raw, err = c.seal(rec, "raw", sens.Raw); err != nil {
		return nil, fmt.Errorf("SealConnection: raw: %w", err)
	}
	return doc, nil
}

// OpenConnection decrypts a stored bank link.
func (c *Codec) OpenConnection(doc *ConnectionDoc) (*canonical.Connection, error) {
	out := &canonical.Connection{
		ID:               doc.ID,
		ConnectionPublic: doc.ConnectionPublic,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}

	var err error
	s := &out.ConnectionSensitive
	if s.ConnectionID, err = c.cipher.Decrypt(doc.ConnectionID); err != nil {
		return nil, fmt.Errorf("OpenConnection: connectionId: %w", err)
	}
	if s.AccessToken, err = c.cipher.Decrypt(doc.AccessToken); err != nil {
		return nil, fmt.Errorf("OpenConnection: accessToken: %w", err)
	}
	if s.Raw, err = c.cipher.Decrypt(doc.Raw); err != nil {
		return nil, fmt.Errorf("OpenConnection: raw: %w", err)
	}
	return out, nil
}
