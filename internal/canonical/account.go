package canonical

import "time"

// AccountPublic holds the plaintext fields of a bank account record.
type AccountPublic struct {
	UserID        string `bson:"userId" json:"userId"`
	InstitutionID string `bson:"institutionId,omitempty" json:"institutionId,omitempty"`
	Currency      string `bson:"currency,omitempty" json:"currency,omitempty"`
	Status        string `bson:"status,omitempty" json:"status,omitempty"`
}

// AccountSensitive holds the encrypted fields of a bank account record.
// AccountID and ConnectionID are deterministic lookup keys.
type AccountSensitive struct {
	AccountID    string
	ConnectionID string

	Name *string
	IBAN *string
	Raw  string
}

// Account is the decrypted read-side view of a stored account.
type Account struct {
	ID string `bson:"_id" json:"id"`
	AccountPublic
	AccountSensitive

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// BalancePublic holds the plaintext fields of a balance snapshot. One
// snapshot exists per (accountId, balanceType); ReferenceDate moves forward
// as the provider refreshes it.
type BalancePublic struct {
	UserID        string `bson:"userId" json:"userId"`
	BalanceType   string `bson:"balanceType" json:"balanceType"`
	ReferenceDate string `bson:"referenceDate,omitempty" json:"referenceDate,omitempty"`
}

// BalanceSensitive holds the encrypted fields of a balance snapshot.
type BalanceSensitive struct {
	AccountID string

	Amount   string
	Currency string
}

// Balance is the decrypted read-side view of a stored balance snapshot.
type Balance struct {
	ID string `bson:"_id" json:"id"`
	BalancePublic
	BalanceSensitive

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ConnectionPublic holds the plaintext fields of a bank link.
type ConnectionPublic struct {
	UserID        string `bson:"userId" json:"userId"`
	InstitutionID string `bson:"institutionId,omitempty" json:"institutionId,omitempty"`
	Status        string `bson:"status,omitempty" json:"status,omitempty"`
}

// ConnectionSensitive holds the encrypted fields of a bank link. AccessToken
// is the provider's long-lived credential: always randomly encrypted, never
// logged, never returned by an API surface.
type ConnectionSensitive struct {
	ConnectionID string

	AccessToken string
	Raw         string
}

// Connection is the decrypted read-side view of a stored bank link.
type Connection struct {
	ID string `bson:"_id" json:"id"`
	ConnectionPublic
	ConnectionSensitive

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
