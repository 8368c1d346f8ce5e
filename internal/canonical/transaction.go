// Package canonical defines the provider-agnostic record shapes produced by
// the normalizers. Each record type is split into a public half (stored as
// plaintext, used for filtering/grouping) and a sensitive half (encrypted
// before persistence), mirroring the policy schema.
package canonical

import "time"

// TransactionPublic holds the plaintext fields of a transaction.
type TransactionPublic struct {
	UserID string `bson:"userId" json:"userId"`

	// BookingDate is the authoritative booking date in YYYY-MM-DD form.
	// BookingMonth/BookingYear/BookingWeekday are derived from it exactly
	// once at normalization time; when the provider date is unparsable all
	// three derived fields are absent and the record still ingests.
	BookingDate    string `bson:"bookingDate,omitempty" json:"bookingDate,omitempty"`
	BookingMonth   string `bson:"bookingMonth,omitempty" json:"bookingMonth,omitempty"`
	BookingYear    int    `bson:"bookingYear,omitempty" json:"bookingYear,omitempty"`
	BookingWeekday string `bson:"bookingWeekday,omitempty" json:"bookingWeekday,omitempty"`

	Status         string `bson:"status,omitempty" json:"status,omitempty"`
	Pending        bool   `bson:"pending" json:"pending"`
	PaymentChannel string `bson:"paymentChannel,omitempty" json:"paymentChannel,omitempty"`

	// Category is set by the classifier before encryption and may later be
	// corrected by the user. Exclude is a user-togglable flag.
	Category string `bson:"category" json:"category"`
	Exclude  bool   `bson:"exclude" json:"exclude"`
}

// TransactionSensitive holds the fields encrypted before persistence.
// TransactionID and AccountID are deterministically encrypted lookup keys;
// everything else is randomly encrypted. Optional text fields are pointers so
// that "provider returned empty string" stays distinguishable from "provider
// omitted the field".
type TransactionSensitive struct {
	TransactionID string
	AccountID     string

	// Amount is the provider's canonical decimal string (e.g. "45.80"),
	// never a binary float. It is encrypted as-is so it round-trips exactly.
	Amount   string
	Currency string

	ValueDate        *string
	Description      *string
	Counterparty     *string
	MerchantName     *string
	Location         *string
	ProviderCategory *string

	// Raw is the full provider payload as JSON, kept for reprocessing.
	Raw string
}

// Transaction is the decrypted read-side view of a stored transaction.
type Transaction struct {
	ID string `bson:"_id" json:"id"`
	TransactionPublic
	TransactionSensitive

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TransactionUpdate carries a user-initiated correction. Nil members leave
// the stored value untouched; Description and Counterparty are re-encrypted
// on write.
type TransactionUpdate struct {
	Category     *string
	Exclude      *bool
	Description  *string
	Counterparty *string
}

// Maximum lengths applied by normalizers before encryption, bounding
// ciphertext size and keeping display truncation stable.
const (
	MaxDescriptionLen  = 500
	MaxCounterpartyLen = 255
	MaxRawLen          = 10000
)
