// Package plaid normalizes Plaid payloads into canonical records.
package plaid

// ProviderName identifies this provider in canonical records.
const ProviderName = "plaid"

// PersonalFinanceCategory is Plaid's structured category: a primary/detailed
// pair with the provider's own confidence tier.
type PersonalFinanceCategory struct {
	Primary         string `json:"primary"`
	Detailed        string `json:"detailed"`
	ConfidenceLevel string `json:"confidence_level"`
}

// Counterparty is one candidate counterparty with a confidence tier.
type Counterparty struct {
	Name            string `json:"name"`
	Type            string `json:"type,omitempty"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
}

// Location is the merchant location block.
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// Transaction is a Plaid transaction payload. Amounts follow Plaid's sign
// convention: positive values are outflows.
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id,omitempty"`

	Amount          float64 `json:"amount"`
	ISOCurrencyCode string  `json:"iso_currency_code,omitempty"`

	Date           string `json:"date,omitempty"`
	AuthorizedDate string `json:"authorized_date,omitempty"`

	Name         string `json:"name,omitempty"`
	MerchantName string `json:"merchant_name,omitempty"`

	Pending        bool   `json:"pending"`
	PaymentChannel string `json:"payment_channel,omitempty"`

	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category,omitempty"`
	Counterparties          []Counterparty           `json:"counterparties,omitempty"`
	Location                *Location                `json:"location,omitempty"`
}

// AccountBalances is the balances block of a Plaid account.
type AccountBalances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	ISOCurrencyCode string   `json:"iso_currency_code,omitempty"`
}

// Account is a Plaid account payload.
type Account struct {
	AccountID    string          `json:"account_id"`
	Name         string          `json:"name,omitempty"`
	OfficialName string          `json:"official_name,omitempty"`
	Mask         string          `json:"mask,omitempty"`
	Type         string          `json:"type,omitempty"`
	Subtype      string          `json:"subtype,omitempty"`
	Balances     AccountBalances `json:"balances"`

	InstitutionID string `json:"-"`
}

// Item is a Plaid item (bank link) payload.
type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id,omitempty"`

	// AccessToken is the long-lived item credential. Always randomly
	// encrypted at rest, never logged.
	AccessToken string `json:"-"`
}
