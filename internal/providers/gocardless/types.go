// Package gocardless normalizes GoCardless Bank Account Data payloads into
// canonical records and carries the minimal API client the sync loop needs.
package gocardless

// ProviderName identifies this provider in canonical records.
const ProviderName = "gocardless"

// Amount is the provider's decimal-string money pair.
type Amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// AccountRef is a creditor/debtor account reference.
type AccountRef struct {
	IBAN string `json:"iban,omitempty"`
}

// Transaction is a GoCardless transaction payload as returned under
// transactions.booked / transactions.pending.
type Transaction struct {
	TransactionID         string `json:"transactionId,omitempty"`
	InternalTransactionID string `json:"internalTransactionId,omitempty"`

	BookingDate string `json:"bookingDate,omitempty"`
	ValueDate   string `json:"valueDate,omitempty"`

	TransactionAmount Amount `json:"transactionAmount"`

	RemittanceInformationUnstructured      string   `json:"remittanceInformationUnstructured,omitempty"`
	RemittanceInformationUnstructuredArray []string `json:"remittanceInformationUnstructuredArray,omitempty"`
	AdditionalInformation                  string   `json:"additionalInformation,omitempty"`

	CreditorName    string     `json:"creditorName,omitempty"`
	DebtorName      string     `json:"debtorName,omitempty"`
	CreditorAccount AccountRef `json:"creditorAccount,omitempty"`
	DebtorAccount   AccountRef `json:"debtorAccount,omitempty"`

	BankTransactionCode string `json:"bankTransactionCode,omitempty"`

	// Pending is set by the client depending on which bucket the
	// transaction arrived in; it is not part of the wire payload.
	Pending bool `json:"-"`
}

// TransactionsResponse is the account transactions endpoint response.
type TransactionsResponse struct {
	Transactions struct {
		Booked  []Transaction `json:"booked"`
		Pending []Transaction `json:"pending"`
	} `json:"transactions"`
}

// Balance is a GoCardless balance payload.
type Balance struct {
	BalanceAmount Amount `json:"balanceAmount"`
	BalanceType   string `json:"balanceType,omitempty"`
	ReferenceDate string `json:"referenceDate,omitempty"`
}

// BalancesResponse is the account balances endpoint response.
type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}

// Account is a GoCardless account detail payload.
type Account struct {
	ResourceID string `json:"resourceId,omitempty"`
	IBAN       string `json:"iban,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Name       string `json:"name,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`
	Status     string `json:"status,omitempty"`

	// AccountID is the GoCardless account resource id from the URL path,
	// set by the client.
	AccountID     string `json:"-"`
	InstitutionID string `json:"-"`
}

// Requisition is a GoCardless requisition (bank link) payload.
type Requisition struct {
	ID            string   `json:"id"`
	Status        string   `json:"status,omitempty"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Accounts      []string `json:"accounts,omitempty"`
	Link          string   `json:"link,omitempty"`

	// AccessToken is the long-lived credential attached to this link. It
	// is always randomly encrypted at rest and must never be logged.
	AccessToken string `json:"-"`
}
