package gocardless

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/providers"
)

// Provider implements the providers source interfaces.
func (t *Transaction) Provider() string { return ProviderName }
func (b *Balance) Provider() string     { return ProviderName }
func (a *Account) Provider() string     { return ProviderName }
func (r *Requisition) Provider() string { return ProviderName }

// NormalizeTransaction converts a GoCardless transaction into canonical
// form. GoCardless amounts are already signed (negative = outflow), so the
// sign passes through unchanged.
func (t *Transaction) NormalizeTransaction(userID, accountID string) (providers.NormalizedTransaction, error) {
	var out providers.NormalizedTransaction

	txID := t.TransactionID
	if txID == "" {
		txID = t.InternalTransactionID
	}
	if txID == "" {
		return out, fmt.Errorf("%w: gocardless transaction has no transaction id", providers.ErrNormalization)
	}

	amount := strings.TrimSpace(t.TransactionAmount.Amount)
	if _, err := decimal.NewFromString(amount); err != nil {
		return out, fmt.Errorf("%w: gocardless transaction %s: unparsable amount %q", providers.ErrNormalization, txID, amount)
	}

	bookingDate := canonical.NormalizeDate(t.BookingDate)
	month, year, weekday, _ := canonical.BookingParts(bookingDate)

	status := "booked"
	if t.Pending {
		status = "pending"
	}

	public := canonical.TransactionPublic{
		UserID:         userID,
		BookingDate:    bookingDate,
		BookingMonth:   month,
		BookingYear:    year,
		BookingWeekday: weekday,
		Status:         status,
		Pending:        t.Pending,
	}

	sensitive := canonical.TransactionSensitive{
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        amount,
		Currency:      normalizeCurrency(t.TransactionAmount.Currency),
		ValueDate:     optionalDate(t.ValueDate),
		Description:   truncateOptional(t.description(), canonical.MaxDescriptionLen),
		Counterparty:  truncateOptional(t.counterparty(), canonical.MaxCounterpartyLen),
		Raw:           rawJSON(t),
	}

	return providers.NormalizedTransaction{Public: public, Sensitive: sensitive}, nil
}

// description picks the first populated free-text field. Returns nil when
// the provider supplied none, keeping absence distinguishable from an empty
// string it did supply.
func (t *Transaction) description() *string {
	if t.RemittanceInformationUnstructured != "" {
		return &t.RemittanceInformationUnstructured
	}
	if len(t.RemittanceInformationUnstructuredArray) > 0 {
		joined := strings.Join(t.RemittanceInformationUnstructuredArray, " ")
		return &joined
	}
	if t.AdditionalInformation != "" {
		return &t.AdditionalInformation
	}
	return nil
}

// counterparty prefers the creditor name (outgoing payments) over the debtor
// name (incoming).
func (t *Transaction) counterparty() *string {
	if t.CreditorName != "" {
		return &t.CreditorName
	}
	if t.DebtorName != "" {
		return &t.DebtorName
	}
	return nil
}

// NormalizeBalance converts a GoCardless balance snapshot into canonical
// form. The balance type defaults to "expected", matching the provider's own
// default bucket.
func (b *Balance) NormalizeBalance(userID, accountID string) (providers.NormalizedBalance, error) {
	var out providers.NormalizedBalance

	amount := strings.TrimSpace(b.BalanceAmount.Amount)
	if _, err := decimal.NewFromString(amount); err != nil {
		return out, fmt.Errorf("%w: gocardless balance: unparsable amount %q", providers.ErrNormalization, amount)
	}

	balanceType := b.BalanceType
	if balanceType == "" {
		balanceType = "expected"
	}

	return providers.NormalizedBalance{
		Public: canonical.BalancePublic{
			UserID:        userID,
			BalanceType:   balanceType,
			ReferenceDate: canonical.NormalizeDate(b.ReferenceDate),
		},
		Sensitive: canonical.BalanceSensitive{
			AccountID: accountID,
			Amount:    amount,
			Currency:  normalizeCurrency(b.BalanceAmount.Currency),
		},
	}, nil
}

// NormalizeAccount converts a GoCardless account detail into canonical form.
func (a *Account) NormalizeAccount(userID, connectionID string) (providers.NormalizedAccount, error) {
	var out providers.NormalizedAccount

	if a.AccountID == "" {
		return out, fmt.Errorf("%w: gocardless account has no id", providers.ErrNormalization)
	}

	return providers.NormalizedAccount{
		Public: canonical.AccountPublic{
			UserID:        userID,
			InstitutionID: a.InstitutionID,
			Currency:      normalizeCurrency(a.Currency),
			Status:        strings.ToLower(a.Status),
		},
		Sensitive: canonical.AccountSensitive{
			AccountID:    a.AccountID,
			ConnectionID: connectionID,
			Name:         optionalString(firstNonEmpty(a.Name, a.OwnerName)),
			IBAN:         optionalString(a.IBAN),
			Raw:          rawJSON(a),
		},
	}, nil
}

// NormalizeConnection converts a GoCardless requisition into canonical form.
func (r *Requisition) NormalizeConnection(userID string) (providers.NormalizedConnection, error) {
	var out providers.NormalizedConnection

	if r.ID == "" {
		return out, fmt.Errorf("%w: gocardless requisition has no id", providers.ErrNormalization)
	}

	return providers.NormalizedConnection{
		Public: canonical.ConnectionPublic{
			UserID:        userID,
			InstitutionID: r.InstitutionID,
			Status:        requisitionStatus(r.Status),
		},
		Sensitive: canonical.ConnectionSensitive{
			ConnectionID: r.ID,
			AccessToken:  r.AccessToken,
			Raw:          rawJSON(r),
		},
	}, nil
}

// requisitionStatus maps the provider's requisition state codes onto the
// canonical connection status set. Linked requisitions are the only ones the
// sync loop touches.
func requisitionStatus(code string) string {
	switch strings.ToUpper(code) {
	case "LN":
		return "active"
	case "EX":
		return "expired"
	case "SU":
		return "suspended"
	default:
		return strings.ToLower(code)
	}
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) > 3 {
		c = c[:3]
	}
	return c
}

func optionalDate(raw string) *string {
	d := canonical.NormalizeDate(raw)
	if d == "" {
		return nil
	}
	return &d
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateOptional(s *string, max int) *string {
	if s == nil {
		return nil
	}
	v := truncateRunes(*s, max)
	return &v
}

// truncateRunes cuts s to at most max runes. The limits are character
// counts, so a multi-byte rune at the boundary is dropped whole, never
// split into invalid UTF-8.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func rawJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return truncateRunes(string(data), canonical.MaxRawLen)
}
