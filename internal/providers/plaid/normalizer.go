package plaid

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/classify"
	"github.com/nexpass/nexsync/internal/providers"
)

// Provider implements the providers source interfaces.
func (t *Transaction) Provider() string { return ProviderName }
func (b *Balance) Provider() string     { return ProviderName }
func (a *Account) Provider() string     { return ProviderName }
func (i *Item) Provider() string        { return ProviderName }

// NormalizeTransaction converts a Plaid transaction into canonical form.
// Plaid amounts are positive for outflows; the canonical convention is the
// opposite (negative = money out), so the sign is flipped here.
func (t *Transaction) NormalizeTransaction(userID, accountID string) (providers.NormalizedTransaction, error) {
	var out providers.NormalizedTransaction

	if t.TransactionID == "" {
		return out, fmt.Errorf("%w: plaid transaction has no transaction_id", providers.ErrNormalization)
	}

	if accountID == "" {
		accountID = t.AccountID
	}

	amount := decimal.NewFromFloat(t.Amount).Neg()

	bookingDate := canonical.NormalizeDate(t.Date)
	month, year, weekday, _ := canonical.BookingParts(bookingDate)

	status := "posted"
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
		PaymentChannel: t.PaymentChannel,
	}

	sensitive := canonical.TransactionSensitive{
		TransactionID:    t.TransactionID,
		AccountID:        accountID,
		Amount:           amount.String(),
		Currency:         normalizeCurrency(t.ISOCurrencyCode),
		ValueDate:        optionalDate(t.AuthorizedDate),
		Description:      truncateOptional(optionalString(t.Name), canonical.MaxDescriptionLen),
		Counterparty:     truncateOptional(t.resolveCounterparty(), canonical.MaxCounterpartyLen),
		MerchantName:     optionalString(t.MerchantName),
		Location:         t.locationString(),
		ProviderCategory: t.providerCategoryString(),
		Raw:              rawJSON(t),
	}

	return providers.NormalizedTransaction{
		Public:    public,
		Sensitive: sensitive,
		Hint:      t.hint(),
	}, nil
}

// resolveCounterparty picks the highest-confidence candidate: VERY_HIGH
// beats HIGH beats anything lower, first-listed breaks ties. Falls back to
// the merchant name when Plaid supplied no candidates.
func (t *Transaction) resolveCounterparty() *string {
	best := -1
	var name string
	for _, cp := range t.Counterparties {
		if cp.Name == "" {
			continue
		}
		rank := confidenceRank(cp.ConfidenceLevel)
		if rank > best {
			best = rank
			name = cp.Name
		}
	}
	if name != "" {
		return &name
	}
	return optionalString(t.MerchantName)
}

func confidenceRank(level string) int {
	switch strings.ToUpper(level) {
	case "VERY_HIGH":
		return 3
	case "HIGH":
		return 2
	case "MEDIUM":
		return 1
	default:
		return 0
	}
}

func (t *Transaction) hint() *classify.Hint {
	pfc := t.PersonalFinanceCategory
	if pfc == nil {
		return nil
	}
	return &classify.Hint{
		Primary:    pfc.Primary,
		Detailed:   pfc.Detailed,
		Confidence: classify.HintConfidence(strings.ToUpper(pfc.ConfidenceLevel)),
	}
}

func (t *Transaction) locationString() *string {
	loc := t.Location
	if loc == nil {
		return nil
	}
	var parts []string
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}

func (t *Transaction) providerCategoryString() *string {
	pfc := t.PersonalFinanceCategory
	if pfc == nil {
		return nil
	}
	s := pfc.Primary
	if pfc.Detailed != "" {
		s = pfc.Detailed
	}
	return optionalString(s)
}

// Balance is one balance snapshot derived from a Plaid account's balances
// block, one per balance type.
type Balance struct {
	AccountID     string
	BalanceType   string
	Amount        float64
	Currency      string
	ReferenceDate string
}

// BalanceSnapshots expands the account's balances block into one snapshot
// per populated balance type.
func (a *Account) BalanceSnapshots(referenceDate string) []*Balance {
	var out []*Balance
	if a.Balances.Available != nil {
		out = append(out, &Balance{
			AccountID:     a.AccountID,
			BalanceType:   "available",
			Amount:        *a.Balances.Available,
			Currency:      a.Balances.ISOCurrencyCode,
			ReferenceDate: referenceDate,
		})
	}
	if a.Balances.Current != nil {
		out = append(out, &Balance{
			AccountID:     a.AccountID,
			BalanceType:   "current",
			Amount:        *a.Balances.Current,
			Currency:      a.Balances.ISOCurrencyCode,
			ReferenceDate: referenceDate,
		})
	}
	return out
}

// NormalizeBalance converts a balance snapshot into canonical form.
func (b *Balance) NormalizeBalance(userID, accountID string) (providers.NormalizedBalance, error) {
	if accountID == "" {
		accountID = b.AccountID
	}
	if accountID == "" {
		return providers.NormalizedBalance{}, fmt.Errorf("%w: plaid balance has no account id", providers.ErrNormalization)
	}

	return providers.NormalizedBalance{
		Public: canonical.BalancePublic{
			UserID:        userID,
			BalanceType:   b.BalanceType,
			ReferenceDate: canonical.NormalizeDate(b.ReferenceDate),
		},
		Sensitive: canonical.BalanceSensitive{
			AccountID: accountID,
			Amount:    decimal.NewFromFloat(b.Amount).String(),
			Currency:  normalizeCurrency(b.Currency),
		},
	}, nil
}

// NormalizeAccount converts a Plaid account into canonical form. The mask is
// stored in the IBAN slot: it is the provider's closest equivalent of an
// account number and shares its confidentiality tier.
func (a *Account) NormalizeAccount(userID, connectionID string) (providers.NormalizedAccount, error) {
	var out providers.NormalizedAccount

	if a.AccountID == "" {
		return out, fmt.Errorf("%w: plaid account has no account_id", providers.ErrNormalization)
	}

	return providers.NormalizedAccount{
		Public: canonical.AccountPublic{
			UserID:        userID,
			InstitutionID: a.InstitutionID,
			Currency:      normalizeCurrency(a.Balances.ISOCurrencyCode),
			Status:        strings.ToLower(a.Type),
		},
		Sensitive: canonical.AccountSensitive{
			AccountID:    a.AccountID,
			ConnectionID: connectionID,
			Name:         optionalString(firstNonEmpty(a.Name, a.OfficialName)),
			IBAN:         optionalString(a.Mask),
			Raw:          rawJSON(a),
		},
	}, nil
}

// NormalizeConnection converts a Plaid item into canonical form.
func (i *Item) NormalizeConnection(userID string) (providers.NormalizedConnection, error) {
	var out providers.NormalizedConnection

	if i.ItemID == "" {
		return out, fmt.Errorf("%w: plaid item has no item_id", providers.ErrNormalization)
	}

	return providers.NormalizedConnection{
		Public: canonical.ConnectionPublic{
			UserID:        userID,
			InstitutionID: i.InstitutionID,
			Status:        "active",
		},
		Sensitive: canonical.ConnectionSensitive{
			ConnectionID: i.ItemID,
			AccessToken:  i.AccessToken,
			Raw:          rawJSON(i),
		},
	}, nil
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
