package plaid

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nexpass/nexsync/internal/classify"
	"github.com/nexpass/nexsync/internal/providers"
)

func TestNormalizeTransaction(t *testing.T) {
	tx := &Transaction{
		TransactionID:   "plaid-tx-1",
		AccountID:       "plaid-acct-1",
		Amount:          45.80, // Plaid: positive = outflow
		ISOCurrencyCode: "usd",
		Date:            "2025-10-08",
		AuthorizedDate:  "2025-10-07",
		Name:            "TESCO STORES 3297",
		MerchantName:    "Tesco",
		PaymentChannel:  "in store",
		PersonalFinanceCategory: &PersonalFinanceCategory{
			Primary:         "FOOD_AND_DRINK",
			Detailed:        "FOOD_AND_DRINK_GROCERIES",
			ConfidenceLevel: "VERY_HIGH",
		},
		Counterparties: []Counterparty{
			{Name: "Tesco Stores Ltd", Type: "merchant", ConfidenceLevel: "VERY_HIGH"},
		},
		Location: &Location{City: "London", Country: "GB"},
	}

	got, err := tx.NormalizeTransaction("user-1", "")
	if err != nil {
		t.Fatalf("NormalizeTransaction: %v", err)
	}

	if got.Sensitive.Amount != "-45.8" {
		t.Errorf("Amount = %q, want sign flipped to -45.8", got.Sensitive.Amount)
	}
	if got.Sensitive.AccountID != "plaid-acct-1" {
		t.Errorf("AccountID = %q, want payload account id when caller passes none", got.Sensitive.AccountID)
	}
	if got.Sensitive.Currency != "USD" {
		t.Errorf("Currency = %q", got.Sensitive.Currency)
	}
	if got.Public.BookingMonth != "2025-10" || got.Public.BookingWeekday != "Wed" {
		t.Errorf("derived fields = (%q, %q)", got.Public.BookingMonth, got.Public.BookingWeekday)
	}
	if got.Public.PaymentChannel != "in store" || got.Public.Status != "posted" {
		t.Errorf("public = %+v", got.Public)
	}
	if got.Hint == nil || got.Hint.Detailed != "FOOD_AND_DRINK_GROCERIES" || got.Hint.Confidence != classify.ConfidenceVeryHigh {
		t.Errorf("Hint = %+v", got.Hint)
	}
	if got.Sensitive.Counterparty == nil || *got.Sensitive.Counterparty != "Tesco Stores Ltd" {
		t.Errorf("Counterparty = %v", got.Sensitive.Counterparty)
	}
	if got.Sensitive.Location == nil || *got.Sensitive.Location != "London, GB" {
		t.Errorf("Location = %v", got.Sensitive.Location)
	}
}

func TestResolveCounterparty(t *testing.T) {
	tests := []struct {
		name           string
		counterparties []Counterparty
		merchantName   string
		want           string
		wantNil        bool
	}{
		{
			name: "very high beats high",
			counterparties: []Counterparty{
				{Name: "Wrong Corp", ConfidenceLevel: "HIGH"},
				{Name: "Right Corp", ConfidenceLevel: "VERY_HIGH"},
			},
			want: "Right Corp",
		},
		{
			name: "first listed wins ties",
			counterparties: []Counterparty{
				{Name: "First Corp", ConfidenceLevel: "HIGH"},
				{Name: "Second Corp", ConfidenceLevel: "HIGH"},
			},
			want: "First Corp",
		},
		{
			name: "unknown confidence ranks below medium",
			counterparties: []Counterparty{
				{Name: "No Confidence Corp"},
				{Name: "Medium Corp", ConfidenceLevel: "MEDIUM"},
			},
			want: "Medium Corp",
		},
		{
			name:         "merchant name fallback",
			merchantName: "Fallback Merchant",
			want:         "Fallback Merchant",
		},
		{
			name:    "nothing available",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Counterparties: tt.counterparties, MerchantName: tt.merchantName}
			got := tx.resolveCounterparty()
			if tt.wantNil {
				if got != nil {
					t.Errorf("resolveCounterparty() = %q, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("resolveCounterparty() = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTransaction_MissingID(t *testing.T) {
	tx := &Transaction{Amount: 5}
	if _, err := tx.NormalizeTransaction("u", "a"); !errors.Is(err, providers.ErrNormalization) {
		t.Errorf("error = %v, want ErrNormalization", err)
	}
}

func TestNormalizeTransaction_InflowSign(t *testing.T) {
	tx := &Transaction{TransactionID: "t", Amount: -2500.00, ISOCurrencyCode: "EUR", Date: "2025-03-28"}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sensitive.Amount != "2500" {
		t.Errorf("Amount = %q, want 2500 (inflow positive)", got.Sensitive.Amount)
	}
}

func TestNormalizeTransaction_TruncationMultiByte(t *testing.T) {
	// Rune 500 of the name and rune 255 of the merchant fallback are
	// multi-byte; a byte-oriented cut would split them.
	tx := &Transaction{
		TransactionID: "t1",
		Amount:        5,
		Date:          "2025-10-08",
		Name:          strings.Repeat("d", 499) + "épicerie du coin",
		MerchantName:  strings.Repeat("c", 254) + "été gourmand",
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	desc := *got.Sensitive.Description
	if !utf8.ValidString(desc) {
		t.Error("truncated description is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(desc); n != 500 {
		t.Errorf("description rune count = %d, want 500", n)
	}
	cp := *got.Sensitive.Counterparty
	if !utf8.ValidString(cp) {
		t.Error("truncated counterparty is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(cp); n != 255 {
		t.Errorf("counterparty rune count = %d, want 255", n)
	}
}

func TestBalanceSnapshots(t *testing.T) {
	available := 90.25
	current := 100.50
	a := &Account{
		AccountID: "acct-1",
		Balances: AccountBalances{
			Available:       &available,
			Current:         &current,
			ISOCurrencyCode: "EUR",
		},
	}

	snaps := a.BalanceSnapshots("2025-10-08")
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}

	nb, err := snaps[0].NormalizeBalance("u", "")
	if err != nil {
		t.Fatal(err)
	}
	if nb.Public.BalanceType != "available" || nb.Sensitive.Amount != "90.25" || nb.Sensitive.AccountID != "acct-1" {
		t.Errorf("normalized = %+v / %+v", nb.Public, nb.Sensitive)
	}
}

func TestNormalizeAccount(t *testing.T) {
	a := &Account{
		AccountID:     "acct-1",
		Name:          "Checking",
		Mask:          "4321",
		Type:          "depository",
		InstitutionID: "ins_109508",
		Balances:      AccountBalances{ISOCurrencyCode: "usd"},
	}

	got, err := a.NormalizeAccount("u", "item-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Public.Currency != "USD" || got.Public.InstitutionID != "ins_109508" {
		t.Errorf("public = %+v", got.Public)
	}
	if got.Sensitive.IBAN == nil || *got.Sensitive.IBAN != "4321" {
		t.Errorf("mask = %v", got.Sensitive.IBAN)
	}
	if got.Sensitive.ConnectionID != "item-1" {
		t.Errorf("ConnectionID = %q", got.Sensitive.ConnectionID)
	}
}

func TestNormalizeConnection(t *testing.T) {
	item := &Item{ItemID: "item-1", InstitutionID: "ins_1", AccessToken: "access-sandbox-123"}

	got, err := item.NormalizeConnection("u")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sensitive.ConnectionID != "item-1" || got.Sensitive.AccessToken != "access-sandbox-123" {
		t.Errorf("sensitive = %+v", got.Sensitive)
	}
}
