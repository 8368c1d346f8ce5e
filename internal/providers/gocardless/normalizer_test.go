package gocardless

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nexpass/nexsync/internal/providers"
)

func TestNormalizeTransaction(t *testing.T) {
	tx := &Transaction{
		TransactionID: "tx-001",
		BookingDate:   "2025-10-08",
		ValueDate:     "2025-10-09",
		TransactionAmount: Amount{
			Amount:   "-45.80",
			Currency: "eur",
		},
		RemittanceInformationUnstructured: "TESCO SUPERMARKET LONDON",
		CreditorName:                      "Tesco Stores Ltd",
	}

	got, err := tx.NormalizeTransaction("user-1", "acct-1")
	if err != nil {
		t.Fatalf("NormalizeTransaction: %v", err)
	}

	pub := got.Public
	if pub.UserID != "user-1" {
		t.Errorf("UserID = %q", pub.UserID)
	}
	if pub.BookingDate != "2025-10-08" || pub.BookingMonth != "2025-10" ||
		pub.BookingYear != 2025 || pub.BookingWeekday != "Wed" {
		t.Errorf("derived booking fields = (%q, %q, %d, %q)", pub.BookingDate, pub.BookingMonth, pub.BookingYear, pub.BookingWeekday)
	}
	if pub.Status != "booked" || pub.Pending {
		t.Errorf("status = %q pending = %v, want booked/false", pub.Status, pub.Pending)
	}

	sens := got.Sensitive
	if sens.TransactionID != "tx-001" || sens.AccountID != "acct-1" {
		t.Errorf("ids = (%q, %q)", sens.TransactionID, sens.AccountID)
	}
	if sens.Amount != "-45.80" {
		t.Errorf("Amount = %q, want the exact provider string", sens.Amount)
	}
	if sens.Currency != "EUR" {
		t.Errorf("Currency = %q", sens.Currency)
	}
	if sens.Description == nil || *sens.Description != "TESCO SUPERMARKET LONDON" {
		t.Errorf("Description = %v", sens.Description)
	}
	if sens.Counterparty == nil || *sens.Counterparty != "Tesco Stores Ltd" {
		t.Errorf("Counterparty = %v", sens.Counterparty)
	}
	if sens.ValueDate == nil || *sens.ValueDate != "2025-10-09" {
		t.Errorf("ValueDate = %v", sens.ValueDate)
	}
	if sens.Raw == "" || !strings.Contains(sens.Raw, "tx-001") {
		t.Errorf("Raw = %q", sens.Raw)
	}
	if got.Hint != nil {
		t.Error("gocardless payloads carry no structured category hint")
	}
}

func TestNormalizeTransaction_InternalIDFallback(t *testing.T) {
	tx := &Transaction{
		InternalTransactionID: "internal-9",
		TransactionAmount:     Amount{Amount: "10.00", Currency: "EUR"},
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatalf("NormalizeTransaction: %v", err)
	}
	if got.Sensitive.TransactionID != "internal-9" {
		t.Errorf("TransactionID = %q, want internal-9", got.Sensitive.TransactionID)
	}
}

func TestNormalizeTransaction_Errors(t *testing.T) {
	tests := []struct {
		name string
		tx   *Transaction
	}{
		{"missing both ids", &Transaction{TransactionAmount: Amount{Amount: "1.00"}}},
		{"unparsable amount", &Transaction{TransactionID: "t", TransactionAmount: Amount{Amount: "12,50"}}},
		{"empty amount", &Transaction{TransactionID: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tx.NormalizeTransaction("u", "a")
			if !errors.Is(err, providers.ErrNormalization) {
				t.Errorf("error = %v, want ErrNormalization", err)
			}
		})
	}
}

func TestNormalizeTransaction_UnparsableDate(t *testing.T) {
	tx := &Transaction{
		TransactionID:     "t1",
		BookingDate:       "notadate",
		TransactionAmount: Amount{Amount: "5.00", Currency: "EUR"},
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatalf("unparsable dates must not fail normalization: %v", err)
	}
	pub := got.Public
	if pub.BookingMonth != "" || pub.BookingYear != 0 || pub.BookingWeekday != "" {
		t.Errorf("derived fields must be absent for an unparsable date, got (%q, %d, %q)",
			pub.BookingMonth, pub.BookingYear, pub.BookingWeekday)
	}
}

func TestNormalizeTransaction_Truncation(t *testing.T) {
	longDesc := strings.Repeat("d", 600)
	longName := strings.Repeat("c", 300)
	tx := &Transaction{
		TransactionID:                     "t1",
		TransactionAmount:                 Amount{Amount: "5.00", Currency: "EUR"},
		RemittanceInformationUnstructured: longDesc,
		DebtorName:                        longName,
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(*got.Sensitive.Description) != 500 {
		t.Errorf("description length = %d, want 500", len(*got.Sensitive.Description))
	}
	if len(*got.Sensitive.Counterparty) != 255 {
		t.Errorf("counterparty length = %d, want 255", len(*got.Sensitive.Counterparty))
	}
}

func TestNormalizeTransaction_TruncationMultiByte(t *testing.T) {
	// Rune 500 of the description and rune 255 of the counterparty are
	// multi-byte; a byte-oriented cut would split them.
	tx := &Transaction{
		TransactionID:                     "t1",
		TransactionAmount:                 Amount{Amount: "5.00", Currency: "EUR"},
		RemittanceInformationUnstructured: strings.Repeat("d", 499) + "état de compte",
		DebtorName:                        strings.Repeat("c", 254) + "émilie sarl",
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
	if !strings.HasSuffix(desc, "é") {
		t.Errorf("description must end with the whole boundary rune, got tail %q", desc[len(desc)-4:])
	}
	cp := *got.Sensitive.Counterparty
	if !utf8.ValidString(cp) {
		t.Error("truncated counterparty is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(cp); n != 255 {
		t.Errorf("counterparty rune count = %d, want 255", n)
	}
}

func TestNormalizeTransaction_AbsentVsEmpty(t *testing.T) {
	tx := &Transaction{
		TransactionID:     "t1",
		TransactionAmount: Amount{Amount: "5.00", Currency: "EUR"},
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sensitive.Description != nil {
		t.Errorf("Description = %v, want nil for an absent field", got.Sensitive.Description)
	}
	if got.Sensitive.Counterparty != nil {
		t.Errorf("Counterparty = %v, want nil for an absent field", got.Sensitive.Counterparty)
	}
}

func TestNormalizeTransaction_PendingStatus(t *testing.T) {
	tx := &Transaction{
		TransactionID:     "t1",
		TransactionAmount: Amount{Amount: "5.00", Currency: "EUR"},
		Pending:           true,
	}

	got, err := tx.NormalizeTransaction("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Public.Status != "pending" || !got.Public.Pending {
		t.Errorf("status = %q pending = %v", got.Public.Status, got.Public.Pending)
	}
}

func TestNormalizeBalance(t *testing.T) {
	b := &Balance{
		BalanceAmount: Amount{Amount: "1024.55", Currency: "eur"},
		BalanceType:   "interimAvailable",
		ReferenceDate: "2025-10-08",
	}

	got, err := b.NormalizeBalance("u", "acct-1")
	if err != nil {
		t.Fatalf("NormalizeBalance: %v", err)
	}
	if got.Public.BalanceType != "interimAvailable" || got.Public.ReferenceDate != "2025-10-08" {
		t.Errorf("public = %+v", got.Public)
	}
	if got.Sensitive.Amount != "1024.55" || got.Sensitive.Currency != "EUR" || got.Sensitive.AccountID != "acct-1" {
		t.Errorf("sensitive = %+v", got.Sensitive)
	}
}

func TestNormalizeBalance_DefaultType(t *testing.T) {
	b := &Balance{BalanceAmount: Amount{Amount: "1.00", Currency: "EUR"}}

	got, err := b.NormalizeBalance("u", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Public.BalanceType != "expected" {
		t.Errorf("BalanceType = %q, want expected", got.Public.BalanceType)
	}
}

func TestNormalizeAccount(t *testing.T) {
	a := &Account{
		AccountID:     "acct-1",
		InstitutionID: "REVOLUT_REVOGB21",
		IBAN:          "GB33BUKB20201555555555",
		Currency:      "gbp",
		Name:          "Main",
		Status:        "READY",
	}

	got, err := a.NormalizeAccount("u", "conn-1")
	if err != nil {
		t.Fatalf("NormalizeAccount: %v", err)
	}
	if got.Public.InstitutionID != "REVOLUT_REVOGB21" || got.Public.Currency != "GBP" || got.Public.Status != "ready" {
		t.Errorf("public = %+v", got.Public)
	}
	if got.Sensitive.AccountID != "acct-1" || got.Sensitive.ConnectionID != "conn-1" {
		t.Errorf("sensitive ids = %+v", got.Sensitive)
	}
	if got.Sensitive.IBAN == nil || *got.Sensitive.IBAN != "GB33BUKB20201555555555" {
		t.Errorf("IBAN = %v", got.Sensitive.IBAN)
	}
}

func TestNormalizeConnection(t *testing.T) {
	r := &Requisition{
		ID:            "req-1",
		Status:        "LN",
		InstitutionID: "N26_NTSBDEB1",
		AccessToken:   "secret-token",
	}

	got, err := r.NormalizeConnection("u")
	if err != nil {
		t.Fatalf("NormalizeConnection: %v", err)
	}
	if got.Sensitive.ConnectionID != "req-1" || got.Sensitive.AccessToken != "secret-token" {
		t.Errorf("sensitive = %+v", got.Sensitive)
	}
	if got.Public.InstitutionID != "N26_NTSBDEB1" || got.Public.Status != "active" {
		t.Errorf("public = %+v", got.Public)
	}
}

func TestRequisitionStatus(t *testing.T) {
	tests := map[string]string{
		"LN": "active",
		"ln": "active",
		"EX": "expired",
		"SU": "suspended",
		"CR": "cr",
	}
	for code, want := range tests {
		if got := requisitionStatus(code); got != want {
			t.Errorf("requisitionStatus(%q) = %q, want %q", code, got, want)
		}
	}
}
