package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/classify"
	"github.com/nexpass/nexsync/internal/fieldcipher"
	"github.com/nexpass/nexsync/internal/policy"
	"github.com/nexpass/nexsync/internal/providers"
	"github.com/nexpass/nexsync/internal/providers/gocardless"
	"github.com/nexpass/nexsync/internal/store"
	"github.com/nexpass/nexsync/internal/store/inmemory"
)

func newTestEngine(t *testing.T) (*Engine, *inmemory.Store, *store.Codec) {
	t.Helper()
	cipher, err := fieldcipher.New(bytes.Repeat([]byte{0x17}, fieldcipher.KeySize))
	if err != nil {
		t.Fatalf("fieldcipher.New: %v", err)
	}
	codec := store.NewCodec(cipher)
	st := inmemory.New()
	engine := New(st, codec, classify.New(nil), zerolog.Nop(), Options{})
	return engine, st, codec
}

func groceriesTx(id, bookingDate string) *gocardless.Transaction {
	return &gocardless.Transaction{
		TransactionID:                     id,
		BookingDate:                       bookingDate,
		TransactionAmount:                 gocardless.Amount{Amount: "-45.80", Currency: "GBP"},
		RemittanceInformationUnstructured: "TESCO SUPERMARKET LONDON",
		CreditorName:                      "Tesco Stores Ltd",
	}
}

func TestIngestTransaction_Idempotent(t *testing.T) {
	ctx := context.Background()
	engine, st, codec := newTestEngine(t)

	status, err := engine.IngestTransaction(ctx, "u1", "acct-1", groceriesTx("tx-1", "2025-10-08"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if status != StatusInserted {
		t.Fatalf("first ingest status = %s, want inserted", status)
	}

	status, err = engine.IngestTransaction(ctx, "u1", "acct-1", groceriesTx("tx-1", "2025-10-08"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if status != StatusUpdated {
		t.Fatalf("second ingest status = %s, want updated", status)
	}

	key, err := codec.LookupKey(policy.RecordTransaction, "transactionId", "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := st.Transactions().FindByKey(ctx, "u1", key)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if doc.Category != string(classify.Groceries) {
		t.Errorf("Category = %q, want Groceries from the keyword tier", doc.Category)
	}
	if !fieldcipher.IsCiphertext(doc.Amount) {
		t.Errorf("amount stored in the clear: %q", doc.Amount)
	}

	tx, err := codec.OpenTransaction(doc)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Amount != "-45.80" {
		t.Errorf("Amount = %q, want exact round-trip", tx.Amount)
	}
	if tx.Counterparty == nil || *tx.Counterparty != "Tesco Stores Ltd" {
		t.Errorf("Counterparty = %v", tx.Counterparty)
	}
}

func TestIngestTransactions_BulkIsolation(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)

	var srcs []providers.TransactionSource
	for i := 0; i < 10; i++ {
		tx := groceriesTx(fmt.Sprintf("tx-%d", i), "2025-10-08")
		if i == 5 {
			tx.TransactionAmount.Amount = "not-a-number"
		}
		srcs = append(srcs, tx)
	}

	result, err := engine.IngestTransactions(ctx, "u1", "acct-1", srcs)
	if err != nil {
		t.Fatalf("IngestTransactions: %v", err)
	}
	if result.Inserted != 9 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 9 inserted 1 failed", result)
	}
	if result.Outcomes[5].Status != StatusFailed {
		t.Errorf("outcome 5 = %+v, want the bad record to be the failure", result.Outcomes[5])
	}
	if !errors.Is(result.Outcomes[5].Err, providers.ErrNormalization) {
		t.Errorf("outcome 5 err = %v, want ErrNormalization", result.Outcomes[5].Err)
	}
	var ie *IngestError
	if !errors.As(result.Outcomes[5].Err, &ie) || ie.Class != FailNormalization {
		t.Errorf("outcome 5 err = %v, want IngestError class normalization", result.Outcomes[5].Err)
	}
	for i, o := range result.Outcomes {
		if i != 5 && o.Err != nil {
			t.Errorf("outcome %d failed: %v", i, o.Err)
		}
	}
}

func TestIngestTransactions_Cancelled(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.IngestTransactions(ctx, "u1", "acct-1", []providers.TransactionSource{
		groceriesTx("tx-1", "2025-10-08"),
		groceriesTx("tx-2", "2025-10-08"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Failed != 2 {
		t.Errorf("result = %+v, want both records failed", result)
	}
}

// fakeSyncClient serves canned payloads and records the sync windows it was
// asked for.
type fakeSyncClient struct {
	txs       map[string][]providers.TransactionSource
	balances  map[string][]providers.BalanceSource
	dateFroms []string
	err       error
}

func (f *fakeSyncClient) Provider() string { return "gocardless" }

func (f *fakeSyncClient) Transactions(ctx context.Context, accountID, dateFrom string) ([]providers.TransactionSource, error) {
	f.dateFroms = append(f.dateFroms, dateFrom)
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[accountID], nil
}

func (f *fakeSyncClient) Balances(ctx context.Context, accountID string) ([]providers.BalanceSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.balances[accountID], nil
}

func seedLink(t *testing.T, engine *Engine) {
	t.Helper()
	ctx := context.Background()

	if _, err := engine.IngestConnection(ctx, "u1", &gocardless.Requisition{
		ID: "req-1", Status: "LN", InstitutionID: "N26_NTSBDEB1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.IngestAccount(ctx, "u1", "req-1", &gocardless.Account{
		AccountID: "acct-1", Currency: "EUR", Status: "READY",
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSyncUser(t *testing.T) {
	ctx := context.Background()
	engine, st, codec := newTestEngine(t)
	seedLink(t, engine)

	client := &fakeSyncClient{
		txs: map[string][]providers.TransactionSource{
			"acct-1": {groceriesTx("tx-1", "2025-10-01"), groceriesTx("tx-2", "2025-10-08")},
		},
		balances: map[string][]providers.BalanceSource{
			"acct-1": {&gocardless.Balance{
				BalanceAmount: gocardless.Amount{Amount: "1024.55", Currency: "EUR"},
				BalanceType:   "expected",
			}},
		},
	}

	report, err := engine.SyncUser(ctx, "u1", client)
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if len(report.Accounts) != 1 || report.Failed() != 0 {
		t.Fatalf("report = %+v", report)
	}
	acc := report.Accounts[0]
	if acc.AccountID != "acct-1" || acc.Transactions.Inserted != 2 || acc.BalancesUpserted != 1 {
		t.Errorf("account sync = %+v", acc)
	}
	if client.dateFroms[0] != "" {
		t.Errorf("first sync window = %q, want full history", client.dateFroms[0])
	}

	// A second sync resumes from the newest stored booking date.
	if _, err := engine.SyncUser(ctx, "u1", client); err != nil {
		t.Fatal(err)
	}
	if client.dateFroms[1] != "2025-10-08" {
		t.Errorf("second sync window = %q, want 2025-10-08", client.dateFroms[1])
	}

	accountKey, err := codec.LookupKey(policy.RecordAccount, "accountId", "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Balances().ListByAccount(ctx, "u1", accountKey); err != nil {
		t.Fatal(err)
	}
}

func TestSyncUser_AccountFailureIsolated(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(t)
	seedLink(t, engine)

	client := &fakeSyncClient{err: errors.New("provider down")}
	report, err := engine.SyncUser(ctx, "u1", client)
	if err != nil {
		t.Fatalf("SyncUser must not fail the run for a provider error: %v", err)
	}
	if report.Failed() != 1 {
		t.Errorf("report = %+v, want the account marked failed", report)
	}
}

func TestDisconnectConnection_Purges(t *testing.T) {
	ctx := context.Background()
	engine, st, _ := newTestEngine(t)
	seedLink(t, engine)

	for i := 0; i < 3; i++ {
		if _, err := engine.IngestTransaction(ctx, "u1", "acct-1", groceriesTx(fmt.Sprintf("tx-%d", i), "2025-10-08")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := engine.IngestBalance(ctx, "u1", "acct-1", &gocardless.Balance{
		BalanceAmount: gocardless.Amount{Amount: "10.00", Currency: "EUR"},
	}); err != nil {
		t.Fatal(err)
	}

	res, err := engine.DisconnectConnection(ctx, "u1", "req-1")
	if err != nil {
		t.Fatalf("DisconnectConnection: %v", err)
	}
	if res.Transactions != 3 || res.Balances != 1 || res.Accounts != 1 {
		t.Errorf("purge = %+v, want 3 transactions 1 balance 1 account", res)
	}

	remaining, err := st.Transactions().List(ctx, store.TransactionQuery{UserID: "u1", IncludeExcluded: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d transactions survived the purge", len(remaining))
	}
	conns, _ := st.Connections().ListByUser(ctx, "u1")
	if len(conns) != 0 {
		t.Errorf("connection survived the purge")
	}
}

func TestCorrectTransaction_SurvivesResync(t *testing.T) {
	ctx := context.Background()
	engine, st, codec := newTestEngine(t)

	if _, err := engine.IngestTransaction(ctx, "u1", "acct-1", groceriesTx("tx-1", "2025-10-08")); err != nil {
		t.Fatal(err)
	}
	key, err := codec.LookupKey(policy.RecordTransaction, "transactionId", "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := st.Transactions().FindByKey(ctx, "u1", key)
	if err != nil {
		t.Fatal(err)
	}

	category := string(classify.Restaurants)
	exclude := true
	if err := engine.CorrectTransaction(ctx, "u1", doc.ID, canonical.TransactionUpdate{Category: &category, Exclude: &exclude}); err != nil {
		t.Fatalf("CorrectTransaction: %v", err)
	}

	// Provider re-delivers the same transaction; the correction must hold.
	if _, err := engine.IngestTransaction(ctx, "u1", "acct-1", groceriesTx("tx-1", "2025-10-08")); err != nil {
		t.Fatal(err)
	}

	doc, err = st.Transactions().FindByKey(ctx, "u1", key)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Category != string(classify.Restaurants) || !doc.Exclude {
		t.Errorf("after re-sync = category %q exclude %v, correction lost", doc.Category, doc.Exclude)
	}
}

func TestIngestTransaction_ClassificationFailureDegrades(t *testing.T) {
	ctx := context.Background()
	engine, st, codec := newTestEngine(t)

	// Negative amount, no keyword match, no remote classifier: the chain
	// errors and the engine degrades to Uncategorized instead of dropping
	// the record.
	tx := &gocardless.Transaction{
		TransactionID:                     "tx-odd",
		BookingDate:                       "2025-10-08",
		TransactionAmount:                 gocardless.Amount{Amount: "-12.34", Currency: "EUR"},
		RemittanceInformationUnstructured: "XJ-22 REF 9911",
	}
	status, err := engine.IngestTransaction(ctx, "u1", "acct-1", tx)
	if err != nil {
		t.Fatalf("IngestTransaction: %v", err)
	}
	if status != StatusInserted {
		t.Fatalf("status = %s", status)
	}

	key, err := codec.LookupKey(policy.RecordTransaction, "transactionId", "tx-odd")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := st.Transactions().FindByKey(ctx, "u1", key)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Category != string(classify.Uncategorized) {
		t.Errorf("Category = %q, want Uncategorized", doc.Category)
	}
}
