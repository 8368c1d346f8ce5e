// Package ingest runs the normalize-classify-encrypt-store pipeline. One
// engine serves every provider: payloads arrive through the provider
// interfaces, classification happens on plaintext before sealing, and the
// stores only ever see sealed documents.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/classify"
	"github.com/nexpass/nexsync/internal/metrics"
	"github.com/nexpass/nexsync/internal/providers"
	"github.com/nexpass/nexsync/internal/store"
)

// Status is the terminal state of one record's ingestion.
type Status string

const (
	StatusInserted Status = "inserted"
	StatusUpdated  Status = "updated"
	StatusFailed   Status = "failed"
)

// Outcome is the result of one record within a bulk run.
type Outcome struct {
	Index  int
	Status Status
	Err    error
}

// BulkResult summarizes a bulk ingestion run. Outcomes preserves input
// order.
type BulkResult struct {
	Inserted int
	Updated  int
	Failed   int
	Outcomes []Outcome
}

// Options tunes the engine.
type Options struct {
	// Concurrency bounds the number of records processed in parallel
	// during bulk ingestion. Defaults to 4.
	Concurrency int

	// RecordTimeout bounds one record's time in the pipeline, covering
	// classification and the store round-trip. Defaults to 30s.
	RecordTimeout time.Duration
}

// Engine ingests provider payloads into the encrypted store.
type Engine struct {
	store      store.Store
	codec      *store.Codec
	classifier *classify.Classifier
	log        zerolog.Logger
	opts       Options

	now func() time.Time
}

// New creates an Engine.
func New(st store.Store, codec *store.Codec, classifier *classify.Classifier, log zerolog.Logger, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 30 * time.Second
	}
	return &Engine{
		store:      st,
		codec:      codec,
		classifier: classifier,
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// IngestTransaction runs one transaction through the full pipeline. A
// normalization or encryption failure means the record is not stored at all;
// a classification failure degrades the category to Uncategorized and the
// record still lands.
func (e *Engine) IngestTransaction(ctx context.Context, userID, accountID string, src providers.TransactionSource) (Status, error) {
	norm, err := src.NormalizeTransaction(userID, accountID)
	if err != nil {
		metrics.TransactionsIngested.WithLabelValues(src.Provider(), string(StatusFailed)).Inc()
		return StatusFailed, &IngestError{Class: FailNormalization, Err: err}
	}

	norm.Public.Category = e.classifyTransaction(ctx, &norm)

	doc, err := e.codec.SealTransaction(uuid.NewString(), norm.Public, norm.Sensitive, e.now().UTC())
	if err != nil {
		metrics.TransactionsIngested.WithLabelValues(src.Provider(), string(StatusFailed)).Inc()
		metrics.EncryptionFailures.Inc()
		return StatusFailed, &IngestError{Class: FailEncryption, Err: err}
	}

	res, err := e.store.Transactions().Upsert(ctx, doc)
	if err != nil {
		metrics.TransactionsIngested.WithLabelValues(src.Provider(), string(StatusFailed)).Inc()
		return StatusFailed, &IngestError{Class: FailStorage, Err: err}
	}

	status := StatusUpdated
	if res.Inserted {
		status = StatusInserted
	}
	metrics.TransactionsIngested.WithLabelValues(src.Provider(), string(status)).Inc()
	return status, nil
}

func (e *Engine) classifyTransaction(ctx context.Context, norm *providers.NormalizedTransaction) string {
	amount, err := decimal.NewFromString(norm.Sensitive.Amount)
	if err != nil {
		amount = decimal.Zero
	}

	result, err := e.classifier.Classify(ctx, classify.Input{
		Description:  deref(norm.Sensitive.Description),
		Counterparty: deref(norm.Sensitive.Counterparty),
		Amount:       amount,
		Currency:     norm.Sensitive.Currency,
		Hint:         norm.Hint,
	})
	if err != nil {
		e.log.Warn().Err(err).
			Str("user_id", norm.Public.UserID).
			Msg("Classification failed, storing transaction as Uncategorized")
		metrics.ClassificationFailures.Inc()
		return string(classify.Uncategorized)
	}

	metrics.Classifications.WithLabelValues(string(result.Tier)).Inc()
	return string(result.Category)
}

// IngestTransactions ingests a batch with bounded concurrency. Record
// failures are isolated: one bad payload never aborts its neighbors. Context
// cancellation is cooperative; records not yet started fail with the context
// error and the error is also returned.
func (e *Engine) IngestTransactions(ctx context.Context, userID, accountID string, srcs []providers.TransactionSource) (BulkResult, error) {
	start := e.now()
	outcomes := make([]Outcome, len(srcs))

	g := new(errgroup.Group)
	g.SetLimit(e.opts.Concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Index: i, Status: StatusFailed, Err: err}
				return nil
			}
			rctx, cancel := context.WithTimeout(ctx, e.opts.RecordTimeout)
			defer cancel()

			status, err := e.IngestTransaction(rctx, userID, accountID, src)
			outcomes[i] = Outcome{Index: i, Status: status, Err: err}
			return nil
		})
	}
	g.Wait()

	metrics.BulkIngestDuration.Observe(time.Since(start).Seconds())

	result := BulkResult{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusInserted:
			result.Inserted++
		case StatusUpdated:
			result.Updated++
		default:
			result.Failed++
		}
	}

	e.log.Info().
		Str("user_id", userID).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Bulk ingestion finished")
	return result, ctx.Err()
}

// IngestBalance upserts one balance snapshot.
func (e *Engine) IngestBalance(ctx context.Context, userID, accountID string, src providers.BalanceSource) (Status, error) {
	norm, err := src.NormalizeBalance(userID, accountID)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestBalance: %w", err)
	}
	doc, err := e.codec.SealBalance(uuid.NewString(), norm.Public, norm.Sensitive, e.now().UTC())
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestBalance: %w", err)
	}
	res, err := e.store.Balances().Upsert(ctx, doc)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestBalance: %w", err)
	}
	if res.Inserted {
		return StatusInserted, nil
	}
	return StatusUpdated, nil
}

// IngestAccount upserts one account record.
func (e *Engine) IngestAccount(ctx context.Context, userID, connectionID string, src providers.AccountSource) (Status, error) {
	norm, err := src.NormalizeAccount(userID, connectionID)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestAccount: %w", err)
	}
	doc, err := e.codec.SealAccount(uuid.NewString(), norm.Public, norm.Sensitive, e.now().UTC())
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestAccount: %w", err)
	}
	res, err := e.store.Accounts().Upsert(ctx, doc)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestAccount: %w", err)
	}
	if res.Inserted {
		return StatusInserted, nil
	}
	return StatusUpdated, nil
}

// IngestConnection upserts one bank link.
func (e *Engine) IngestConnection(ctx context.Context, userID string, src providers.ConnectionSource) (Status, error) {
	norm, err := src.NormalizeConnection(userID)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestConnection: %w", err)
	}
	doc, err := e.codec.SealConnection(uuid.NewString(), norm.Public, norm.Sensitive, e.now().UTC())
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestConnection: %w", err)
	}
	res, err := e.store.Connections().Upsert(ctx, doc)
	if err != nil {
		return StatusFailed, fmt.Errorf("IngestConnection: %w", err)
	}
	if res.Inserted {
		return StatusInserted, nil
	}
	return StatusUpdated, nil
}

// CorrectTransaction applies a user correction, re-encrypting the free-text
// members before the store sees them.
func (e *Engine) CorrectTransaction(ctx context.Context, userID, docID string, upd canonical.TransactionUpdate) error {
	sealed, err := e.codec.SealTransactionUpdate(upd)
	if err != nil {
		return fmt.Errorf("CorrectTransaction: %w", err)
	}
	if err := e.store.Transactions().UpdateUserFields(ctx, userID, docID, sealed); err != nil {
		return fmt.Errorf("CorrectTransaction: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
