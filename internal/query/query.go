// Package query serves read-side views over the encrypted store. Server-side
// predicates only ever touch plaintext metadata or deterministic lookup keys;
// everything involving amounts or free text decrypts first and aggregates in
// process, with exact decimal arithmetic throughout.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexpass/nexsync/internal/canonical"
	"github.com/nexpass/nexsync/internal/policy"
	"github.com/nexpass/nexsync/internal/store"
)

// Service answers read queries.
type Service struct {
	store store.Store
	codec *store.Codec
}

// New creates a Service.
func New(st store.Store, codec *store.Codec) *Service {
	return &Service{store: st, codec: codec}
}

// Filter selects transactions. AccountID is plaintext here; the service
// translates it into the deterministic lookup key. Search is applied after
// decryption, so it can reach into encrypted text at the cost of scanning
// the filtered set.
type Filter struct {
	UserID    string
	AccountID string
	Category  string
	Month     string // YYYY-MM
	DateFrom  string // inclusive, YYYY-MM-DD
	DateTo    string // inclusive

	IncludeExcluded bool
	Limit           int64
	Search          string
}

func (s *Service) storeQuery(f Filter) (store.TransactionQuery, error) {
	q := store.TransactionQuery{
		UserID:          f.UserID,
		Category:        f.Category,
		Month:           f.Month,
		DateFrom:        f.DateFrom,
		DateTo:          f.DateTo,
		IncludeExcluded: f.IncludeExcluded,
	}
	// A post-decrypt search must scan the whole filtered set; the limit is
	// applied after matching instead.
	if f.Search == "" {
		q.Limit = f.Limit
	}
	if f.AccountID != "" {
		key, err := s.codec.LookupKey(policy.RecordTransaction, "accountId", f.AccountID)
		if err != nil {
			return q, fmt.Errorf("query: account filter: %w", err)
		}
		q.AccountID = key
	}
	return q, nil
}

// Transactions lists decrypted transactions matching the filter, newest
// first.
func (s *Service) Transactions(ctx context.Context, f Filter) ([]*canonical.Transaction, error) {
	q, err := s.storeQuery(f)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.Transactions().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: listing transactions: %w", err)
	}

	needle := strings.ToLower(f.Search)
	out := make([]*canonical.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := s.codec.OpenTransaction(doc)
		if err != nil {
			return nil, fmt.Errorf("query: decrypting transaction %s: %w", doc.ID, err)
		}
		if needle != "" && !matchesSearch(tx, needle) {
			continue
		}
		out = append(out, tx)
		if f.Search != "" && f.Limit > 0 && int64(len(out)) >= f.Limit {
			break
		}
	}
	return out, nil
}

func matchesSearch(tx *canonical.Transaction, needle string) bool {
	for _, field := range []*string{tx.Description, tx.Counterparty, tx.MerchantName} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

// Totals is an income/expense summary. Expenses is reported as a positive
// magnitude; Net is Income minus Expenses.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Count    int
}

// Totals sums the filtered transactions by sign.
func (s *Service) Totals(ctx context.Context, f Filter) (Totals, error) {
	f.Limit = 0
	txs, err := s.Transactions(ctx, f)
	if err != nil {
		return Totals{}, err
	}

	out := Totals{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return Totals{}, fmt.Errorf("query: transaction %s has unparsable amount: %w", tx.ID, err)
		}
		if amount.Sign() >= 0 {
			out.Income = out.Income.Add(amount)
		} else {
			out.Expenses = out.Expenses.Add(amount.Abs())
		}
		out.Count++
	}
	out.Net = out.Income.Sub(out.Expenses)
	return out, nil
}

// CategorySummary is spend attributed to one category.
type CategorySummary struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// CategoryBreakdown aggregates expenses by category, largest spend first.
// topN bounds the result; zero means all categories.
func (s *Service) CategoryBreakdown(ctx context.Context, f Filter, topN int) ([]CategorySummary, error) {
	f.Limit = 0
	txs, err := s.Transactions(ctx, f)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]*CategorySummary{}
	for _, tx := range txs {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("query: transaction %s has unparsable amount: %w", tx.ID, err)
		}
		if amount.Sign() >= 0 {
			continue
		}
		sum, ok := byCategory[tx.Category]
		if !ok {
			sum = &CategorySummary{Category: tx.Category, Total: decimal.Zero}
			byCategory[tx.Category] = sum
		}
		sum.Total = sum.Total.Add(amount.Abs())
		sum.Count++
	}

	out := make([]CategorySummary, 0, len(byCategory))
	for _, sum := range byCategory {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// MonthlyPoint is one month of the trend.
type MonthlyPoint struct {
	Month    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// MonthlyTrend groups the filtered transactions by booking month, oldest
// first. Transactions without a derivable month are left out.
func (s *Service) MonthlyTrend(ctx context.Context, f Filter) ([]MonthlyPoint, error) {
	f.Limit = 0
	txs, err := s.Transactions(ctx, f)
	if err != nil {
		return nil, err
	}

	byMonth := map[string]*MonthlyPoint{}
	for _, tx := range txs {
		if tx.BookingMonth == "" {
			continue
		}
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("query: transaction %s has unparsable amount: %w", tx.ID, err)
		}
		point, ok := byMonth[tx.BookingMonth]
		if !ok {
			point = &MonthlyPoint{Month: tx.BookingMonth, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[tx.BookingMonth] = point
		}
		if amount.Sign() >= 0 {
			point.Income = point.Income.Add(amount)
		} else {
			point.Expenses = point.Expenses.Add(amount.Abs())
		}
	}

	out := make([]MonthlyPoint, 0, len(byMonth))
	for _, point := range byMonth {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// CounterpartySummary is spend attributed to one counterparty.
type CounterpartySummary struct {
	Counterparty string
	Total        decimal.Decimal
	Count        int
}

// TopCounterparties ranks counterparties by expense volume. Transactions
// without a counterparty fall back to the merchant name and are otherwise
// skipped.
func (s *Service) TopCounterparties(ctx context.Context, f Filter, topN int) ([]CounterpartySummary, error) {
	f.Limit = 0
	txs, err := s.Transactions(ctx, f)
	if err != nil {
		return nil, err
	}

	byName := map[string]*CounterpartySummary{}
	for _, tx := range txs {
		name := deref(tx.Counterparty)
		if name == "" {
			name = deref(tx.MerchantName)
		}
		if name == "" {
			continue
		}
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("query: transaction %s has unparsable amount: %w", tx.ID, err)
		}
		if amount.Sign() >= 0 {
			continue
		}
		sum, ok := byName[name]
		if !ok {
			sum = &CounterpartySummary{Counterparty: name, Total: decimal.Zero}
			byName[name] = sum
		}
		sum.Total = sum.Total.Add(amount.Abs())
		sum.Count++
	}

	out := make([]CounterpartySummary, 0, len(byName))
	for _, sum := range byName {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Counterparty < out[j].Counterparty
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
