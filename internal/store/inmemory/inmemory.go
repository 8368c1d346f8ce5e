// Package inmemory provides a map-backed implementation of the store
// interfaces for tests and local development. Semantics mirror the mongo
// implementation: the same natural keys, the same upsert behavior, the same
// ciphertext-at-rest documents.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/nexpass/nexsync/internal/store"
)

// Store is an in-memory store.Store. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	transactions map[string]*store.TransactionDoc
	accounts     map[string]*store.AccountDoc
	balances     map[string]*store.BalanceDoc
	connections  map[string]*store.ConnectionDoc
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		transactions: make(map[string]*store.TransactionDoc),
		accounts:     make(map[string]*store.AccountDoc),
		balances:     make(map[string]*store.BalanceDoc),
		connections:  make(map[string]*store.ConnectionDoc),
	}
}

func (s *Store) Transactions() store.TransactionStore { return (*transactionStore)(s) }
func (s *Store) Accounts() store.AccountStore         { return (*accountStore)(s) }
func (s *Store) Balances() store.BalanceStore         { return (*balanceStore)(s) }
func (s *Store) Connections() store.ConnectionStore   { return (*connectionStore)(s) }

func key(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\x00"
		}
		out += p
	}
	return out
}

type transactionStore Store

func (s *transactionStore) Upsert(ctx context.Context, doc *store.TransactionDoc) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(doc.UserID, doc.TransactionID)
	existing, ok := s.transactions[k]
	if !ok {
		cp := *doc
		s.transactions[k] = &cp
		return store.UpsertResult{Inserted: true}, nil
	}

	cp := *doc
	cp.ID = existing.ID
	cp.CreatedAt = existing.CreatedAt
	// User-owned fields survive re-sync.
	cp.Category = existing.Category
	cp.Exclude = existing.Exclude
	s.transactions[k] = &cp
	return store.UpsertResult{Inserted: false}, nil
}

func (s *transactionStore) FindByKey(ctx context.Context, userID, transactionID string) (*store.TransactionDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.transactions[key(userID, transactionID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *transactionStore) UpdateUserFields(ctx context.Context, userID, docID string, upd store.TransactionFieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.transactions {
		if doc.UserID != userID || doc.ID != docID {
			continue
		}
		if upd.Category != nil {
			doc.Category = *upd.Category
		}
		if upd.Exclude != nil {
			doc.Exclude = *upd.Exclude
		}
		if upd.Description != nil {
			doc.Description = upd.Description
		}
		if upd.Counterparty != nil {
			doc.Counterparty = upd.Counterparty
		}
		return nil
	}
	return store.ErrNotFound
}

func (s *transactionStore) List(ctx context.Context, q store.TransactionQuery) ([]*store.TransactionDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.TransactionDoc
	for _, doc := range s.transactions {
		if !matches(doc, q) {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingDate != out[j].BookingDate {
			return out[i].BookingDate > out[j].BookingDate
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(doc *store.TransactionDoc, q store.TransactionQuery) bool {
	if doc.UserID != q.UserID {
		return false
	}
	if q.AccountID != "" && doc.AccountID != q.AccountID {
		return false
	}
	if q.Category != "" && doc.Category != q.Category {
		return false
	}
	if q.Month != "" && doc.BookingMonth != q.Month {
		return false
	}
	if q.DateFrom != "" && doc.BookingDate < q.DateFrom {
		return false
	}
	if q.DateTo != "" && doc.BookingDate > q.DateTo {
		return false
	}
	if !q.IncludeExcluded && doc.Exclude {
		return false
	}
	return true
}

func (s *transactionStore) LastBookingDate(ctx context.Context, userID, accountID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := ""
	for _, doc := range s.transactions {
		if doc.UserID != userID || doc.AccountID != accountID {
			continue
		}
		if doc.BookingDate > last {
			last = doc.BookingDate
		}
	}
	return last, nil
}

func (s *transactionStore) DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, doc := range s.transactions {
		if doc.UserID == userID && doc.AccountID == accountID {
			delete(s.transactions, k)
			n++
		}
	}
	return n, nil
}

type accountStore Store

func (s *accountStore) Upsert(ctx context.Context, doc *store.AccountDoc) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(doc.UserID, doc.AccountID)
	existing, ok := s.accounts[k]
	cp := *doc
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	s.accounts[k] = &cp
	return store.UpsertResult{Inserted: !ok}, nil
}

func (s *accountStore) ListByUser(ctx context.Context, userID string) ([]*store.AccountDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.AccountDoc
	for _, doc := range s.accounts {
		if doc.UserID == userID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (s *accountStore) ListByConnection(ctx context.Context, userID, connectionID string) ([]*store.AccountDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.AccountDoc
	for _, doc := range s.accounts {
		if doc.UserID == userID && doc.ConnectionID == connectionID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sortAccounts(out)
	return out, nil
}

func sortAccounts(docs []*store.AccountDoc) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func (s *accountStore) Delete(ctx context.Context, userID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, accountID)
	if _, ok := s.accounts[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, k)
	return nil
}

type balanceStore Store

func (s *balanceStore) Upsert(ctx context.Context, doc *store.BalanceDoc) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(doc.UserID, doc.AccountID, doc.BalanceType)
	existing, ok := s.balances[k]
	cp := *doc
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	s.balances[k] = &cp
	return store.UpsertResult{Inserted: !ok}, nil
}

func (s *balanceStore) ListByAccount(ctx context.Context, userID, accountID string) ([]*store.BalanceDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.BalanceDoc
	for _, doc := range s.balances {
		if doc.UserID == userID && doc.AccountID == accountID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BalanceType < out[j].BalanceType })
	return out, nil
}

func (s *balanceStore) DeleteByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, doc := range s.balances {
		if doc.UserID == userID && doc.AccountID == accountID {
			delete(s.balances, k)
			n++
		}
	}
	return n, nil
}

type connectionStore Store

func (s *connectionStore) Upsert(ctx context.Context, doc *store.ConnectionDoc) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(doc.UserID, doc.ConnectionID)
	existing, ok := s.connections[k]
	cp := *doc
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	s.connections[k] = &cp
	return store.UpsertResult{Inserted: !ok}, nil
}

func (s *connectionStore) ListByUser(ctx context.Context, userID string) ([]*store.ConnectionDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.ConnectionDoc
	for _, doc := range s.connections {
		if doc.UserID == userID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sortConnections(out)
	return out, nil
}

func (s *connectionStore) ListByStatus(ctx context.Context, status string) ([]*store.ConnectionDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*store.ConnectionDoc
	for _, doc := range s.connections {
		if doc.Status == status {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sortConnections(out)
	return out, nil
}

func sortConnections(docs []*store.ConnectionDoc) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func (s *connectionStore) Delete(ctx context.Context, userID, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, connectionID)
	if _, ok := s.connections[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.connections, k)
	return nil
}
