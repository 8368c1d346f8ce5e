package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexpass/nexsync/internal/metrics"
	"github.com/nexpass/nexsync/internal/policy"
	"github.com/nexpass/nexsync/internal/providers"
	"github.com/nexpass/nexsync/internal/store"
)

// AccountSync is the result of syncing one account.
type AccountSync struct {
	AccountID        string
	Transactions     BulkResult
	BalancesUpserted int
	Err              error
}

// SyncReport aggregates one SyncUser run.
type SyncReport struct {
	Accounts []AccountSync
}

// Failed counts accounts whose sync did not complete.
func (r *SyncReport) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// SyncUser refreshes every account behind the user's active connections.
// Each account fetches incrementally from its last stored booking date; the
// overlap re-ingests that day's transactions, which the upsert absorbs.
// Account failures are isolated, store failures abort the run.
func (e *Engine) SyncUser(ctx context.Context, userID string, client providers.SyncClient) (*SyncReport, error) {
	conns, err := e.store.Connections().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncUser: listing connections: %w", err)
	}

	report := &SyncReport{}
	for _, conn := range conns {
		if conn.Status != "active" {
			continue
		}
		accounts, err := e.store.Accounts().ListByConnection(ctx, userID, conn.ConnectionID)
		if err != nil {
			return report, fmt.Errorf("SyncUser: listing accounts: %w", err)
		}
		for _, accDoc := range accounts {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			sync := e.syncAccount(ctx, userID, accDoc, client)
			report.Accounts = append(report.Accounts, sync)

			result := "ok"
			if sync.Err != nil {
				result = "failed"
				e.log.Error().Err(sync.Err).
					Str("user_id", userID).
					Msg("Account sync failed")
			}
			metrics.SyncRuns.WithLabelValues(result).Inc()
		}
	}
	return report, nil
}

func (e *Engine) syncAccount(ctx context.Context, userID string, accDoc *store.AccountDoc, client providers.SyncClient) AccountSync {
	acc, err := e.codec.OpenAccount(accDoc)
	if err != nil {
		return AccountSync{Err: fmt.Errorf("opening account: %w", err)}
	}
	out := AccountSync{AccountID: acc.AccountID}

	dateFrom, err := e.store.Transactions().LastBookingDate(ctx, userID, accDoc.AccountID)
	if err != nil {
		out.Err = fmt.Errorf("resolving sync window: %w", err)
		return out
	}

	srcs, err := client.Transactions(ctx, acc.AccountID, dateFrom)
	if err != nil {
		out.Err = fmt.Errorf("fetching transactions: %w", err)
		return out
	}
	out.Transactions, err = e.IngestTransactions(ctx, userID, acc.AccountID, srcs)
	if err != nil {
		out.Err = err
		return out
	}

	balances, err := client.Balances(ctx, acc.AccountID)
	if err != nil {
		out.Err = fmt.Errorf("fetching balances: %w", err)
		return out
	}
	for _, b := range balances {
		if _, err := e.IngestBalance(ctx, userID, acc.AccountID, b); err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Msg("Balance upsert failed")
			continue
		}
		out.BalancesUpserted++
	}
	return out
}

// PurgeResult reports what a disconnect removed.
type PurgeResult struct {
	Transactions int64
	Balances     int64
	Accounts     int64
}

// DisconnectAccount removes an account and everything stored under it. The
// data is gone from the store afterwards; only the provider side retains
// history.
func (e *Engine) DisconnectAccount(ctx context.Context, userID, accountID string) (PurgeResult, error) {
	key, err := e.codec.LookupKey(policy.RecordTransaction, "accountId", accountID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("DisconnectAccount: %w", err)
	}
	return e.purgeAccount(ctx, userID, key)
}

func (e *Engine) purgeAccount(ctx context.Context, userID, accountKey string) (PurgeResult, error) {
	var out PurgeResult
	var err error

	if out.Transactions, err = e.store.Transactions().DeleteByAccount(ctx, userID, accountKey); err != nil {
		return out, fmt.Errorf("purging transactions: %w", err)
	}
	if out.Balances, err = e.store.Balances().DeleteByAccount(ctx, userID, accountKey); err != nil {
		return out, fmt.Errorf("purging balances: %w", err)
	}
	switch err = e.store.Accounts().Delete(ctx, userID, accountKey); {
	case err == nil:
		out.Accounts = 1
	case errors.Is(err, store.ErrNotFound):
		// Transactions may outlive their account record; purge is still done.
	default:
		return out, fmt.Errorf("deleting account: %w", err)
	}

	e.log.Info().
		Str("user_id", userID).
		Int64("transactions", out.Transactions).
		Int64("balances", out.Balances).
		Msg("Account purged")
	return out, nil
}

// DisconnectConnection removes a bank link, purging every account under it
// first.
func (e *Engine) DisconnectConnection(ctx context.Context, userID, connectionID string) (PurgeResult, error) {
	key, err := e.codec.LookupKey(policy.RecordConnection, "connectionId", connectionID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("DisconnectConnection: %w", err)
	}

	accounts, err := e.store.Accounts().ListByConnection(ctx, userID, key)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("DisconnectConnection: listing accounts: %w", err)
	}

	var total PurgeResult
	for _, accDoc := range accounts {
		res, err := e.purgeAccount(ctx, userID, accDoc.AccountID)
		total.Transactions += res.Transactions
		total.Balances += res.Balances
		total.Accounts += res.Accounts
		if err != nil {
			return total, fmt.Errorf("DisconnectConnection: %w", err)
		}
	}

	if err := e.store.Connections().Delete(ctx, userID, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return total, fmt.Errorf("DisconnectConnection: %w", err)
	}
	return total, nil
}
