// Package metrics exposes the pipeline's Prometheus collectors. Collectors
// are registered on the default registry at init via promauto and shared by
// whichever command is running.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsIngested counts ingested transactions by provider and
	// outcome (inserted, updated, failed).
	TransactionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexsync_transactions_ingested_total",
		Help: "Transactions processed by the ingestion engine.",
	}, []string{"provider", "outcome"})

	// Classifications counts classifier resolutions by tier.
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexsync_classifications_total",
		Help: "Category resolutions by classifier tier.",
	}, []string{"tier"})

	// ClassificationFailures counts records degraded to Uncategorized.
	ClassificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexsync_classification_failures_total",
		Help: "Classifications that degraded to the Uncategorized fallback.",
	})

	// EncryptionFailures counts records dropped because sealing failed.
	EncryptionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexsync_encryption_failures_total",
		Help: "Records not stored because field encryption failed.",
	})

	// BulkIngestDuration observes wall time of bulk ingestion batches.
	BulkIngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexsync_bulk_ingest_duration_seconds",
		Help:    "Duration of bulk transaction ingestion batches.",
		Buckets: prometheus.DefBuckets,
	})

	// SyncRuns counts account sync attempts by result.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexsync_account_syncs_total",
		Help: "Per-account sync attempts by result (ok, failed).",
	}, []string{"result"})
)
