package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPC metrics - Track ledger node traffic
var (
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_rpc_calls_total",
			Help: "Total number of ledger RPC calls by method",
		},
		[]string{"method"},
	)

	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_rpc_errors_total",
			Help: "Total number of failed ledger RPC calls by method",
		},
		[]string{"method"},
	)
)

// History metrics - Track replay and archival volume
var (
	OperationsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainlens_operations_replayed_total",
		Help: "Total number of history operations yielded by replays",
	})

	OperationsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainlens_operations_archived_total",
		Help: "Total number of history operations written to storage",
	})

	ArchiveSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chainlens_archive_sync_duration_seconds",
		Help:    "Time taken to sync one account's history to storage",
		Buckets: prometheus.DefBuckets,
	})
)

// Converter metrics - Track chain constant cache behavior
var (
	CacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_cache_refreshes_total",
			Help: "Total number of chain constant cache refreshes by key",
		},
		[]string{"key"},
	)
)

// Ticker metrics - Track exchange fan-out
var (
	TickerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_ticker_requests_total",
			Help: "Total number of exchange ticker requests by exchange",
		},
		[]string{"exchange"},
	)

	TickerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_ticker_failures_total",
			Help: "Total number of dropped exchange ticker responses by exchange",
		},
		[]string{"exchange"},
	)

	VWAPQuotesUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chainlens_vwap_quotes_used",
		Help:    "Number of exchange quotes surviving into each VWAP computation",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
	})
)

// API metrics - Track HTTP traffic
var (
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainlens_api_requests_total",
			Help: "Total number of API requests by endpoint",
		},
		[]string{"endpoint"},
	)
)
