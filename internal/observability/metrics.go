// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error taxonomy labels for SkippedTransactions and SessionErrors.
const (
	ErrorRateLimited        = "rate_limited"
	ErrorNotApplicable      = "not_applicable"
	ErrorBelowThreshold     = "below_threshold"
	ErrorMissingData        = "missing_data"
	ErrorPersistenceFailure = "persistence_failure"
	ErrorStartupFatal       = "startup_fatal"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Watch metrics
	SignaturesListed     prometheus.Counter
	TradesDetected       *prometheus.CounterVec
	SkippedTransactions  *prometheus.CounterVec
	SessionErrors        *prometheus.CounterVec
	LastConfirmedTradeTs prometheus.Gauge

	// Decision metrics
	OrdersPlaced       *prometheus.CounterVec
	OrdersFailed       *prometheus.CounterVec
	CooldownSuppressed prometheus.Counter
	BatchesEvaluated   prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCRetries     prometheus.Counter

	// Ledger metrics
	LedgerRecords prometheus.Gauge
	LedgerWrites  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "contrarian"
	}

	return &Metrics{
		SignaturesListed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "signatures_listed_total",
			Help:      "Total number of transaction signatures returned by polling",
		}),
		TradesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "trades_detected_total",
			Help:      "Total number of classified trades by side",
		}, []string{"side"}),
		SkippedTransactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "skipped_transactions_total",
			Help:      "Total number of skipped transactions by reason",
		}, []string{"reason"}),
		SessionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "session_errors_total",
			Help:      "Total number of session errors by category",
		}, []string{"category"}),
		LastConfirmedTradeTs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "last_confirmed_trade_timestamp",
			Help:      "Unix timestamp of the newest confirmed trade",
		}),

		OrdersPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed by side",
		}, []string{"side"}),
		OrdersFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "orders_failed_total",
			Help:      "Total number of failed order placements by side",
		}, []string{"side"}),
		CooldownSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "cooldown_suppressed_total",
			Help:      "Total number of detections suppressed by the cooldown window",
		}),
		BatchesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "batches_evaluated_total",
			Help:      "Total number of ledger windows evaluated",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_retries_total",
			Help:      "Total number of rate-limited RPC retries",
		}),

		LedgerRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "records",
			Help:      "Current number of records in the trade ledger",
		}),
		LedgerWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "writes_total",
			Help:      "Total number of ledger writes by mode",
		}, []string{"mode"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSkip increments the skip counter for a taxonomy reason.
func (m *Metrics) RecordSkip(reason string) {
	m.SkippedTransactions.WithLabelValues(reason).Inc()
}

// RecordTrade increments the detected-trade counter and advances the
// last confirmed trade timestamp.
func (m *Metrics) RecordTrade(side string, unixTime int64) {
	m.TradesDetected.WithLabelValues(side).Inc()
	m.LastConfirmedTradeTs.Set(float64(unixTime))
}

// RecordRPCLatency records RPC call latency.
func (m *Metrics) RecordRPCLatency(method string, seconds float64) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
