// Package observability wires Prometheus metrics, OpenTelemetry tracing
// and HTTP request logging.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	expensesRecorded  prometheus.Counter
	settlements       prometheus.Counter
	partialFailures   *prometheus.CounterVec
	skippedRecords    *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// ledger metrics in it. A private registry lets tests build any number of
// Metrics without duplicate collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitledger_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		expensesRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "splitledger_expenses_recorded_total",
				Help: "Total expenses written.",
			},
		),
		settlements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "splitledger_settlements_recorded_total",
				Help: "Total settlements written.",
			},
		),
		partialFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_partial_failures_total",
				Help: "Writes whose record was stored but some balance updates failed.",
			},
			[]string{"operation"},
		),
		skippedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_skipped_records_total",
				Help: "Malformed records left out of balance aggregation.",
			},
			[]string{"reason"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_store_errors_total",
				Help: "Failed store calls by operation.",
			},
			[]string{"operation"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExpense increments the recorded expenses counter.
func (m *Metrics) IncrExpense() {
	m.expensesRecorded.Inc()
}

// IncrSettlement increments the recorded settlements counter.
func (m *Metrics) IncrSettlement() {
	m.settlements.Inc()
}

// IncrPartialFailure increments the partial failure counter.
func (m *Metrics) IncrPartialFailure(operation string) {
	m.partialFailures.WithLabelValues(operation).Inc()
}

// AddSkipped adds skip counts keyed by reason.
func (m *Metrics) AddSkipped(counts map[string]int) {
	for reason, n := range counts {
		m.skippedRecords.WithLabelValues(reason).Add(float64(n))
	}
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}
