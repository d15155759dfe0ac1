// Package metrics exposes pipeline counters and stage latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mpesa"

// Outcomes of one statement run.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the collectors of the statement pipeline. A nil *Metrics records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	statements    *prometheus.CounterVec
	rows          *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	uncategorized prometheus.Counter
	excluded      prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// New registers the pipeline collectors, plus Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_processed_total",
			Help:      "Statements processed, by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rows_total",
			Help:      "Ledger rows seen by the normalizer, by result.",
		}, []string{"result"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions partitioned, by direction.",
		}, []string{"direction"}),
		uncategorized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uncategorized_transactions_total",
			Help:      "Transactions no rule matched.",
		}),
		excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partition_excluded_total",
			Help:      "Rows with both or neither of Paid In and Withdrawn.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.statements, m.rows, m.transactions, m.uncategorized, m.excluded, m.stageDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Statement(outcome string) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(outcome).Inc()
}

// Rows records what normalization did with the rows of one statement.
func (m *Metrics) Rows(kept, dropped, misaligned int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("kept").Add(float64(kept))
	m.rows.WithLabelValues("dropped").Add(float64(dropped))
	m.rows.WithLabelValues("misaligned").Add(float64(misaligned))
}

// Partition records the sizes of both sub-ledgers and the excluded rows.
func (m *Metrics) Partition(incoming, outgoing, excluded int) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues("incoming").Add(float64(incoming))
	m.transactions.WithLabelValues("outgoing").Add(float64(outgoing))
	m.excluded.Add(float64(excluded))
}

func (m *Metrics) Uncategorized(n int) {
	if m == nil {
		return
	}
	m.uncategorized.Add(float64(n))
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
