// Package metrics defines the Prometheus collectors exported by the ledger
// and the RPC layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "splitledger"

// Metrics groups every collector the service exports.
type Metrics struct {
	ExpensesRecorded    *prometheus.CounterVec
	SettlementsRecorded prometheus.Counter
	Rejections          *prometheus.CounterVec
	NettingRuns         prometheus.Counter
	NettingDuration     prometheus.Histogram
	BalanceCacheHits    prometheus.Counter
	RPCDuration         *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExpensesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Expenses appended to the ledger, by split kind.",
		}, []string{"split_kind"}),
		SettlementsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlements appended to the ledger.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Ledger operations rejected, by operation and reason.",
		}, []string{"operation", "reason"}),
		NettingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "netting_runs_total",
			Help:      "Full recomputations of a group's simplified balances.",
		}),
		NettingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "netting_duration_seconds",
			Help:      "Time spent replaying and netting a group's history.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		BalanceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_cache_hits_total",
			Help:      "Balance queries served from the cached simplified graph.",
		}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure and result code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ExpensesRecorded,
			m.SettlementsRecorded,
			m.Rejections,
			m.NettingRuns,
			m.NettingDuration,
			m.BalanceCacheHits,
			m.RPCDuration,
		)
	}
	return m
}

// ExpenseRecorded counts an accepted expense of the given split kind.
func (m *Metrics) ExpenseRecorded(kind string) {
	if m == nil {
		return
	}
	m.ExpensesRecorded.WithLabelValues(kind).Inc()
}

// SettlementRecorded counts an accepted settlement.
func (m *Metrics) SettlementRecorded() {
	if m == nil {
		return
	}
	m.SettlementsRecorded.Inc()
}

// Rejected counts a refused write, labelled by operation and reason.
func (m *Metrics) Rejected(operation, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation, reason).Inc()
}

// Netted records one rebuild of a group's netted balances.
func (m *Metrics) Netted(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.NettingRuns.Inc()
	m.NettingDuration.Observe(elapsed.Seconds())
}

// CacheHit counts a balance query served from the cached netted graph.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.BalanceCacheHits.Inc()
}

// ObserveRPC records the latency of one RPC by procedure and result code.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCDuration.WithLabelValues(procedure, code).Observe(elapsed.Seconds())
}
