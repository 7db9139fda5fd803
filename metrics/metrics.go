// Package metrics provides prometheus instrumentation for the badge registry
// chaincode. Counters reflect endorsements seen by this chaincode instance,
// not committed ledger state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks transaction outcomes and durations.
type Metrics struct {
	Registry *prometheus.Registry

	BadgesIssued        prometheus.Counter
	BadgesTransferred   prometheus.Counter
	Rejected            *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, including Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		BadgesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeregistry_badges_issued_total",
			Help: "Total number of successful IssueBadge transactions",
		}),
		BadgesTransferred: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeregistry_badges_transferred_total",
			Help: "Total number of successful TransferBadge transactions",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeregistry_rejected_total",
			Help: "Total number of rejected transactions by operation and reason",
		}, []string{"operation", "reason"}),
		TransactionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgeregistry_transaction_duration_seconds",
			Help:    "Duration of registry transactions",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"operation"}),
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued() {
	if m == nil {
		return
	}
	m.BadgesIssued.Inc()
}

// IncrementTransferred records a successful transfer.
func (m *Metrics) IncrementTransferred() {
	if m == nil {
		return
	}
	m.BadgesTransferred.Inc()
}

// IncrementRejected records a failed transaction.
func (m *Metrics) IncrementRejected(operation, reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(operation, reason).Inc()
}

// ObserveTransaction records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransaction(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.TransactionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
