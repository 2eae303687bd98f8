// Package metrics holds the Prometheus collectors exported by the server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inventar"

// Metrics groups the collectors.
type Metrics struct {
	movements     *prometheus.CounterVec
	loans         *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	notifications *prometheus.GaugeVec
	requests      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_total",
			Help:      "Ledger entries appended, by type and reason.",
		}, []string{"type", "reason"}),
		loans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Loan lifecycle transitions.",
		}, []string{"event"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_operations_total",
			Help:      "Core operations rejected before any write, by cause.",
		}, []string{"operation", "cause"}),
		notifications: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications",
			Help:      "Stored notifications after the last refresh.",
		}, []string{"type"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	reg.MustRegister(m.movements, m.loans, m.rejections, m.notifications, m.requests)
	return m
}

// MovementRecorded counts one ledger append.
func (m *Metrics) MovementRecorded(typ, reason string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(typ, reason).Inc()
}

// LoanEvent counts a loan transition such as "created" or "returned".
func (m *Metrics) LoanEvent(event string) {
	if m == nil {
		return
	}
	m.loans.WithLabelValues(event).Inc()
}

// Rejected counts an operation refused with the given cause.
func (m *Metrics) Rejected(operation, cause string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, cause).Inc()
}

// NotificationsStored sets the stored notification count for a type.
func (m *Metrics) NotificationsStored(typ string, n int) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(typ).Set(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
