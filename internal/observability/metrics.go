package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "metrix"

// Metrics holds the Prometheus collectors the engine reports against.
type Metrics struct {
	VendorCallLatency  *prometheus.HistogramVec
	VendorCallErrors   *prometheus.CounterVec
	ItemTerminalStatus *prometheus.CounterVec
	ItemsInFlight      *prometheus.GaugeVec
}

// NewMetrics registers the collector set against reg and returns it. Callers
// pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests, so repeated construction never panics
// on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VendorCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_call_latency_seconds",
			Help:      "Vendor adapter call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"vendor", "capability"}),
		VendorCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_call_errors_total",
			Help:      "Vendor adapter call failures",
		}, []string{"vendor", "capability"}),
		ItemTerminalStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_item_terminal_total",
			Help:      "Run items reaching a terminal status",
		}, []string{"status"}),
		ItemsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_items_in_flight",
			Help:      "Run items currently executing, by run",
		}, []string{"run_id"}),
	}
}

// RecordVendorCall records the outcome and latency of one vendor call.
func (m *Metrics) RecordVendorCall(vendor, capability string, latencySeconds float64, err error) {
	m.VendorCallLatency.WithLabelValues(vendor, capability).Observe(latencySeconds)

	if err != nil {
		m.VendorCallErrors.WithLabelValues(vendor, capability).Inc()
	}
}

// RecordItemTerminal records a run item reaching a terminal status.
func (m *Metrics) RecordItemTerminal(status string) {
	m.ItemTerminalStatus.WithLabelValues(status).Inc()
}

// ItemStarted marks one more item in flight for a run.
func (m *Metrics) ItemStarted(runID string) {
	m.ItemsInFlight.WithLabelValues(runID).Inc()
}

// ItemFinished marks one fewer item in flight for a run.
func (m *Metrics) ItemFinished(runID string) {
	m.ItemsInFlight.WithLabelValues(runID).Dec()
}
