// Package metrics holds the Prometheus collectors of the filtering pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "landfilter"

// Metrics groups every collector the pipeline reports to
type Metrics struct {
	ExtractionMisses prometheus.Counter
	FilterRuns       prometheus.Counter
	ListingsTotal    prometheus.Gauge
	ListingsHidden   prometheus.Gauge
	StorageFailures  *prometheus.CounterVec
	Commands         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_misses_total",
			Help:      "Floor texts that matched no known pattern.",
		}),
		FilterRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_runs_total",
			Help:      "Full filtering passes over the listing container.",
		}),
		ListingsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Listings present after the last pass.",
		}),
		ListingsHidden: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_hidden",
			Help:      "Listings hidden after the last pass.",
		}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Persistence backend failures by backend and operation.",
		}, []string{"backend", "op"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command surface requests by action and outcome.",
		}, []string{"action", "success"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ExtractionMisses,
			m.FilterRuns,
			m.ListingsTotal,
			m.ListingsHidden,
			m.StorageFailures,
			m.Commands,
		)
	}
	return m
}

// Observe records the outcome of a filtering pass
func (m *Metrics) Observe(total, hidden int) {
	if m == nil {
		return
	}
	m.FilterRuns.Inc()
	m.ListingsTotal.Set(float64(total))
	m.ListingsHidden.Set(float64(hidden))
}
