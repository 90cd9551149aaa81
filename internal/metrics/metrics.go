// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parcelpicker"

// Query outcomes reported by ObserveQuery.
const (
	OutcomeFound  = "found"
	OutcomeFailed = "failed"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	wmsQueries  *prometheus.CounterVec
	wmsDuration prometheus.Histogram
	selections  *prometheus.CounterVec
	artifacts   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		wmsQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wms_queries_total",
			Help:      "GetFeatureInfo requests sent to the parcel service, by outcome.",
		}, []string{"outcome"}),
		wmsDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wms_query_duration_seconds",
			Help:      "Latency of GetFeatureInfo requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Map clicks handled, by status (added, declined, failed).",
		}, []string{"status"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_generated_total",
			Help:      "Generated download artifacts, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.wmsQueries, m.wmsDuration, m.selections, m.artifacts)
	return m
}

// ObserveQuery records one feature query.
func (m *Metrics) ObserveQuery(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.wmsQueries.WithLabelValues(outcome).Inc()
	m.wmsDuration.Observe(elapsed.Seconds())
}

// ObserveSelection records the status of one click.
func (m *Metrics) ObserveSelection(status string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(status).Inc()
}

// ObserveArtifacts adds n generated artifacts of the given kind.
func (m *Metrics) ObserveArtifacts(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.artifacts.WithLabelValues(kind).Add(float64(n))
}
