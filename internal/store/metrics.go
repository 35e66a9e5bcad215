package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roriroles"

var (
	actionsReduced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "actions_total",
		Help:      "Actions reduced into application state, by kind.",
	}, []string{"kind"})

	staleDiscarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "stale_results_total",
		Help:      "Envelope results dropped because the token changed or a newer envelope was issued.",
	}, []string{"resource"})

	inflightEnvelopes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "inflight_envelopes",
		Help:      "Async envelopes issued but not yet landed.",
	})

	envelopeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "envelope_duration_seconds",
		Help:      "Time from issuing an envelope to its terminal action.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"resource", "outcome"})
)

// Collectors returns the store metrics for registration
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{actionsReduced, staleDiscarded, inflightEnvelopes, envelopeDuration}
}
