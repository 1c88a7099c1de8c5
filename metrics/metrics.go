// Package metrics exposes the coordinator's Prometheus instrumentation,
// registered on the api package's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContributionsTotal counts contribution documents recorded by the
	// Verifier, partitioned by circuit and validity.
	ContributionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ceremony",
		Name:      "contributions_total",
		Help:      "Total contribution documents recorded, by circuit and validity.",
	}, []string{"circuit_id", "valid"})

	// VerificationDuration observes the wall-clock time the Verifier
	// handler spends per invocation.
	VerificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ceremony",
		Name:      "verification_duration_seconds",
		Help:      "Time spent in the verifyContribution handler.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // ~1s to ~2h
	}, []string{"circuit_id"})

	// QueueDepth reports the current length of a circuit's waiting queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ceremony",
		Name:      "queue_depth",
		Help:      "Number of contributors currently queued for a circuit.",
	}, []string{"circuit_id"})

	// FinalizationsTotal counts successful finalizeCircuit invocations.
	FinalizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ceremony",
		Name:      "finalizations_total",
		Help:      "Total circuits finalized.",
	}, []string{"circuit_id"})
)
