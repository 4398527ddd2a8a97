// Package metrics exposes Prometheus instruments for the indexing and
// retrieval pipeline. Instruments live on a private registry served by
// Handler, so embedding ragdesk never collides with a host's default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ragdesk"

// Outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeAnswered  = "answered"
	OutcomeNoContext = "no_context"
)

var (
	// IndexRuns counts index attempts by outcome.
	IndexRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_runs_total",
		Help:      "Document index attempts by outcome.",
	}, []string{"outcome"})

	// IndexedChunks counts chunks committed to the index.
	IndexedChunks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "indexed_chunks_total",
		Help:      "Chunks embedded and committed.",
	})

	// RolledBackPoints counts vectors deleted while undoing a failed attempt.
	RolledBackPoints = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rolled_back_points_total",
		Help:      "Vector points removed by index rollback.",
	})

	// Retrievals counts chat answers by outcome.
	Retrievals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrievals_total",
		Help:      "Chat retrievals by outcome.",
	}, []string{"outcome"})

	// ProviderDuration observes external provider call latency.
	ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_seconds",
		Help:      "Latency of embedding, vector and LLM calls.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"provider", "operation", "status"})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		IndexRuns,
		IndexedChunks,
		RolledBackPoints,
		Retrievals,
		ProviderDuration,
		collectors.NewGoCollector(),
	)
}

// Registry returns the registry holding all ragdesk instruments.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveProvider records the duration of a provider call started at start.
func ObserveProvider(provider, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderDuration.WithLabelValues(provider, operation, status).Observe(time.Since(start).Seconds())
}
