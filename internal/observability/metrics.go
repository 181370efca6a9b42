package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Toggle outcomes reported on ToggleTransitions.
const (
	ToggleCreated  = "created"
	ToggleNoop     = "noop"
	ToggleRemoved  = "removed"
	ToggleConflict = "conflict"
)

var (
	// ToggleTransitions counts relationship toggle results by relation and outcome.
	ToggleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_toggle_transitions_total",
		Help: "Relationship toggle transitions by relation and outcome",
	}, []string{"relation", "outcome"})

	// BlobDeleteFailures counts best-effort media deletions that failed.
	BlobDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_blob_delete_failures_total",
		Help: "Media blob deletions that failed and were skipped",
	})

	// WebhookEvents counts identity webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_webhook_events_total",
		Help: "Identity webhook deliveries by event type and outcome",
	}, []string{"type", "outcome"})

	// EngagementBatchSize records how many posts each aggregation pass enriched.
	EngagementBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "murmur_engagement_batch_size",
		Help:    "Number of posts enriched per engagement aggregation pass",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
	})

	// RateLimitDecisions counts limiter decisions by budget and outcome
	// (allowed, rejected, store_error).
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_rate_limit_decisions_total",
		Help: "Rate limiter decisions by budget and outcome",
	}, []string{"limit", "outcome"})

	// DatabaseQueryLatency records repository query latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "murmur_db_query_duration_seconds",
		Help:    "Repository query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
