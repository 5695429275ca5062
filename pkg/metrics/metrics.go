package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Analytics metrics
	AnalyticsGenerations *prometheus.CounterVec
	AnalyticsDuration    prometheus.Histogram
	AnalyticsCoalesced   prometheus.Counter
	AnalyticsCacheHits   *prometheus.CounterVec
	ScoreSource          *prometheus.CounterVec

	// Realtime metrics
	RealtimeSubscriptions prometheus.Gauge
	RealtimeReconnects    *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec
	OutboxEventsDeleted     prometheus.Counter

	// Edge function metrics
	EdgeCalls   *prometheus.CounterVec
	EdgeLatency *prometheus.HistogramVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		AnalyticsGenerations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "generations_total",
			Help:      "Total number of analytics generations by outcome",
		}, []string{"status"}),
		AnalyticsDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating analytics for one user",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		AnalyticsCoalesced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "coalesced_requests_total",
			Help:      "Generation requests that joined an in-flight computation",
		}),
		AnalyticsCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "cache_lookups_total",
			Help:      "Analytics reads by the layer that served them",
		}, []string{"layer"}),
		ScoreSource: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "score_source_total",
			Help:      "Health scores by the path that produced them",
		}, []string{"source"}),

		RealtimeSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscriptions",
			Help:      "Current number of users with live change subscriptions",
		}),
		RealtimeReconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Subscription reconnect attempts by outcome",
		}, []string{"status"}),

		OutboxEventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		OutboxEventsDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_deleted_total",
			Help:      "Processed outbox events removed by retention cleanup",
		}),

		EdgeCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "edge",
			Name:      "calls_total",
			Help:      "Edge function invocations by function and outcome",
		}, []string{"function", "status"}),
		EdgeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "edge",
			Name:      "call_duration_seconds",
			Help:      "Edge function latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"function"}),

		DatabaseOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		RedisOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
	}
}

// NewNop returns metrics registered with a throwaway registry, for tests and tools.
func NewNop() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

// Status renders an error as the "success"/"error" label value
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
