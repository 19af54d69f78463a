package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the API server.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	SyncTotal     *prometheus.CounterVec // result: ok, error, conflict
	SyncNewItems  prometheus.Counter
	SyncDuration  prometheus.Histogram
	SyncQueued    prometheus.Counter
	ResolveTotal  *prometheus.CounterVec // result: ok, unresolvable, error
	CacheFailures prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics registered on the default registry.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channeldesk_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "channeldesk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SyncTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channeldesk_sync_total",
			Help: "Channel sync attempts by result",
		}, []string{"result"}),
		SyncNewItems: f.NewCounter(prometheus.CounterOpts{
			Name: "channeldesk_sync_new_items_total",
			Help: "Videos newly ingested by syncs",
		}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "channeldesk_sync_duration_seconds",
			Help:    "Duration of a single channel sync",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		SyncQueued: f.NewCounter(prometheus.CounterOpts{
			Name: "channeldesk_sync_queued_total",
			Help: "Sync jobs enqueued for the background worker",
		}),
		ResolveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channeldesk_resolve_total",
			Help: "Channel URL resolutions by result",
		}, []string{"result"}),
		CacheFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "channeldesk_cache_failures_total",
			Help: "Redis cache read/write/invalidate failures",
		}),
	}
}
