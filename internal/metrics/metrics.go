// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groovecal"

var (
	FeedsRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feeds_rendered_total",
		Help:      "Calendar feeds rendered.",
	})

	FeedRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "feed_render_seconds",
		Help:      "Time to build one calendar feed, schedule generation included.",
		Buckets:   prometheus.DefBuckets,
	})

	EventsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_scheduled_total",
		Help:      "Habit sessions placed by the scheduler.",
	})

	HabitsUnplaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habits_unplaced_total",
		Help:      "Due habit sessions that did not fit into any free slot.",
	})

	ScheduleCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schedule_cache_requests_total",
		Help:      "Schedule cache lookups by result.",
	}, []string{"result"})

	WarmRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warm_runs_total",
		Help:      "Schedule pre-generation runs by outcome.",
	}, []string{"outcome"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_active_connections",
		Help:      "HTTP requests currently in flight.",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
