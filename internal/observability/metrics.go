package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "mechanic_matching", Name: "matches_total", Help: "Total match requests served"})
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "mechanic_matching", Name: "match_latency_seconds", Help: "Match latency seconds"})

	CandidatesConsidered = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mechanic_matching", Name: "candidates_considered", Help: "Candidates surviving the distance pre-filter per request",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	GeocodeFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mechanic_matching", Name: "geocode_fallback_total", Help: "Geocoding provider failures that fell through to the next provider"},
		[]string{"provider"},
	)

	TrackingSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "mechanic_matching", Name: "tracking_sessions_active", Help: "Currently active tracking sessions"})

	NotificationsSent   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "mechanic_matching", Name: "notifications_sent_total", Help: "Mechanic notifications dispatched"})
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "mechanic_matching", Name: "notifications_failed_total", Help: "Mechanic notifications that could not be delivered"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "mechanic_matching", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mechanic_matching",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
