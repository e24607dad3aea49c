// Package metrics registers the Prometheus collectors of the fwlens API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fwlens_api_analyses_total",
			Help: "Total number of analysis runs",
		},
		[]string{"source", "status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fwlens_api_search_duration_seconds",
			Help:    "Duration of search backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fwlens_api_records_analyzed_total",
			Help: "Total number of normalized records analyzed",
		},
	)

	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fwlens_api_findings_total",
			Help: "Total number of findings emitted by category",
		},
		[]string{"category"},
	)

	// Auth metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fwlens_api_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fwlens_api_rate_limit_hits_total",
			Help: "Total number of login attempts rejected by the rate limiter",
		},
	)

	// Bus metrics
	FindingsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fwlens_api_findings_published_total",
			Help: "Total number of findings events published to the message bus",
		},
		[]string{"status"},
	)
)
