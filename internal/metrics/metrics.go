package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffpreview_extractions_total",
			Help: "Total number of extraction runs",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffpreview_extraction_duration_seconds",
			Help:    "Wall-clock duration of extraction runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	ThumbnailsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffpreview_thumbnails_written_total",
			Help: "Total number of thumbnail images produced",
		},
	)

	ExtractionInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffpreview_extraction_in_flight",
			Help: "Whether an extraction is currently running (0 or 1)",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffpreview_cache_hits_total",
			Help: "Total number of requests served from an existing manifest",
		},
	)

	CacheRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffpreview_cache_rebuilds_total",
			Help: "Total number of rebuild decisions",
		},
		[]string{"reason"},
	)

	// Probe metrics
	ProbeFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffpreview_probe_fallbacks_total",
			Help: "Probe strategies attempted after the previous one failed",
		},
		[]string{"stage"},
	)

	ProbeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffpreview_probe_failures_total",
			Help: "Videos for which every probe strategy failed",
		},
	)
)
