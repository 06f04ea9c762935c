package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks series lists served from Redis.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "influxstream_series_cache_hits_total",
			Help: "Total number of series cache hits",
		},
	)

	// cacheMisses tracks lookups that fell through to discovery.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "influxstream_series_cache_misses_total",
			Help: "Total number of series cache misses",
		},
	)

	// cacheErrors tracks cache operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "influxstream_series_cache_errors_total",
			Help: "Total number of series cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "invalidate"
	)

	// entryBytes tracks encoded entry sizes.
	entryBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "influxstream_series_cache_entry_bytes",
			Help:    "Encoded size of series cache entries in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)
)
