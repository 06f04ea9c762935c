package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "influxstream_pages_fetched_total",
			Help: "Total number of page queries by outcome (ok, empty, error)",
		},
		[]string{"outcome"},
	)

	pageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "influxstream_page_fetch_duration_seconds",
			Help:    "Duration of single page queries in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	pageRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "influxstream_page_rows",
			Help:    "Number of rows returned per page query",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		},
	)
)
