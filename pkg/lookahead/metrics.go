package lookahead

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for prefetch operations.
var (
	lookaheadWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "influxstream_lookahead_wait_seconds",
		Help:    "Time the consumer spent blocked on the oldest prefetch task",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	lookaheadTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "influxstream_lookahead_tasks_total",
		Help: "Total prefetch tasks by result",
	}, []string{"result"}) // "ok", "eof", "error", "order_violation"
)
