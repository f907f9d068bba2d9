package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtflow_backend_requests_total",
		Help: "Calls made to the collection backend, by operation and status.",
	}, []string{"op", "status"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtflow_backend_request_duration_seconds",
		Help:    "Latency of calls made to the collection backend.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func observeCall(op, status string, elapsed time.Duration) {
	callsTotal.WithLabelValues(op, status).Inc()
	callDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
