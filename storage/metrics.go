package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for store operations.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partyplanner_store_operations_total",
			Help: "Store operations by kind, key and result.",
		}, []string{"op", "key", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "partyplanner_store_operation_duration_seconds",
			Help:    "Store operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op string, key Key, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, string(key), result).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}
