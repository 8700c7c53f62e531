package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "peopledir"

// Store operation outcomes.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "collection"},
	)

	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of document store operations",
		},
		[]string{"op", "collection", "status"},
	)

	// AggregateCacheTotal counts aggregate cache lookups by result ("hit" / "miss").
	AggregateCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_cache_total",
			Help:      "Aggregate cache hits and misses",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			storeOperationDuration,
			storeOperationsTotal,
			AggregateCacheTotal,
		)
	})
}

// ObserveStoreOperation records the duration and outcome of a store call
// started at start. notFound classifies errors that mean "no match".
func ObserveStoreOperation(op, collection string, start time.Time, err, notFound error) {
	storeOperationDuration.WithLabelValues(op, collection).Observe(time.Since(start).Seconds())
	storeOperationsTotal.WithLabelValues(op, collection, storeStatus(err, notFound)).Inc()
}

func storeStatus(err, notFound error) string {
	switch {
	case err == nil:
		return StatusOK
	case notFound != nil && errors.Is(err, notFound):
		return StatusNotFound
	default:
		return StatusError
	}
}
