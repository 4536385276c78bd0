// Package metrics exposes Prometheus instrumentation for the namespace service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bucketfs/pkg/models"
)

const namespace = "bucketfs"

var (
	defaultOnce     sync.Once
	defaultInstance *Metrics
)

// Metrics holds every collector of the service.
type Metrics struct {
	Operations        *prometheus.CounterVec   // bucketfs_operations_total{op,result}
	OperationDuration *prometheus.HistogramVec // bucketfs_operation_duration_seconds{op}
	UploadedBytes     prometheus.Counter
	PurgesQueued      prometheus.Counter
	PurgesFailed      prometheus.Counter
	PurgesCompleted   prometheus.Counter
	TreeCacheHits     prometheus.Counter
	TreeCacheMisses   prometheus.Counter
	TreesTruncated    prometheus.Counter
}

// New registers a fresh set of collectors with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Namespace operations by name and result category",
		}, []string{"op", "result"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of namespace operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		UploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes accepted by successful uploads",
		}),

		PurgesQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_purges_queued_total",
			Help:      "Blob deletes handed to the purge queue",
		}),

		PurgesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_purges_failed_total",
			Help:      "Blob deletes that failed and were recorded for reconciliation",
		}),

		PurgesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_purges_completed_total",
			Help:      "Blob deletes that succeeded",
		}),

		TreeCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_cache_hits_total",
			Help:      "Tree requests served from cache",
		}),

		TreeCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_cache_misses_total",
			Help:      "Tree requests that rebuilt the tree",
		}),

		TreesTruncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trees_truncated_total",
			Help:      "Tree requests answered with a lazy tree because the bucket was too large",
		}),
	}
}

// Default returns the collectors registered with the default Prometheus registry.
// Registration happens once.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultInstance = New(prometheus.DefaultRegisterer)
	})
	return defaultInstance
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	m.Operations.WithLabelValues(op, models.Category(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
