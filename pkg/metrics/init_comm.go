package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCommMetrics() {
	r.CommMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_comm_messages_total",
			Help: "Point-to-point messages moved by the communicator",
		},
		[]string{"rank", "direction"}, // sent, received
	)

	r.CommBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_comm_bytes_total",
			Help: "Payload bytes moved by the communicator",
		},
		[]string{"rank", "direction"},
	)

	r.CollectiveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridgraph_collective_duration_seconds",
			Help:    "Wall time spent inside collective operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"collective"},
	)

	r.CommAbortsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridgraph_comm_aborts_total",
			Help: "Communicator aborts caused by fatal collective failures",
		},
	)
}

func (r *Registry) initShuffleMetrics() {
	r.ShuffleRecordsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_shuffle_records_total",
			Help: "Records redistributed by the shuffler",
		},
		[]string{"rank", "direction"},
	)

	r.ShuffleBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_shuffle_bytes_total",
			Help: "Compressed shuffle payload bytes",
		},
		[]string{"rank", "direction"},
	)

	r.ShuffleDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridgraph_shuffle_duration_seconds",
			Help:    "Duration of shuffle collectives",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
}
