package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPartitionMetrics() {
	r.PartitionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridgraph_partitions_total",
			Help: "Completed network partitions (counted once per rank)",
		},
	)

	r.PartitionPhase = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridgraph_partition_phase_seconds",
			Help:    "Duration of partition phases",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"phase"}, // index, assign, shuffle, rebuild
	)

	r.PartitionCutRatio = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridgraph_partition_cut_ratio",
			Help: "Fraction of edges crossing partition boundaries",
		},
	)

	r.PartitionLoadBalance = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridgraph_partition_load_balance",
			Help: "Partition balance in [0,1], 1 is perfect",
		},
	)

	r.AdjacencyReadyTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridgraph_adjacency_ready_total",
			Help: "Adjacency list constructions",
		},
	)

	r.AdjacencyReadySeconds = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridgraph_adjacency_ready_seconds",
			Help:    "Duration of adjacency list construction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
}

func (r *Registry) initNetworkMetrics() {
	r.NetworkBuses = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridgraph_network_buses",
			Help: "Buses held locally",
		},
		[]string{"rank", "role"}, // owned, ghost
	)

	r.NetworkBranches = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridgraph_network_branches",
			Help: "Branches held locally",
		},
		[]string{"rank", "role"},
	)

	r.NetworkCleansTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridgraph_network_cleans_total",
			Help: "Clean operations (counted once per rank)",
		},
	)
}

func (r *Registry) initGhostMetrics() {
	r.GhostSchedulesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_ghost_schedules_total",
			Help: "Ghost exchange schedules computed",
		},
		[]string{"class"},
	)

	r.GhostUpdatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_ghost_updates_total",
			Help: "Ghost exchange updates performed",
		},
		[]string{"class"},
	)

	r.GhostBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridgraph_ghost_bytes_total",
			Help: "Buffer bytes copied from owners into ghosts",
		},
		[]string{"class"},
	)

	r.GhostUpdateDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridgraph_ghost_update_duration_seconds",
			Help:    "Duration of ghost exchange updates",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		},
		[]string{"class"},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridgraph_uptime_seconds",
			Help: "Time since the registry was created in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridgraph_goroutines",
			Help: "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridgraph_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
}
