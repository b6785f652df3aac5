package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one graph instance. A nil *Registry is
// valid and records nothing, so instrumentation can be disabled by config.
type Registry struct {
	// Communicator metrics
	CommMessagesTotal  *prometheus.CounterVec
	CommBytesTotal     *prometheus.CounterVec
	CollectiveDuration *prometheus.HistogramVec
	CommAbortsTotal    prometheus.Counter

	// Shuffle metrics
	ShuffleRecordsTotal *prometheus.CounterVec
	ShuffleBytesTotal   *prometheus.CounterVec
	ShuffleDuration     prometheus.Histogram

	// Partition metrics
	PartitionsTotal       prometheus.Counter
	PartitionPhase        *prometheus.HistogramVec
	PartitionCutRatio     prometheus.Gauge
	PartitionLoadBalance  prometheus.Gauge
	AdjacencyReadyTotal   prometheus.Counter
	AdjacencyReadySeconds prometheus.Histogram

	// Network metrics
	NetworkBuses       *prometheus.GaugeVec
	NetworkBranches    *prometheus.GaugeVec
	NetworkCleansTotal prometheus.Counter

	// Ghost exchange metrics
	GhostSchedulesTotal *prometheus.CounterVec
	GhostUpdatesTotal   *prometheus.CounterVec
	GhostBytesTotal     *prometheus.CounterVec
	GhostUpdateDuration *prometheus.HistogramVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initCommMetrics()
	r.initShuffleMetrics()
	r.initPartitionMetrics()
	r.initNetworkMetrics()
	r.initGhostMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
