package metrics

import (
	"runtime"
	"strconv"
	"time"
)

// Every recorder tolerates a nil receiver.

// RecordMessage records one point-to-point message.
func (r *Registry) RecordMessage(rank int, direction string, bytes int) {
	if r == nil {
		return
	}
	rs := strconv.Itoa(rank)
	r.CommMessagesTotal.WithLabelValues(rs, direction).Inc()
	r.CommBytesTotal.WithLabelValues(rs, direction).Add(float64(bytes))
}

// RecordCollective records the duration of a collective call.
func (r *Registry) RecordCollective(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.CollectiveDuration.WithLabelValues(name).Observe(d.Seconds())
}

// RecordAbort counts a communicator abort.
func (r *Registry) RecordAbort() {
	if r == nil {
		return
	}
	r.CommAbortsTotal.Inc()
}

// RecordShuffle records one shuffle invocation on one rank.
func (r *Registry) RecordShuffle(rank, sentRecords, recvRecords, sentBytes, recvBytes int, d time.Duration) {
	if r == nil {
		return
	}
	rs := strconv.Itoa(rank)
	r.ShuffleRecordsTotal.WithLabelValues(rs, "sent").Add(float64(sentRecords))
	r.ShuffleRecordsTotal.WithLabelValues(rs, "received").Add(float64(recvRecords))
	r.ShuffleBytesTotal.WithLabelValues(rs, "sent").Add(float64(sentBytes))
	r.ShuffleBytesTotal.WithLabelValues(rs, "received").Add(float64(recvBytes))
	r.ShuffleDuration.Observe(d.Seconds())
}

// RecordPartitionPhase records the duration of one partition phase.
func (r *Registry) RecordPartitionPhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.PartitionPhase.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordPartition counts a completed partition.
func (r *Registry) RecordPartition() {
	if r == nil {
		return
	}
	r.PartitionsTotal.Inc()
}

// SetPartitionQuality publishes partition quality figures.
func (r *Registry) SetPartitionQuality(cutRatio, loadBalance float64) {
	if r == nil {
		return
	}
	r.PartitionCutRatio.Set(cutRatio)
	r.PartitionLoadBalance.Set(loadBalance)
}

// RecordAdjacency records one adjacency list construction.
func (r *Registry) RecordAdjacency(d time.Duration) {
	if r == nil {
		return
	}
	r.AdjacencyReadyTotal.Inc()
	r.AdjacencyReadySeconds.Observe(d.Seconds())
}

// SetNetworkCounts publishes the local owned/ghost entity counts.
func (r *Registry) SetNetworkCounts(rank, ownedBuses, ghostBuses, ownedBranches, ghostBranches int) {
	if r == nil {
		return
	}
	rs := strconv.Itoa(rank)
	r.NetworkBuses.WithLabelValues(rs, "owned").Set(float64(ownedBuses))
	r.NetworkBuses.WithLabelValues(rs, "ghost").Set(float64(ghostBuses))
	r.NetworkBranches.WithLabelValues(rs, "owned").Set(float64(ownedBranches))
	r.NetworkBranches.WithLabelValues(rs, "ghost").Set(float64(ghostBranches))
}

// RecordClean counts a clean operation.
func (r *Registry) RecordClean() {
	if r == nil {
		return
	}
	r.NetworkCleansTotal.Inc()
}

// RecordGhostSchedule counts a ghost exchange schedule computation.
func (r *Registry) RecordGhostSchedule(class string) {
	if r == nil {
		return
	}
	r.GhostSchedulesTotal.WithLabelValues(class).Inc()
}

// RecordGhostUpdate records one ghost exchange update.
func (r *Registry) RecordGhostUpdate(class string, bytes int, d time.Duration) {
	if r == nil {
		return
	}
	r.GhostUpdatesTotal.WithLabelValues(class).Inc()
	r.GhostBytesTotal.WithLabelValues(class).Add(float64(bytes))
	r.GhostUpdateDuration.WithLabelValues(class).Observe(d.Seconds())
}

// UpdateSystemMetrics refreshes uptime, goroutine and heap gauges.
func (r *Registry) UpdateSystemMetrics() {
	if r == nil {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(ms.Alloc))
}
