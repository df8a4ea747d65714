package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	tradesExecuted     atomic.Uint64
	throttleDenials    atomic.Uint64
	snapshotRebuilds   atomic.Uint64
	rebuildFailures    atomic.Uint64
	broadcastDrops     atomic.Uint64
	degradedValuations atomic.Uint64

	// Execution latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeObservers atomic.Int32
}

// RecordTradeExecuted records a committed trade.
func (m *Metrics) RecordTradeExecuted() {
	if m == nil {
		return
	}
	m.tradesExecuted.Add(1)
}

// RecordExecutionLatency records one execution round trip.
func (m *Metrics) RecordExecutionLatency(latencyNs int64) {
	if m == nil {
		return
	}
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordThrottleDenial records an order denied by admission control.
func (m *Metrics) RecordThrottleDenial() {
	if m == nil {
		return
	}
	m.throttleDenials.Add(1)
}

// RecordSnapshotRebuild records a completed ranking rebuild.
func (m *Metrics) RecordSnapshotRebuild() {
	if m == nil {
		return
	}
	m.snapshotRebuilds.Add(1)
}

// RecordRebuildFailure records a ranking rebuild that errored and left
// the previous snapshot in place.
func (m *Metrics) RecordRebuildFailure() {
	if m == nil {
		return
	}
	m.rebuildFailures.Add(1)
}

// RecordBroadcastDrop records an observer dropped for failed delivery.
func (m *Metrics) RecordBroadcastDrop() {
	if m == nil {
		return
	}
	m.broadcastDrops.Add(1)
}

// RecordDegradedValuation records a holding valued at cost basis
// because no live price was available.
func (m *Metrics) RecordDegradedValuation() {
	if m == nil {
		return
	}
	m.degradedValuations.Add(1)
}

// IncrementObservers increments active observers by 1.
func (m *Metrics) IncrementObservers() {
	if m == nil {
		return
	}
	m.activeObservers.Add(1)
}

// DecrementObservers decrements active observers by 1.
func (m *Metrics) DecrementObservers() {
	if m == nil {
		return
	}
	m.activeObservers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TradesExecuted     uint64
	ThrottleDenials    uint64
	SnapshotRebuilds   uint64
	RebuildFailures    uint64
	BroadcastDrops     uint64
	DegradedValuations uint64
	AvgLatencyNs       int64
	ActiveObservers    int32
	Timestamp          time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TradesExecuted:     m.tradesExecuted.Load(),
		ThrottleDenials:    m.throttleDenials.Load(),
		SnapshotRebuilds:   m.snapshotRebuilds.Load(),
		RebuildFailures:    m.rebuildFailures.Load(),
		BroadcastDrops:     m.broadcastDrops.Load(),
		DegradedValuations: m.degradedValuations.Load(),
		AvgLatencyNs:       avgLatency,
		ActiveObservers:    m.activeObservers.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.tradesExecuted.Store(0)
	m.throttleDenials.Store(0)
	m.snapshotRebuilds.Store(0)
	m.rebuildFailures.Store(0)
	m.broadcastDrops.Store(0)
	m.degradedValuations.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeObservers.Store(0)
}
