package infra

import (
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordTradeExecuted()
	m.RecordTradeExecuted()
	m.RecordThrottleDenial()
	m.RecordSnapshotRebuild()
	m.RecordRebuildFailure()
	m.RecordBroadcastDrop()
	m.RecordDegradedValuation()

	snap := m.Snapshot()
	if snap.TradesExecuted != 2 {
		t.Errorf("Expected 2 trades, got %d", snap.TradesExecuted)
	}
	if snap.ThrottleDenials != 1 {
		t.Errorf("Expected 1 denial, got %d", snap.ThrottleDenials)
	}
	if snap.SnapshotRebuilds != 1 || snap.RebuildFailures != 1 {
		t.Errorf("Expected 1 rebuild and 1 failure, got %d and %d", snap.SnapshotRebuilds, snap.RebuildFailures)
	}
	if snap.BroadcastDrops != 1 || snap.DegradedValuations != 1 {
		t.Errorf("Expected 1 drop and 1 degraded valuation, got %d and %d", snap.BroadcastDrops, snap.DegradedValuations)
	}
}

func TestMetrics_ExecutionLatency(t *testing.T) {
	m := &Metrics{}

	m.RecordExecutionLatency(1000)
	m.RecordExecutionLatency(2000)
	m.RecordExecutionLatency(3000)

	snap := m.Snapshot()

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Observers(t *testing.T) {
	m := &Metrics{}

	m.IncrementObservers()
	m.IncrementObservers()
	m.IncrementObservers()

	snap := m.Snapshot()
	if snap.ActiveObservers != 3 {
		t.Errorf("Expected 3 observers, got %d", snap.ActiveObservers)
	}

	m.DecrementObservers()
	snap = m.Snapshot()
	if snap.ActiveObservers != 2 {
		t.Errorf("Expected 2 observers, got %d", snap.ActiveObservers)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	// Recording on a nil metrics handle must be a no-op, not a panic.
	m.RecordTradeExecuted()
	m.RecordThrottleDenial()
	m.RecordExecutionLatency(100)
	m.IncrementObservers()
	m.DecrementObservers()
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordTradeExecuted()
	m.RecordThrottleDenial()
	m.IncrementObservers()

	m.Reset()
	snap := m.Snapshot()

	if snap.TradesExecuted != 0 {
		t.Error("Expected 0 trades after reset")
	}
	if snap.ThrottleDenials != 0 {
		t.Error("Expected 0 denials after reset")
	}
	if snap.ActiveObservers != 0 {
		t.Error("Expected 0 observers after reset")
	}
}
