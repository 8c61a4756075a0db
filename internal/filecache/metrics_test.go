package filecache

import (
	"testing"
	"time"
)

func TestMetrics_RecordHitMiss(t *testing.T) {
	m := NewMetrics()

	m.RecordHit(KindModule, 1024)
	m.RecordHit(KindAsset, 2048)
	m.RecordMiss(KindModule)
	m.RecordStale(KindAsset)

	snapshot := m.Snapshot()

	if snapshot.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", snapshot.Hits)
	}
	if snapshot.Misses != 2 {
		t.Errorf("Expected 2 misses (stale included), got %d", snapshot.Misses)
	}
	if snapshot.Stale != 1 {
		t.Errorf("Expected 1 stale read, got %d", snapshot.Stale)
	}
	if snapshot.BytesServed != 3072 {
		t.Errorf("Expected 3072 bytes served, got %d", snapshot.BytesServed)
	}
	if snapshot.ModuleGets != 2 || snapshot.AssetGets != 2 {
		t.Errorf("Expected 2 module and 2 asset gets, got %d and %d", snapshot.ModuleGets, snapshot.AssetGets)
	}
	if snapshot.HitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", snapshot.HitRate)
	}
}

func TestMetrics_HitRateEmpty(t *testing.T) {
	if rate := NewMetrics().Snapshot().HitRate; rate != 0 {
		t.Errorf("Expected hit rate 0 with no lookups, got %f", rate)
	}
}

func TestMetrics_PutsAndErrors(t *testing.T) {
	m := NewMetrics()

	m.RecordPut(KindModule, 100)
	m.RecordPut(KindAsset, 50)
	m.RecordError()

	snapshot := m.Snapshot()
	if snapshot.Puts != 2 {
		t.Errorf("Expected 2 puts, got %d", snapshot.Puts)
	}
	if snapshot.BytesStored != 150 {
		t.Errorf("Expected 150 bytes stored, got %d", snapshot.BytesStored)
	}
	if snapshot.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", snapshot.Errors)
	}
}

func TestMetrics_Latency(t *testing.T) {
	m := NewMetrics()

	m.RecordLatency(OpGet, 10*time.Millisecond)
	m.RecordLatency(OpGet, 30*time.Millisecond)
	m.RecordLatency(OpPut, 5*time.Millisecond)
	m.RecordLatency(OpEnsureDirectory, time.Second)

	snapshot := m.Snapshot()
	if snapshot.AverageGetLatency != 20*time.Millisecond {
		t.Errorf("Expected 20ms average get latency, got %v", snapshot.AverageGetLatency)
	}
	if snapshot.AveragePutLatency != 5*time.Millisecond {
		t.Errorf("Expected 5ms average put latency, got %v", snapshot.AveragePutLatency)
	}
	if snapshot.GetLatencySamples != 2 || snapshot.PutLatencySamples != 1 {
		t.Errorf("Unexpected sample counts: get=%d put=%d", snapshot.GetLatencySamples, snapshot.PutLatencySamples)
	}
}

func TestMetrics_LatencyWindowIsBounded(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxLatencySamples+1; i++ {
		m.RecordLatency(OpGet, time.Millisecond)
	}
	if n := m.Snapshot().GetLatencySamples; n > maxLatencySamples {
		t.Errorf("Expected at most %d samples, got %d", maxLatencySamples, n)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordHit(KindModule, 10)
	m.RecordPut(KindModule, 10)
	m.RecordLatency(OpGet, time.Millisecond)

	m.Reset()

	snapshot := m.Snapshot()
	if snapshot.Hits != 0 || snapshot.Puts != 0 || snapshot.GetLatencySamples != 0 {
		t.Errorf("Expected zeroed metrics after reset, got %+v", snapshot)
	}
}
