package filecache

import (
	"sync"
	"time"
)

// maxLatencySamples bounds each latency window; older samples are dropped
// in halves once it is exceeded.
const maxLatencySamples = 10000

// Metrics collects counters for one cache session.
type Metrics struct {
	mu sync.RWMutex

	hits   int64
	misses int64
	stale  int64
	errors int64
	puts   int64

	bytesStored int64
	bytesServed int64

	gets map[Kind]int64
	put  map[Kind]int64

	getLatencies []time.Duration
	putLatencies []time.Duration

	startTime     time.Time
	lastErrorTime time.Time
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	now := time.Now()
	return &Metrics{
		gets:          make(map[Kind]int64),
		put:           make(map[Kind]int64),
		startTime:     now,
		lastErrorTime: now,
	}
}

// RecordHit records a lookup that returned a valid entry.
func (m *Metrics) RecordHit(kind Kind, bytesServed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	m.gets[kind]++
	m.bytesServed += bytesServed
}

// RecordMiss records a lookup that found nothing usable.
func (m *Metrics) RecordMiss(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.misses++
	m.gets[kind]++
}

// RecordStale records an entry that was present but no longer valid. Stale
// reads are also counted as misses.
func (m *Metrics) RecordStale(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stale++
	m.misses++
	m.gets[kind]++
}

// RecordError records a failed operation.
func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors++
	m.lastErrorTime = time.Now()
}

// RecordPut records a stored entry of the given on-disk size.
func (m *Metrics) RecordPut(kind Kind, bytesStored int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	m.put[kind]++
	m.bytesStored += bytesStored
}

// RecordLatency records the duration of a get or put.
func (m *Metrics) RecordLatency(operation Operation, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case OpGet:
		m.getLatencies = appendSample(m.getLatencies, duration)
	case OpPut:
		m.putLatencies = appendSample(m.putLatencies, duration)
	}
}

func appendSample(samples []time.Duration, d time.Duration) []time.Duration {
	samples = append(samples, d)
	if len(samples) > maxLatencySamples {
		samples = samples[len(samples)-maxLatencySamples/2:]
	}
	return samples
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return total / time.Duration(len(samples))
}

// Snapshot returns a consistent copy of the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hitRate float64
	if total := m.hits + m.misses; total > 0 {
		hitRate = float64(m.hits) / float64(total)
	}

	return MetricsSnapshot{
		Hits:    m.hits,
		Misses:  m.misses,
		Stale:   m.stale,
		HitRate: hitRate,
		Errors:  m.errors,
		Puts:    m.puts,

		BytesStored: m.bytesStored,
		BytesServed: m.bytesServed,

		ModuleGets: m.gets[KindModule],
		ModulePuts: m.put[KindModule],
		AssetGets:  m.gets[KindAsset],
		AssetPuts:  m.put[KindAsset],

		AverageGetLatency: average(m.getLatencies),
		AveragePutLatency: average(m.putLatencies),
		GetLatencySamples: len(m.getLatencies),
		PutLatencySamples: len(m.putLatencies),

		Uptime:             time.Since(m.startTime),
		TimeSinceLastError: time.Since(m.lastErrorTime),
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.hits, m.misses, m.stale, m.errors, m.puts = 0, 0, 0, 0, 0
	m.bytesStored, m.bytesServed = 0, 0
	m.gets = make(map[Kind]int64)
	m.put = make(map[Kind]int64)
	m.getLatencies = m.getLatencies[:0]
	m.putLatencies = m.putLatencies[:0]
	m.startTime = now
	m.lastErrorTime = now
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Stale   int64   `json:"stale"`
	HitRate float64 `json:"hit_rate"`
	Errors  int64   `json:"errors"`
	Puts    int64   `json:"puts"`

	BytesStored int64 `json:"bytes_stored"`
	BytesServed int64 `json:"bytes_served"`

	ModuleGets int64 `json:"module_gets"`
	ModulePuts int64 `json:"module_puts"`
	AssetGets  int64 `json:"asset_gets"`
	AssetPuts  int64 `json:"asset_puts"`

	AverageGetLatency time.Duration `json:"avg_get_latency_ns"`
	AveragePutLatency time.Duration `json:"avg_put_latency_ns"`
	GetLatencySamples int           `json:"get_latency_samples"`
	PutLatencySamples int           `json:"put_latency_samples"`

	Uptime             time.Duration `json:"uptime"`
	TimeSinceLastError time.Duration `json:"time_since_last_error"`
}
