package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// UpstreamKey labels one upstream call series.
type UpstreamKey struct {
	Service   string
	Operation string
	Outcome   string
}

// DurationSum is a count/total pair for a latency series.
type DurationSum struct {
	Count   uint64
	TotalNs int64
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UpstreamCalls     map[UpstreamKey]uint64
	UpstreamDurations map[string]DurationSum // keyed by service
	Resolutions       map[string]uint64
	ListsCacheHits    uint64
	ListsCacheMisses  uint64
	ActivityPublished uint64
	ActivityDropped   uint64
}

// InMemoryRecorder stores metrics in memory. It backs GET /metrics.
type InMemoryRecorder struct {
	mu                sync.Mutex
	upstreamCalls     map[UpstreamKey]uint64
	upstreamDurations map[string]DurationSum
	resolutions       map[string]uint64

	listsCacheHits    uint64
	listsCacheMisses  uint64
	activityPublished uint64
	activityDropped   uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		upstreamCalls:     make(map[UpstreamKey]uint64),
		upstreamDurations: make(map[string]DurationSum),
		resolutions:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	calls := make(map[UpstreamKey]uint64, len(m.upstreamCalls))
	for k, v := range m.upstreamCalls {
		calls[k] = v
	}
	durations := make(map[string]DurationSum, len(m.upstreamDurations))
	for k, v := range m.upstreamDurations {
		durations[k] = v
	}
	resolutions := make(map[string]uint64, len(m.resolutions))
	for k, v := range m.resolutions {
		resolutions[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		UpstreamCalls:     calls,
		UpstreamDurations: durations,
		Resolutions:       resolutions,
		ListsCacheHits:    atomic.LoadUint64(&m.listsCacheHits),
		ListsCacheMisses:  atomic.LoadUint64(&m.listsCacheMisses),
		ActivityPublished: atomic.LoadUint64(&m.activityPublished),
		ActivityDropped:   atomic.LoadUint64(&m.activityDropped),
	}
}

// ObserveUpstreamCall counts the call and records its latency.
func (m *InMemoryRecorder) ObserveUpstreamCall(service, operation, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamCalls[UpstreamKey{Service: service, Operation: operation, Outcome: outcome}]++
	sum := m.upstreamDurations[service]
	sum.Count++
	sum.TotalNs += duration.Nanoseconds()
	m.upstreamDurations[service] = sum
}

// IncResolution increments the resolution counter for outcome.
func (m *InMemoryRecorder) IncResolution(outcome string) {
	m.mu.Lock()
	m.resolutions[outcome]++
	m.mu.Unlock()
}

// IncListsCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncListsCacheHit() {
	atomic.AddUint64(&m.listsCacheHits, 1)
}

// IncListsCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncListsCacheMiss() {
	atomic.AddUint64(&m.listsCacheMisses, 1)
}

// IncActivityPublished increments the published or dropped counter.
func (m *InMemoryRecorder) IncActivityPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.activityPublished, 1)
		return
	}
	atomic.AddUint64(&m.activityDropped, 1)
}
