package pager

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram tracks latency distribution with percentile support
type Histogram struct {
	samples []float64 // Latencies in microseconds
	mu      sync.Mutex
	maxSize int  // Maximum samples to retain
	sorted  bool // Track if samples are sorted
}

// NewHistogram creates a new histogram with a max sample size
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000 // Default: keep last 10k samples
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
		sorted:  true,
	}
}

// Record adds a latency sample (in microseconds)
func (h *Histogram) Record(latencyUs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// If at capacity, drop the oldest sample. Once sorted, order is lost
	// anyway, so dropping index 0 is only approximate FIFO.
	if len(h.samples) >= h.maxSize {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}

	h.samples = append(h.samples, latencyUs)
	h.sorted = false
}

// Percentile calculates the given percentile (0-100)
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.percentileLocked(p)
}

func (h *Histogram) percentileLocked(p float64) float64 {
	if len(h.samples) == 0 {
		return 0
	}

	if !h.sorted {
		sort.Float64s(h.samples)
		h.sorted = true
	}

	rank := (p / 100.0) * float64(len(h.samples)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return h.samples[lower]
	}

	// Linear interpolation between lower and upper
	weight := rank - float64(lower)
	return h.samples[lower]*(1-weight) + h.samples[upper]*weight
}

// Count returns the number of samples
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Reset clears all samples
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
	h.sorted = true
}

// HistogramSnapshot holds percentile statistics at one instant
type HistogramSnapshot struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	P50   float64 // Median
	P95   float64
	P99   float64
}

// Snapshot captures current histogram statistics under one lock
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := HistogramSnapshot{Count: len(h.samples)}
	if snap.Count == 0 {
		return snap
	}

	sum := 0.0
	snap.Min = h.samples[0]
	snap.Max = h.samples[0]
	for _, v := range h.samples {
		sum += v
		snap.Min = math.Min(snap.Min, v)
		snap.Max = math.Max(snap.Max, v)
	}
	snap.Mean = sum / float64(snap.Count)
	snap.P50 = h.percentileLocked(50)
	snap.P95 = h.percentileLocked(95)
	snap.P99 = h.percentileLocked(99)

	return snap
}

// Metrics holds the counters of one simulation.
// Only the access engine writes the reference counters; the sweeper writes
// the sweep counters. Readers may load them at any time.
type Metrics struct {
	// Access Metrics
	references     atomic.Uint64
	hits           atomic.Uint64
	misses         atomic.Uint64
	evictions      atomic.Uint64
	dirtyEvictions atomic.Uint64

	// Sweeper Metrics
	sweeps atomic.Uint64

	// Loader Metrics
	warnings atomic.Uint64

	// Latency Histograms (microseconds)
	sweepLatency *Histogram // Time the sweeper holds the lock
	batchLatency *Histogram // Time to apply one pacing batch

	startTime time.Time
	mu        sync.RWMutex
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		startTime:    time.Now(),
		sweepLatency: NewHistogram(10000),
		batchLatency: NewHistogram(1000),
	}
}

func (m *Metrics) RecordReference() {
	m.references.Add(1)
}

func (m *Metrics) RecordHit() {
	m.hits.Add(1)
}

func (m *Metrics) RecordMiss() {
	m.misses.Add(1)
}

// RecordEviction counts a page pushed out of its frame
func (m *Metrics) RecordEviction(modified bool) {
	m.evictions.Add(1)
	if modified {
		m.dirtyEvictions.Add(1)
	}
}

// RecordSweep counts a sweep and how long it held the lock
func (m *Metrics) RecordSweep(duration time.Duration) {
	m.sweeps.Add(1)
	m.sweepLatency.Record(float64(duration.Microseconds()))
}

// RecordBatch records the time taken by one pacing batch
func (m *Metrics) RecordBatch(duration time.Duration) {
	m.batchLatency.Record(float64(duration.Microseconds()))
}

func (m *Metrics) RecordWarnings(n int) {
	m.warnings.Add(uint64(n))
}

// Getters

func (m *Metrics) GetReferences() uint64 {
	return m.references.Load()
}

func (m *Metrics) GetHits() uint64 {
	return m.hits.Load()
}

func (m *Metrics) GetMisses() uint64 {
	return m.misses.Load()
}

func (m *Metrics) GetEvictions() uint64 {
	return m.evictions.Load()
}

func (m *Metrics) GetDirtyEvictions() uint64 {
	return m.dirtyEvictions.Load()
}

func (m *Metrics) GetSweeps() uint64 {
	return m.sweeps.Load()
}

func (m *Metrics) GetWarnings() uint64 {
	return m.warnings.Load()
}

// GetHitRate returns hits over references in [0,1], 0 with no references
func (m *Metrics) GetHitRate() float64 {
	refs := m.references.Load()
	if refs == 0 {
		return 0.0
	}
	return float64(m.hits.Load()) / float64(refs)
}

func (m *Metrics) GetUptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// GetSweepLatency returns snapshot of sweep lock-hold time distribution
func (m *Metrics) GetSweepLatency() HistogramSnapshot {
	return m.sweepLatency.Snapshot()
}

// GetBatchLatency returns snapshot of pacing batch time distribution
func (m *Metrics) GetBatchLatency() HistogramSnapshot {
	return m.batchLatency.Snapshot()
}

// LogMetrics logs all metrics using structured logging
func (m *Metrics) LogMetrics(logger *slog.Logger) {
	sweep := m.GetSweepLatency()
	batch := m.GetBatchLatency()

	logger.Info("Simulation Metrics",
		slog.Group("access",
			slog.Uint64("references", m.GetReferences()),
			slog.Uint64("hits", m.GetHits()),
			slog.Uint64("misses", m.GetMisses()),
			slog.Float64("hit_rate", m.GetHitRate()),
			slog.Uint64("evictions", m.GetEvictions()),
			slog.Uint64("dirty_evictions", m.GetDirtyEvictions()),
		),
		slog.Group("sweeper",
			slog.Uint64("sweeps", m.GetSweeps()),
		),
		slog.Uint64("trace_warnings", m.GetWarnings()),
		slog.Group("latency_us",
			slog.Group("sweep",
				slog.Int("count", sweep.Count),
				slog.Float64("mean", sweep.Mean),
				slog.Float64("p95", sweep.P95),
				slog.Float64("p99", sweep.P99),
			),
			slog.Group("batch",
				slog.Int("count", batch.Count),
				slog.Float64("mean", batch.Mean),
				slog.Float64("p50", batch.P50),
				slog.Float64("p99", batch.P99),
			),
		),
		slog.Duration("uptime", m.GetUptime()),
	)
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	m.references.Store(0)
	m.hits.Store(0)
	m.misses.Store(0)
	m.evictions.Store(0)
	m.dirtyEvictions.Store(0)
	m.sweeps.Store(0)
	m.warnings.Store(0)

	m.sweepLatency.Reset()
	m.batchLatency.Reset()

	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}
