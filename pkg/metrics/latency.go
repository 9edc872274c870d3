package metrics

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencySample keeps a bounded ring of recent observations in
// milliseconds and summarizes them with empirical quantiles. Unlike
// TimingMetric it answers "what does the tail look like", at the cost of a
// mutex on the observe path.
type LatencySample struct {
	mu   sync.Mutex
	buf  []float64
	next int
	full bool
}

// newLatencySample returns a sample ring holding the last capacity
// observations.
func newLatencySample(capacity int) *LatencySample {
	if capacity <= 0 {
		capacity = 256
	}
	return &LatencySample{buf: make([]float64, capacity)}
}

// Observe records one duration.
func (s *LatencySample) Observe(d time.Duration) {
	if !enabled {
		return
	}
	ms := float64(d.Nanoseconds()) / 1e6
	s.mu.Lock()
	s.buf[s.next] = ms
	s.next++
	if s.next == len(s.buf) {
		s.next = 0
		s.full = true
	}
	s.mu.Unlock()
}

// Reset drops all observations.
func (s *LatencySample) Reset() {
	s.mu.Lock()
	s.next = 0
	s.full = false
	s.mu.Unlock()
}

// LatencyStats summarizes a sample window.
type LatencyStats struct {
	Count    int     `json:"count"`
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Snapshot computes the current window statistics.
func (s *LatencySample) Snapshot() LatencyStats {
	s.mu.Lock()
	n := s.next
	if s.full {
		n = len(s.buf)
	}
	xs := make([]float64, n)
	copy(xs, s.buf[:n])
	s.mu.Unlock()

	if n == 0 {
		return LatencyStats{}
	}
	sort.Float64s(xs)

	stats := LatencyStats{
		Count:  n,
		MeanMs: stat.Mean(xs, nil),
		P50Ms:  stat.Quantile(0.50, stat.Empirical, xs, nil),
		P95Ms:  stat.Quantile(0.95, stat.Empirical, xs, nil),
		P99Ms:  stat.Quantile(0.99, stat.Empirical, xs, nil),
	}
	if n > 1 {
		stats.StdDevMs = stat.StdDev(xs, nil)
	}
	return stats
}

// Latency distributions for the directory seam.
var (
	BrowseLatency = newLatencySample(512)
	ReadLatency   = newLatencySample(512)
)

// AllLatencySamples returns all registered latency samples.
func AllLatencySamples() []*LatencySample {
	return []*LatencySample{
		BrowseLatency,
		ReadLatency,
	}
}
