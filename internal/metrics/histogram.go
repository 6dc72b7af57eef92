package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultLatencyBuckets are the upper bounds used when a histogram is
// created with a non-positive bucket count. They cover a fast local
// backend up to the default request timeout.
var DefaultLatencyBuckets = []time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
	10 * time.Second,
}

// Histogram counts request latencies into cumulative-style buckets. The
// last bucket is implicit: observations above every bound only show up in
// Count and Sum, as with a Prometheus +Inf bucket.
//
// Histogram 将请求延迟计入桶中。超过所有上界的观测值只计入Count和Sum，
// 与Prometheus的+Inf桶相同。
type Histogram struct {
	mu     sync.Mutex
	bounds []time.Duration
	counts []uint64 // counts[i] holds observations in (bounds[i-1], bounds[i]]
	count  uint64
	sum    time.Duration
	min    time.Duration
	max    time.Duration
}

// HistogramSnapshot is a copy of the histogram state. Durations are
// reported in seconds to match the exposition format.
type HistogramSnapshot struct {
	Bounds   []float64 `json:"bounds_seconds"`
	Counts   []uint64  `json:"counts"`
	Count    uint64    `json:"count"`
	Sum      float64   `json:"sum_seconds"`
	Min      float64   `json:"min_seconds"`
	Max      float64   `json:"max_seconds"`
	Mean     float64   `json:"mean_seconds"`
	P50      float64   `json:"p50_seconds"`
	P90      float64   `json:"p90_seconds"`
	P99      float64   `json:"p99_seconds"`
	Overflow uint64    `json:"overflow"`
}

// NewHistogram creates a histogram. A positive bucketCount spreads that
// many bounds geometrically between 5ms and 10s; otherwise
// DefaultLatencyBuckets is used.
func NewHistogram(bucketCount int) *Histogram {
	bounds := DefaultLatencyBuckets
	if bucketCount > 0 {
		bounds = geometricBounds(5*time.Millisecond, 10*time.Second, bucketCount)
	}
	b := make([]time.Duration, len(bounds))
	copy(b, bounds)
	return &Histogram{bounds: b, counts: make([]uint64, len(b))}
}

func geometricBounds(lo, hi time.Duration, n int) []time.Duration {
	if n == 1 {
		return []time.Duration{hi}
	}
	out := make([]time.Duration, n)
	ratio := float64(hi) / float64(lo)
	for i := range out {
		out[i] = time.Duration(float64(lo) * math.Pow(ratio, float64(i)/float64(n-1)))
	}
	return out
}

// Observe records one request latency. Negative values count as zero.
func (h *Histogram) Observe(d time.Duration) {
	if d < 0 {
		d = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || d < h.min {
		h.min = d
	}
	if d > h.max {
		h.max = d
	}
	h.count++
	h.sum += d
	if i := sort.Search(len(h.bounds), func(i int) bool { return d <= h.bounds[i] }); i < len(h.bounds) {
		h.counts[i]++
	}
}

// Snapshot returns a copy of the current state with estimated percentiles.
func (h *Histogram) Snapshot() *HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &HistogramSnapshot{
		Bounds: make([]float64, len(h.bounds)),
		Counts: make([]uint64, len(h.counts)),
		Count:  h.count,
		Sum:    h.sum.Seconds(),
		Min:    h.min.Seconds(),
		Max:    h.max.Seconds(),
	}
	var inBuckets uint64
	for i, b := range h.bounds {
		s.Bounds[i] = b.Seconds()
		s.Counts[i] = h.counts[i]
		inBuckets += h.counts[i]
	}
	s.Overflow = h.count - inBuckets
	if h.count > 0 {
		s.Mean = s.Sum / float64(h.count)
		s.P50 = h.quantile(0.5).Seconds()
		s.P90 = h.quantile(0.9).Seconds()
		s.P99 = h.quantile(0.99).Seconds()
	}
	return s
}

// quantile interpolates inside the bucket holding rank q*count, clamped to
// the observed min and max. Callers hold h.mu.
func (h *Histogram) quantile(q float64) time.Duration {
	rank := uint64(math.Ceil(float64(h.count) * q))
	if rank == 0 {
		rank = 1
	}
	var seen uint64
	for i, c := range h.counts {
		if seen+c < rank {
			seen += c
			continue
		}
		lower := h.min
		if i > 0 && h.bounds[i-1] > lower {
			lower = h.bounds[i-1]
		}
		upper := h.bounds[i]
		if h.max < upper {
			upper = h.max
		}
		if upper <= lower {
			return upper
		}
		frac := float64(rank-seen) / float64(c)
		return lower + time.Duration(float64(upper-lower)*frac)
	}
	return h.max
}
