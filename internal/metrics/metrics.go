// Package metrics records gateway request outcomes and latencies.
// It is a small in-process collector; the web front exposes it as
// Prometheus text on /metrics and as JSON on /status.
//
// Package metrics 记录网关请求结果和延迟。
// 它是一个小型进程内收集器；Web前端在/metrics上以Prometheus文本格式、
// 在/status上以JSON格式暴露它。
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Level controls how much is collected.
type Level int

const (
	// Disabled turns every Record call into a no-op.
	Disabled Level = iota
	// Basic collects outcome counters and average latency.
	Basic
	// Detailed additionally keeps a latency histogram.
	Detailed
)

// ParseLevel maps a config string to a Level. Unknown values map to Basic.
func ParseLevel(s string) Level {
	switch s {
	case "disabled":
		return Disabled
	case "detailed":
		return Detailed
	default:
		return Basic
	}
}

// Outcome classifies a finished gateway call.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeNetwork  Outcome = "network_error"
	OutcomeNotFound Outcome = "not_found"
	OutcomeAPI      Outcome = "api_error"
)

// Metrics is safe for concurrent use.
type Metrics struct {
	level Level

	requests   uint64
	latencySum uint64 // nanoseconds

	mu        sync.RWMutex
	outcomes  map[Outcome]uint64
	endpoints map[string]uint64
	lastError string
	lastAt    time.Time

	histogram *Histogram
}

// Config holds construction options.
type Config struct {
	Level            Level
	HistogramBuckets int
}

// New creates a collector. A nil config means Basic.
func New(config *Config) *Metrics {
	if config == nil {
		config = &Config{Level: Basic}
	}
	m := &Metrics{
		level:     config.Level,
		outcomes:  make(map[Outcome]uint64),
		endpoints: make(map[string]uint64),
	}
	if config.Level == Detailed {
		m.histogram = NewHistogram(config.HistogramBuckets)
	}
	return m
}

// Record stores one finished call.
func (m *Metrics) Record(endpoint string, outcome Outcome, latency time.Duration, errMsg string) {
	if m == nil || m.level == Disabled {
		return
	}
	atomic.AddUint64(&m.requests, 1)
	atomic.AddUint64(&m.latencySum, uint64(latency))

	m.mu.Lock()
	m.outcomes[outcome]++
	m.endpoints[endpoint]++
	m.lastAt = time.Now()
	if outcome != OutcomeSuccess {
		m.lastError = errMsg
	}
	m.mu.Unlock()

	if m.histogram != nil {
		m.histogram.Observe(latency)
	}
}

// Snapshot is a point-in-time copy of the collected values.
type Snapshot struct {
	Requests       uint64             `json:"requests"`
	Outcomes       map[Outcome]uint64 `json:"outcomes"`
	Endpoints      []EndpointCount    `json:"endpoints"`
	AverageLatency time.Duration      `json:"average_latency_ns"`
	LastError      string             `json:"last_error,omitempty"`
	LastRequestAt  time.Time          `json:"last_request_at,omitempty"`
	Latency        *HistogramSnapshot `json:"latency,omitempty"`
}

// EndpointCount is a per-endpoint request count.
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    uint64 `json:"count"`
}

// GetSnapshot returns the current values. Endpoints are sorted by name.
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{Outcomes: map[Outcome]uint64{}}
	}
	requests := atomic.LoadUint64(&m.requests)
	s := Snapshot{Requests: requests}
	if requests > 0 {
		s.AverageLatency = time.Duration(atomic.LoadUint64(&m.latencySum) / requests)
	}

	m.mu.RLock()
	s.Outcomes = make(map[Outcome]uint64, len(m.outcomes))
	for k, v := range m.outcomes {
		s.Outcomes[k] = v
	}
	for k, v := range m.endpoints {
		s.Endpoints = append(s.Endpoints, EndpointCount{Endpoint: k, Count: v})
	}
	s.LastError = m.lastError
	s.LastRequestAt = m.lastAt
	m.mu.RUnlock()

	sort.Slice(s.Endpoints, func(i, j int) bool { return s.Endpoints[i].Endpoint < s.Endpoints[j].Endpoint })

	if m.histogram != nil {
		s.Latency = m.histogram.Snapshot()
	}
	return s
}
