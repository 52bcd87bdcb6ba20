package observability

import (
	"sort"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for lifecycle operations and the
// operator API.
type Metrics struct {
	mu           sync.Mutex
	operations   map[string]int64
	errorCount   map[string]int64
	requestCount map[string]int64
	lastSweep    time.Time
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Operations map[string]int64 `json:"operations"`
	Errors     map[string]int64 `json:"errors"`
	Requests   map[string]int64 `json:"requests"`
	LastSweep  *time.Time       `json:"last_sweep,omitempty"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		operations:   make(map[string]int64),
		errorCount:   make(map[string]int64),
		requestCount: make(map[string]int64),
	}
}

// RecordOperation counts a lifecycle operation outcome, e.g. ("select_category", "ok").
func (m *Metrics) RecordOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[op+"|"+outcome]++
}

// RecordError increments error counters keyed by source and code.
func (m *Metrics) RecordError(source, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[source+"|"+code]++
}

// RecordRequest counts operator API requests.
func (m *Metrics) RecordRequest(method, path string, status int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+path+"|"+statusClass(status)]++
}

// RecordSweep stores the completion time of the last refresh sweep.
func (m *Metrics) RecordSweep(at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSweep = at
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		Operations: copyCounts(m.operations),
		Errors:     copyCounts(m.errorCount),
		Requests:   copyCounts(m.requestCount),
	}
	if !m.lastSweep.IsZero() {
		at := m.lastSweep
		snap.LastSweep = &at
	}
	return snap
}

// Keys returns the sorted operation keys; handy for stable output.
func (s MetricsSnapshot) Keys() []string {
	keys := make([]string, 0, len(s.Operations))
	for k := range s.Operations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
