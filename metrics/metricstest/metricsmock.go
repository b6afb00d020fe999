package metricstest

import (
	"net/http"
	"sync"
	"time"
)

type MockMetrics struct {
	Prefix string

	mu sync.Mutex

	// Metrics gathering
	counters map[string]int64
	measures map[string][]time.Duration
	serves   map[string]int64
	Now      time.Time
}

//
// Public thread safe access to metrics
//

func (m *MockMetrics) WithCounters(f func(counters map[string]int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	f(m.counters)
}

func (m *MockMetrics) WithMeasures(f func(measures map[string][]time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.measures == nil {
		m.measures = make(map[string][]time.Duration)
	}
	f(m.measures)
}

// Counter returns the current value of a counter, the prefix included in
// the key.
func (m *MockMetrics) Counter(key string) (v int64, ok bool) {
	m.WithCounters(func(counters map[string]int64) {
		v, ok = counters[key]
	})
	return
}

// Served returns how many times a route was reported with a status code.
func (m *MockMetrics) Served(routeID string, code int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.serves[serveKey(routeID, code)]
}

//
// Interface Metrics
//

func (m *MockMetrics) MeasureSince(key string, start time.Time) {
	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	key = m.Prefix + key
	m.WithMeasures(func(measures map[string][]time.Duration) {
		measures[key] = append(measures[key], now.Sub(start))
	})
}

func (m *MockMetrics) IncCounter(key string) {
	m.IncCounterBy(key, 1)
}

func (m *MockMetrics) IncCounterBy(key string, value int64) {
	key = m.Prefix + key
	m.WithCounters(func(counters map[string]int64) {
		counters[key] += value
	})
}

func (m *MockMetrics) MeasureServe(routeID, method string, code int, start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serves == nil {
		m.serves = make(map[string]int64)
	}
	m.serves[serveKey(routeID, code)]++
}

func (m *MockMetrics) IncRoutingFailures() {
	m.IncCounter("routing.failures")
}

func (m *MockMetrics) IncErrorsBackend(routeID string) {
	m.IncCounter("backend.errors." + routeID)
}

func (*MockMetrics) RegisterHandler(string, *http.ServeMux) {}

func serveKey(routeID string, code int) string {
	return routeID + "." + http.StatusText(code)
}
