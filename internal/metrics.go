package internal

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the browser-state collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	TabsOpen           prometheus.Gauge
	NavigationsTotal   *prometheus.CounterVec
	StaleEventsDropped prometheus.Counter
	HistoryItems       prometheus.Gauge
	FaviconFetches     *prometheus.CounterVec

	registry *prometheus.Registry

	mu       sync.Mutex
	snapshot MetricsSnapshot
}

// MetricsSnapshot holds current values for display
type MetricsSnapshot struct {
	TabsOpen           int
	Navigations        map[string]int
	StaleEventsDropped int
	HistoryItems       int
	FaviconFetches     map[string]int
}

// NewMetrics registers the collectors on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TabsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "andromeda_tabs_open",
			Help: "Number of open tabs",
		}),
		NavigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "andromeda_navigations_total",
			Help: "Navigations by result",
		}, []string{"result"}),
		StaleEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "andromeda_stale_events_dropped_total",
			Help: "Engine completions discarded as stale or orphaned",
		}),
		HistoryItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "andromeda_history_items",
			Help: "Number of history items",
		}),
		FaviconFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "andromeda_favicon_fetches_total",
			Help: "Favicon resolutions by result",
		}, []string{"result"}),
		snapshot: MetricsSnapshot{
			Navigations:    map[string]int{},
			FaviconFetches: map[string]int{},
		},
	}
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetTabsOpen records the number of open tabs
func (m *Metrics) SetTabsOpen(n int) {
	if m == nil {
		return
	}
	m.TabsOpen.Set(float64(n))
	m.mu.Lock()
	m.snapshot.TabsOpen = n
	m.mu.Unlock()
}

// RecordNavigation counts a navigation outcome ("issued", "finished", "failed")
func (m *Metrics) RecordNavigation(result string) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(result).Inc()
	m.mu.Lock()
	m.snapshot.Navigations[result]++
	m.mu.Unlock()
}

// RecordStaleEvent counts a discarded completion
func (m *Metrics) RecordStaleEvent() {
	if m == nil {
		return
	}
	m.StaleEventsDropped.Inc()
	m.mu.Lock()
	m.snapshot.StaleEventsDropped++
	m.mu.Unlock()
}

// SetHistoryItems records the history length
func (m *Metrics) SetHistoryItems(n int) {
	if m == nil {
		return
	}
	m.HistoryItems.Set(float64(n))
	m.mu.Lock()
	m.snapshot.HistoryItems = n
	m.mu.Unlock()
}

// RecordFaviconFetch counts a favicon outcome ("cache", "fetched", "error")
func (m *Metrics) RecordFaviconFetch(result string) {
	if m == nil {
		return
	}
	m.FaviconFetches.WithLabelValues(result).Inc()
	m.mu.Lock()
	m.snapshot.FaviconFetches[result]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snapshot
	s.Navigations = make(map[string]int, len(m.snapshot.Navigations))
	for k, v := range m.snapshot.Navigations {
		s.Navigations[k] = v
	}
	s.FaviconFetches = make(map[string]int, len(m.snapshot.FaviconFetches))
	for k, v := range m.snapshot.FaviconFetches {
		s.FaviconFetches[k] = v
	}
	return s
}
