package internal

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.SetTabsOpen(3)
	m.RecordNavigation("issued")
	m.RecordStaleEvent()
	m.SetHistoryItems(1)
	m.RecordFaviconFetch("cache")
	if m.Registry() != nil {
		t.Error("nil metrics have no registry")
	}
	if diff := cmp.Diff(MetricsSnapshot{}, m.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.SetTabsOpen(2)
	m.RecordNavigation("issued")
	m.RecordNavigation("issued")
	m.RecordNavigation("finished")
	m.RecordStaleEvent()
	m.SetHistoryItems(5)
	m.RecordFaviconFetch("fetched")

	want := MetricsSnapshot{
		TabsOpen:           2,
		Navigations:        map[string]int{"issued": 2, "finished": 1},
		StaleEventsDropped: 1,
		HistoryItems:       5,
		FaviconFetches:     map[string]int{"fetched": 1},
	}
	snap := m.Snapshot()
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	snap.Navigations["issued"] = 99
	if m.Snapshot().Navigations["issued"] != 2 {
		t.Error("Snapshot() must return a copy")
	}
}

func TestMetrics_Registry(t *testing.T) {
	m := NewMetrics()
	m.SetTabsOpen(4)
	m.RecordNavigation("failed")

	if got := promtest.ToFloat64(m.TabsOpen); got != 4 {
		t.Errorf("andromeda_tabs_open = %v, want 4", got)
	}
	if got := promtest.ToFloat64(m.NavigationsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed navigations = %v, want 1", got)
	}

	expected := `
# HELP andromeda_tabs_open Number of open tabs
# TYPE andromeda_tabs_open gauge
andromeda_tabs_open 4
`
	if err := promtest.GatherAndCompare(m.Registry(), strings.NewReader(expected), "andromeda_tabs_open"); err != nil {
		t.Error(err)
	}
}
