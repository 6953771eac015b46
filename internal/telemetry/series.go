package telemetry

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// trendCapacity bounds the trend chart to the most recent samples;
// the oldest is evicted first.
const trendCapacity = 120

// TrendSample is one point on the total-occupancy trend chart.
type TrendSample struct {
	Timestamp int64 `json:"timestamp"`
	Total     int   `json:"total"`
}

// TrendSeries is a fixed-capacity ring of the most recent total counts.
type TrendSeries struct {
	mu      sync.Mutex
	samples []TrendSample
	head    int
	full    bool
}

// NewTrendSeries returns an empty series with the standard capacity.
func NewTrendSeries() *TrendSeries {
	return &TrendSeries{samples: make([]TrendSample, trendCapacity)}
}

// Add appends a sample, evicting the oldest once full.
func (t *TrendSeries) Add(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.head] = TrendSample{Timestamp: snap.Timestamp, Total: snap.TotalPeople}
	t.head = (t.head + 1) % len(t.samples)
	if t.head == 0 {
		t.full = true
	}
}

// Samples returns the retained samples, oldest first.
func (t *TrendSeries) Samples() []TrendSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		out := make([]TrendSample, t.head)
		copy(out, t.samples[:t.head])
		return out
	}
	out := make([]TrendSample, 0, len(t.samples))
	out = append(out, t.samples[t.head:]...)
	out = append(out, t.samples[:t.head]...)
	return out
}

// Len returns the number of retained samples.
func (t *TrendSeries) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return len(t.samples)
	}
	return t.head
}

// BarEntry is one bar on the per-zone chart.
type BarEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BarSeries rebuilds the per-zone chart wholesale from a snapshot's
// zone mapping, sorted by name for a stable axis.
func BarSeries(snap Snapshot) []BarEntry {
	names := lo.Keys(snap.Zones)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) BarEntry {
		return BarEntry{Name: name, Count: snap.Zones[name]}
	})
}
