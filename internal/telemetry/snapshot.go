// Package telemetry maintains the live occupancy feed: one push (SSE)
// or poll transport selected at startup, a fanout to the render engine
// and chart consumers, and the bounded series behind the trend chart.
package telemetry

import "time"

// Center is a detection center normalized to the unit square, used by
// the heatmap painter.
type Center struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is one complete occupancy reading. Every feed message
// replaces the previous snapshot wholesale; only the newest is kept.
type Snapshot struct {
	TotalPeople int            `json:"total_people"`
	Zones       map[string]int `json:"zones"`
	Centers     []Center       `json:"centers"`
	Timestamp   int64          `json:"timestamp"`
}

// CountFor returns the snapshot's count for a zone name, defaulting to
// zero when the name has no telemetry entry. The join is by name, so a
// renamed or telemetry-lagging zone quietly reads zero.
func (s Snapshot) CountFor(name string) int {
	return s.Zones[name]
}

// pollReply is the poll endpoint's reduced shape; the channel fills in
// the missing snapshot fields.
type pollReply struct {
	Total   int            `json:"total"`
	PerZone map[string]int `json:"per_zone"`
}

func (r pollReply) toSnapshot(now time.Time) Snapshot {
	return Snapshot{
		TotalPeople: r.Total,
		Zones:       r.PerZone,
		Centers:     nil,
		Timestamp:   now.Unix(),
	}
}
