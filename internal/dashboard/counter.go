// Package dashboard is the backend: the zone collection API, the
// persisted settings, the live occupancy feed and the overlay video.
package dashboard

import (
	"sync"
	"time"

	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/metrics"
	"github.com/crowdcount/dashboard-server/internal/storage"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// Track is one tracked person: a stable id and the current centroid in
// source-frame coordinates.
type Track struct {
	ID  int
	Pos geometry.Point
}

// TrackSource supplies the current person tracks and the source frame
// dimensions. The real detector lives outside this server; tests and
// demo runs use the synthetic source.
type TrackSource interface {
	Tracks() []Track
	FrameSize() geometry.Size
}

// Counter turns tracks and the persisted zones into occupancy
// snapshots. Polygon zones count the tracks currently inside; trip
// lines accumulate crossings detected from consecutive centroids.
type Counter struct {
	source TrackSource
	store  *storage.Store
	m      *metrics.Metrics

	mu            sync.Mutex
	prevCentroids map[int]geometry.Point
	lineCounts    map[int64]int
}

// NewCounter creates a counter over the track source and zone storage.
func NewCounter(source TrackSource, store *storage.Store, m *metrics.Metrics) *Counter {
	return &Counter{
		source:        source,
		store:         store,
		m:             m,
		prevCentroids: make(map[int]geometry.Point),
		lineCounts:    make(map[int64]int),
	}
}

// Step advances the line-crossing state one frame: any track whose
// previous and current centroid fall on opposite sides of a trip line
// increments that line's count.
func (c *Counter) Step() {
	tracks := c.source.Tracks()
	zoneList, err := c.store.ListZones()
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := make(map[int]geometry.Point, len(tracks))
	for _, t := range tracks {
		now[t.ID] = t.Pos
	}

	for _, z := range zoneList {
		if !z.IsLine() {
			continue
		}
		if _, ok := c.lineCounts[z.ID]; !ok {
			c.lineCounts[z.ID] = 0
		}
		a, b := z.Points[0], z.Points[1]
		for id, cur := range now {
			prev, ok := c.prevCentroids[id]
			if !ok {
				continue
			}
			if geometry.Side(a, b, prev)*geometry.Side(a, b, cur) < 0 {
				c.lineCounts[z.ID]++
				if c.m != nil {
					c.m.LineCrossings.Add(1)
				}
			}
		}
	}
	c.prevCentroids = now
}

// Snapshot builds one complete occupancy reading: total tracks,
// per-zone counts keyed by zone name, normalized centers, and the
// current wall-clock timestamp.
func (c *Counter) Snapshot() telemetry.Snapshot {
	tracks := c.source.Tracks()
	frame := c.source.FrameSize()
	zoneList, err := c.store.ListZones()
	if err != nil {
		zoneList = nil
	}

	c.mu.Lock()
	perZone := make(map[string]int, len(zoneList))
	for _, z := range zoneList {
		if z.IsLine() {
			perZone[z.Name] = c.lineCounts[z.ID]
		} else {
			perZone[z.Name] = countInside(z, tracks)
		}
	}
	c.mu.Unlock()

	centers := make([]telemetry.Center, 0, len(tracks))
	if frame.Width > 0 && frame.Height > 0 {
		for _, t := range tracks {
			centers = append(centers, telemetry.Center{
				X: t.Pos.X / float64(frame.Width),
				Y: t.Pos.Y / float64(frame.Height),
			})
		}
	}

	if c.m != nil {
		c.m.TrackedPeople.Store(uint64(len(tracks)))
	}

	return telemetry.Snapshot{
		TotalPeople: len(tracks),
		Zones:       perZone,
		Centers:     centers,
		Timestamp:   time.Now().Unix(),
	}
}

func countInside(z zones.Zone, tracks []Track) int {
	n := 0
	for _, t := range tracks {
		if geometry.PointInPolygon(t.Pos, z.Points) {
			n++
		}
	}
	return n
}
