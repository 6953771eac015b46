// Package metrics exposes the dashboard's operational counters to
// Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Live feed
	SnapshotsBroadcast atomic.Uint64
	LiveClients        atomic.Uint64
	TotalLiveClients   atomic.Uint64

	// Overlay rendering
	FramesRendered atomic.Uint64
	RenderErrors   atomic.Uint64

	// Zone collection
	ZoneCreates  atomic.Uint64
	ZoneUpdates  atomic.Uint64
	ZoneDeletes  atomic.Uint64
	ZoneOpErrors atomic.Uint64

	// Occupancy counting
	TrackedPeople atomic.Uint64
	LineCrossings atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"dashboard_snapshots_broadcast_total", "Total telemetry snapshots broadcast to live clients", m.SnapshotsBroadcast.Load},
		{"dashboard_live_clients", "Currently connected live stream clients", m.LiveClients.Load},
		{"dashboard_live_clients_total", "Total live stream clients ever connected", m.TotalLiveClients.Load},
		{"dashboard_frames_rendered_total", "Total overlay frames rendered", m.FramesRendered.Load},
		{"dashboard_render_errors_total", "Total overlay frame encode failures", m.RenderErrors.Load},
		{"dashboard_zone_creates_total", "Total zones created", m.ZoneCreates.Load},
		{"dashboard_zone_updates_total", "Total zones updated", m.ZoneUpdates.Load},
		{"dashboard_zone_deletes_total", "Total zones deleted", m.ZoneDeletes.Load},
		{"dashboard_zone_op_errors_total", "Total rejected or failed zone operations", m.ZoneOpErrors.Load},
		{"dashboard_tracked_people", "People currently tracked in the frame", m.TrackedPeople.Load},
		{"dashboard_line_crossings_total", "Cumulative trip-line crossings", m.LineCrossings.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
