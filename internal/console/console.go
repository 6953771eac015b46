// Package console is the operator surface of the zone editor: it owns
// the editing session, the live telemetry channel, the alert state and
// the rendered overlay, and exposes them over HTTP.
package console

import (
	"context"
	"strings"
	"time"

	"github.com/crowdcount/dashboard-server/internal/alerts"
	"github.com/crowdcount/dashboard-server/internal/editor"
	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/render"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// Console bundles the long-lived state of one operator console:
// the zone store and its backend client, the editing session, the
// telemetry channel, the alert evaluator, the trend history and the
// paint engine.
type Console struct {
	cfg       Config
	store     *zones.Store
	client    *zones.Client
	session   *editor.Session
	channel   *telemetry.Channel
	evaluator *alerts.Evaluator
	trend     *telemetry.TrendSeries
	engine    *render.Engine
	videoURL  string

	stop chan struct{}
}

// New wires a console against the backend at cfg.BackendURL.
func New(cfg Config) *Console {
	def := DefaultConfig()
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		cfg.CanvasWidth = def.CanvasWidth
		cfg.CanvasHeight = def.CanvasHeight
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}

	base := strings.TrimRight(cfg.BackendURL, "/")
	store := zones.NewStore()
	client := zones.NewClient(base, cfg.Credential)
	session := editor.NewSession(store, client)
	session.SetCanvasSize(geometry.Size{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight})
	if cfg.SourceWidth > 0 && cfg.SourceHeight > 0 {
		session.SetSourceSize(geometry.Size{Width: cfg.SourceWidth, Height: cfg.SourceHeight})
	}

	channel := telemetry.NewChannel(telemetry.Config{
		StreamURL:  base + "/api/live",
		PollURL:    base + "/api/count/live",
		Credential: cfg.Credential,
	})
	evaluator := alerts.NewEvaluator(alerts.NewThresholdClient(base, cfg.Credential))

	return &Console{
		cfg:       cfg,
		store:     store,
		client:    client,
		session:   session,
		channel:   channel,
		evaluator: evaluator,
		trend:     telemetry.NewTrendSeries(),
		engine:    render.NewEngine(store, session, channel),
		videoURL:  base + "/video",
		stop:      make(chan struct{}),
	}
}

// Start loads the initial zone list and threshold, opens the telemetry
// channel, begins consuming snapshots and starts resolving the source
// frame size from the video feed. Backend failures at startup are
// logged and retried by the normal refresh paths, not fatal.
func (c *Console) Start(ctx context.Context) {
	if err := c.session.Refresh(ctx); err != nil {
		logger.Warn("Console", "Initial zone load failed: %v", err)
	}
	if err := c.evaluator.Load(ctx); err != nil {
		logger.Warn("Console", "Threshold load failed: %v", err)
	}

	mode := c.channel.Start()
	logger.Info("Console", "Telemetry channel up in %s mode", mode)

	go c.resolveSourceSize()
	go c.consume()
}

// Stop shuts the telemetry channel and the snapshot consumer down.
func (c *Console) Stop() {
	close(c.stop)
	c.channel.Stop()
}

// consume feeds every snapshot into the trend history and the alert
// evaluator.
func (c *Console) consume() {
	id, ch := c.channel.Subscribe()
	defer c.channel.Unsubscribe(id)

	for {
		select {
		case <-c.stop:
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.trend.Add(snap)
			c.evaluator.Observe(snap)
		}
	}
}

// refreshTimeout bounds the backend round trips triggered by console
// requests.
const refreshTimeout = 10 * time.Second

func (c *Console) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), refreshTimeout)
}
