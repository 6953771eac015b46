package dashboard

import (
	"encoding/json"
	"image"
	"image/draw"
	"net/http"
	"strconv"
	"strings"

	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/metrics"
	"github.com/crowdcount/dashboard-server/internal/render"
	"github.com/crowdcount/dashboard-server/internal/storage"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// mutationReply is the body of every zone mutation response. Failures
// carry ok=false and a short reason.
type mutationReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// zonePayload is the request body for zone create/update.
type zonePayload struct {
	Name   string       `json:"name"`
	Points zones.Points `json:"points"`
}

type settingsPayload struct {
	AlertThreshold int `json:"alert_threshold"`
}

// Server serves the dashboard backend: zone CRUD, settings, the live
// occupancy feed and the overlay video.
type Server struct {
	cfg         Config
	store       *storage.Store
	source      TrackSource
	counter     *Counter
	broadcaster *LiveBroadcaster
	m           *metrics.Metrics
	blank       []byte
}

// NewServer wires the counter and broadcaster over the given track
// source and storage. Call Start before serving to begin the snapshot
// loop.
func NewServer(cfg Config, store *storage.Store, source TrackSource) *Server {
	def := DefaultConfig()
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = def.SnapshotInterval
	}
	if cfg.VideoInterval <= 0 {
		cfg.VideoInterval = def.VideoInterval
	}

	m := metrics.New()
	counter := NewCounter(source, store, m)
	broadcaster := NewLiveBroadcaster(counter, m, cfg.SnapshotInterval)

	frame := source.FrameSize()
	blank, err := render.EncodeJPEG(newBackdrop(frame.Width, frame.Height))
	if err != nil {
		logger.Error("Server", "Blank frame encode error: %v", err)
	}

	return &Server{
		cfg:         cfg,
		store:       store,
		source:      source,
		counter:     counter,
		broadcaster: broadcaster,
		m:           m,
		blank:       blank,
	}
}

// Start launches the snapshot loop.
func (s *Server) Start() {
	s.broadcaster.Start()
}

// Stop halts the snapshot loop.
func (s *Server) Stop() {
	s.broadcaster.Stop()
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/video", s.handleVideo)
	mux.HandleFunc("/api/zones", s.requireAuth(s.handleZones))
	mux.HandleFunc("/api/zones/", s.requireAuth(s.handleZoneByID))
	mux.HandleFunc("/api/settings", s.requireAuth(s.handleSettings))
	mux.HandleFunc("/api/live", s.requireAuth(s.handleLive))
	mux.HandleFunc("/api/count/live", s.requireAuth(s.handleCountLive))
	mux.HandleFunc("/api/count/history", s.requireAuth(s.handleCountHistory))
	mux.Handle("/metrics", s.m.Handler())

	return mux
}

// requireAuth enforces the bearer credential on the API surface when
// one is configured. An empty credential leaves the API open.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.Credential == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Credential {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Unauthorized"}, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	streamMJPEG(w, s.cfg.VideoInterval, s.blank, s.overlayFrame)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.store.ListZones()
		if err != nil {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []zones.Zone{}
		}
		writeJSON(w, list)

	case http.MethodPost:
		payload, ok := decodeZonePayload(w, r)
		if !ok {
			return
		}
		id, err := s.store.CreateZone(payload.Name, payload.Points)
		if err != nil {
			s.m.ZoneOpErrors.Add(1)
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		s.m.ZoneCreates.Add(1)
		logger.Info("Server", "Zone #%d %q created (%d points)", id, payload.Name, len(payload.Points))
		writeJSON(w, mutationReply{OK: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleZoneByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/zones/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONWithStatus(w, mutationReply{OK: false, Message: "Not found"}, http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		payload, ok := decodeZonePayload(w, r)
		if !ok {
			return
		}
		found, err := s.store.UpdateZone(id, payload.Name, payload.Points)
		if err != nil {
			s.m.ZoneOpErrors.Add(1)
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		if !found {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Not found"}, http.StatusNotFound)
			return
		}
		s.m.ZoneUpdates.Add(1)
		logger.Info("Server", "Zone #%d updated to %q (%d points)", id, payload.Name, len(payload.Points))
		writeJSON(w, mutationReply{OK: true})

	case http.MethodDelete:
		found, err := s.store.DeleteZone(id)
		if err != nil {
			s.m.ZoneOpErrors.Add(1)
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		if !found {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Not found"}, http.StatusNotFound)
			return
		}
		s.m.ZoneDeletes.Add(1)
		logger.Info("Server", "Zone #%d deleted", id)
		writeJSON(w, mutationReply{OK: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeZonePayload parses and validates a zone body. A zone needs a
// non-blank name and at least two points; anything less is rejected
// with a 400 before storage is touched.
func decodeZonePayload(w http.ResponseWriter, r *http.Request) (zonePayload, bool) {
	var payload zonePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, mutationReply{OK: false, Message: "Invalid zone"}, http.StatusBadRequest)
		return zonePayload{}, false
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" || len(payload.Points) < 2 {
		writeJSONWithStatus(w, mutationReply{OK: false, Message: "Invalid zone"}, http.StatusBadRequest)
		return zonePayload{}, false
	}
	return payload, true
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		thr, err := s.store.Threshold()
		if err != nil {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		writeJSON(w, settingsPayload{AlertThreshold: thr})

	case http.MethodPost:
		var payload settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.AlertThreshold < 0 {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Invalid threshold"}, http.StatusBadRequest)
			return
		}
		if err := s.store.SetThreshold(payload.AlertThreshold); err != nil {
			writeJSONWithStatus(w, mutationReply{OK: false, Message: "Storage error"}, http.StatusInternalServerError)
			return
		}
		logger.Info("Server", "Alert threshold set to %d", payload.AlertThreshold)
		writeJSON(w, mutationReply{OK: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)
	streamSnapshotsFromChannel(w, eventCh)
}

func (s *Server) handleCountLive(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.broadcaster.Latest()
	if !ok {
		snap = s.counter.Snapshot()
	}
	perZone := snap.Zones
	if perZone == nil {
		perZone = map[string]int{}
	}
	writeJSON(w, map[string]any{
		"total":    snap.TotalPeople,
		"per_zone": perZone,
	})
}

func (s *Server) handleCountHistory(w http.ResponseWriter, r *http.Request) {
	history := s.broadcaster.History()
	if history == nil {
		history = []telemetry.Snapshot{}
	}
	writeJSON(w, map[string]any{"samples": history})
}

// overlayFrame composites the zone overlay and the people heatmap onto
// the backdrop and encodes one MJPEG frame.
func (s *Server) overlayFrame() ([]byte, bool) {
	frame := s.source.FrameSize()
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, false
	}

	img := newBackdrop(frame.Width, frame.Height)

	snap, _ := s.broadcaster.Latest()
	render.PaintHeatmap(img, snap.Centers)

	zoneList, err := s.store.ListZones()
	if err != nil {
		s.m.RenderErrors.Add(1)
		return nil, false
	}
	overlay := render.PaintView(render.View{
		Canvas: frame,
		Source: frame,
		Zones:  zoneList,
		Live:   snap,
	})
	draw.Draw(img, img.Bounds(), overlay, image.Point{}, draw.Over)

	data, err := render.EncodeJPEG(img)
	if err != nil {
		s.m.RenderErrors.Add(1)
		return nil, false
	}
	s.m.FramesRendered.Add(1)
	return data, true
}
