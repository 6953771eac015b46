package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/crowdcount/dashboard-server/internal/editor"
	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/render"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// actionReply is the body of every console action response.
type actionReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// zoneState is one zone row in the state reply, the live count already
// joined in by name.
type zoneState struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	IsLine bool   `json:"is_line"`
	Points int    `json:"points"`
	Count  int    `json:"count"`
}

// stateReply is the full console state one poll of /api/state returns.
type stateReply struct {
	Mode          string                  `json:"mode"`
	Cursor        string                  `json:"cursor"`
	Name          string                  `json:"name"`
	SaveEnabled   bool                    `json:"save_enabled"`
	CancelEnabled bool                    `json:"cancel_enabled"`
	DraftPoints   int                     `json:"draft_points"`
	Zones         []zoneState             `json:"zones"`
	Total         int                     `json:"total"`
	Banner        bool                    `json:"banner"`
	Threshold     int                     `json:"threshold"`
	AlertsEnabled bool                    `json:"alerts_enabled"`
	ChannelMode   string                  `json:"channel_mode"`
	Trend         []telemetry.TrendSample `json:"trend"`
	Bars          []telemetry.BarEntry    `json:"bars"`
}

// Handler exposes the console HTTP surface.
func (c *Console) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", c.handleIndex)
	mux.HandleFunc("/frame", c.handleFrame)
	mux.HandleFunc("/api/state", c.handleState)
	mux.HandleFunc("/api/name", c.handleName)
	mux.HandleFunc("/api/tool", c.handleTool)
	mux.HandleFunc("/api/click", c.handleClick)
	mux.HandleFunc("/api/commit", c.handleCommit)
	mux.HandleFunc("/api/cancel", c.handleCancel)
	mux.HandleFunc("/api/edit", c.handleEdit)
	mux.HandleFunc("/api/delete", c.handleDelete)
	mux.HandleFunc("/api/canvas", c.handleCanvas)
	mux.HandleFunc("/api/alerts", c.handleAlerts)

	return mux
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (c *Console) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(consoleHTML))
}

// handleFrame streams the painted editor canvas as MJPEG.
func (c *Console) handleFrame(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		data, err := render.EncodeJPEG(c.engine.Paint())
		if err != nil {
			logger.Error("Console", "Frame encode error: %v", err)
			return
		}
		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}
	}
}

func (c *Console) handleState(w http.ResponseWriter, r *http.Request) {
	snap, _ := c.channel.Latest()

	list := c.store.All()
	zoneRows := make([]zoneState, 0, len(list))
	for _, z := range list {
		zoneRows = append(zoneRows, zoneState{
			ID:     z.ID,
			Name:   z.Name,
			IsLine: z.IsLine(),
			Points: len(z.Points),
			Count:  snap.CountFor(z.Name),
		})
	}

	save, cancel := c.session.Controls()
	mode := c.session.Mode()
	writeJSON(w, stateReply{
		Mode:          mode.String(),
		Cursor:        render.CursorClass(mode),
		Name:          c.session.Name(),
		SaveEnabled:   save,
		CancelEnabled: cancel,
		DraftPoints:   len(c.session.Draft()),
		Zones:         zoneRows,
		Total:         snap.TotalPeople,
		Banner:        c.evaluator.Visible(),
		Threshold:     c.evaluator.Threshold(),
		AlertsEnabled: c.evaluator.Enabled(),
		ChannelMode:   c.channel.Mode().String(),
		Trend:         c.trend.Samples(),
		Bars:          telemetry.BarSeries(snap),
	})
}

func (c *Console) handleName(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	c.session.StageName(payload.Name)
	writeJSON(w, actionReply{OK: true})
}

// parseToolMode maps the wire tool names onto editor modes.
func parseToolMode(tool string) (editor.ToolMode, bool) {
	switch tool {
	case "none", "idle":
		return editor.ModeIdle, true
	case "line":
		return editor.ModeLine, true
	case "poly", "polygon":
		return editor.ModePolygon, true
	case "edit":
		return editor.ModeEdit, true
	}
	return editor.ModeIdle, false
}

func (c *Console) handleTool(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		Tool string `json:"tool"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	mode, ok := parseToolMode(payload.Tool)
	if !ok {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Unknown tool"}, http.StatusBadRequest)
		return
	}
	if err := c.session.SelectTool(mode); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: err.Error()}, http.StatusBadRequest)
		return
	}
	writeJSON(w, actionReply{OK: true})
}

func (c *Console) handleClick(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	c.session.Click(geometry.Point{X: payload.X, Y: payload.Y})
	writeJSON(w, actionReply{OK: true})
}

func (c *Console) handleCommit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx, cancel := c.requestContext()
	defer cancel()

	res := c.session.Commit(ctx)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadRequest
	}
	writeJSONWithStatus(w, actionReply{OK: res.OK, Message: res.Message}, status)
}

func (c *Console) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	c.session.Cancel()
	writeJSON(w, actionReply{OK: true})
}

func (c *Console) handleEdit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	if err := c.session.EditZone(payload.ID); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: err.Error()}, http.StatusBadRequest)
		return
	}
	writeJSON(w, actionReply{OK: true})
}

// handleDelete removes a zone on the backend. The page asks the
// operator to confirm before calling here, so the wire carries the
// confirmation flag explicitly.
func (c *Console) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		ID        int64 `json:"id"`
		Confirmed bool  `json:"confirmed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	if !payload.Confirmed {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Not confirmed"}, http.StatusBadRequest)
		return
	}

	ctx, cancel := c.requestContext()
	defer cancel()

	res := c.session.Delete(ctx, payload.ID)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadRequest
	}
	writeJSONWithStatus(w, actionReply{OK: res.OK, Message: res.Message}, status)
}

// handleCanvas records the display size the page is actually showing
// the stream at, so clicks land in the right coordinate space.
func (c *Console) handleCanvas(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Width <= 0 || payload.Height <= 0 {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid size"}, http.StatusBadRequest)
		return
	}
	c.session.SetCanvasSize(geometry.Size{Width: payload.Width, Height: payload.Height})
	writeJSON(w, actionReply{OK: true})
}

// handleAlerts updates the alert banner state: the enabled toggle is
// local, the threshold persists through the backend.
func (c *Console) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var payload struct {
		Enabled   *bool `json:"enabled"`
		Threshold *int  `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONWithStatus(w, actionReply{OK: false, Message: "Invalid request"}, http.StatusBadRequest)
		return
	}
	if payload.Threshold != nil {
		ctx, cancel := c.requestContext()
		c.evaluator.SetThreshold(ctx, *payload.Threshold)
		cancel()
	}
	if payload.Enabled != nil {
		c.evaluator.SetEnabled(*payload.Enabled)
	}
	writeJSON(w, actionReply{OK: true})
}

// Zones returns the console's current view of the zone collection.
// Exposed for the cmd wiring and tests.
func (c *Console) Zones() []zones.Zone {
	return c.store.All()
}
