// Package editor implements the zone drawing state machine: one tool
// mode, one in-progress draft, and the save/cancel/edit transitions
// that move zones between the canvas and the backend collection.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// ToolMode is the editor's active tool. Exactly one is active at a time.
type ToolMode int

const (
	ModeIdle ToolMode = iota
	ModeLine
	ModePolygon
	ModeEdit
)

func (m ToolMode) String() string {
	switch m {
	case ModeLine:
		return "drawing-line"
	case ModePolygon:
		return "drawing-polygon"
	case ModeEdit:
		return "editing"
	default:
		return "idle"
	}
}

// Validation messages surfaced to the operator. None of these change
// editor state or touch the network.
var (
	ErrNameRequired  = errors.New("enter a zone name first")
	ErrSourcePending = errors.New("video dimensions not resolved yet")
	ErrNotEditing    = errors.New("no zone selected for editing")
	ErrIdle          = errors.New("no drawing in progress")
)

// Session is the single editing session of one operator console. It is
// not re-entrant: concurrent drawing sessions are not supported, and
// all state lives behind one lock.
type Session struct {
	store  *zones.Store
	client *zones.Client

	mu     sync.Mutex
	mode   ToolMode
	name   string
	draft  []geometry.Point // display coordinates, captured at click time
	editID int64            // zone being edited; 0 when none
	canvas geometry.Size
	source geometry.Size
}

// NewSession creates an idle session over the given store and client.
func NewSession(store *zones.Store, client *zones.Client) *Session {
	return &Session{store: store, client: client}
}

// StageName stages the zone name input. Staging alone never changes
// the tool mode.
func (s *Session) StageName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Name returns the currently staged name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Mode returns the active tool mode.
func (s *Session) Mode() ToolMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Draft returns a copy of the in-progress display points.
func (s *Session) Draft() []geometry.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geometry.Point, len(s.draft))
	copy(out, s.draft)
	return out
}

// Controls reports whether the save and cancel actions are enabled.
func (s *Session) Controls() (saveEnabled, cancelEnabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.mode {
	case ModeLine, ModePolygon:
		return true, true
	case ModeEdit:
		// Save stays disabled until a zone is picked for editing.
		return s.editID != 0, true
	default:
		return false, false
	}
}

// SetCanvasSize records the canvas extent. Draft points are NOT
// rescaled: they stay in the coordinate space of the canvas at the time
// of each click, so a resize mid-draft distorts the in-progress shape.
// That matches the source behavior and is accepted as a limitation.
func (s *Session) SetCanvasSize(size geometry.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas = size
}

// SetSourceSize records the source frame's native dimensions once the
// feed has resolved them.
func (s *Session) SetSourceSize(size geometry.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = size
}

// Transform returns the current display<->canonical transform.
func (s *Session) Transform() geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geometry.Transform{Canvas: s.canvas, Source: s.source}
}

// SelectTool activates a drawing tool. Entering line or polygon mode
// requires a staged name; the transition is rejected otherwise with no
// state change. Switching tools mid-draft discards the draft silently.
func (s *Session) SelectTool(mode ToolMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case ModeLine, ModePolygon:
		if s.name == "" {
			return ErrNameRequired
		}
		s.mode = mode
		s.draft = nil
		s.editID = 0
	case ModeEdit:
		s.mode = ModeEdit
		s.draft = nil
		s.editID = 0
	case ModeIdle:
		s.mode = ModeIdle
		s.draft = nil
		s.editID = 0
	}
	return nil
}

// EditZone enters editing mode seeded from an existing zone: its points
// converted to display space become the draft and its name is staged.
func (s *Session) EditZone(id int64) error {
	zone, ok := s.store.ByID(id)
	if !ok {
		return fmt.Errorf("zone %d not found", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := geometry.Transform{Canvas: s.canvas, Source: s.source}
	if !tr.Valid() {
		return ErrSourcePending
	}

	s.mode = ModeEdit
	s.editID = zone.ID
	s.name = zone.Name
	s.draft = make([]geometry.Point, len(zone.Points))
	for i, p := range zone.Points {
		s.draft[i] = tr.ToDisplay(p)
	}
	return nil
}

// Click appends one display point to the draft. Points are stored raw
// and converted to canonical space only at commit. Clicks while idle,
// or in edit mode before a zone is picked, are ignored.
func (s *Session) Click(p geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeLine, ModePolygon:
		s.draft = append(s.draft, s.clampLocked(p))
	case ModeEdit:
		if len(s.draft) > 0 {
			s.draft = append(s.draft, s.clampLocked(p))
		}
	}
}

func (s *Session) clampLocked(p geometry.Point) geometry.Point {
	if s.canvas.Width > 0 {
		p.X = min(max(p.X, 0), float64(s.canvas.Width))
	}
	if s.canvas.Height > 0 {
		p.Y = min(max(p.Y, 0), float64(s.canvas.Height))
	}
	return p
}

// Cancel discards the draft and staged name and returns to idle. It is
// local-only and always succeeds.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeIdle
	s.draft = nil
	s.name = ""
	s.editID = 0
}

// minPoints returns the commit threshold for the current mode. Editing
// accepts the line minimum since the seeded zone may be a trip line.
func minPoints(mode ToolMode) int {
	if mode == ModePolygon {
		return 3
	}
	return 2
}

// Commit validates the draft, converts it to canonical coordinates and
// persists it. On success the store is refreshed from the backend's
// authoritative list and the session returns to idle; on a rejected
// save the draft and name are preserved so the operator can retry.
func (s *Session) Commit(ctx context.Context) zones.Result {
	s.mu.Lock()
	mode := s.mode
	name := s.name
	editID := s.editID
	tr := geometry.Transform{Canvas: s.canvas, Source: s.source}
	draft := make([]geometry.Point, len(s.draft))
	copy(draft, s.draft)
	s.mu.Unlock()

	if mode == ModeIdle {
		return zones.Result{Message: ErrIdle.Error()}
	}
	if name == "" {
		return zones.Result{Message: ErrNameRequired.Error()}
	}
	if need := minPoints(mode); len(draft) < need {
		return zones.Result{Message: fmt.Sprintf("need at least %d points", need)}
	}
	if mode == ModeEdit && editID == 0 {
		return zones.Result{Message: ErrNotEditing.Error()}
	}
	if !tr.Valid() {
		return zones.Result{Message: ErrSourcePending.Error()}
	}

	canonical := make([]geometry.Point, len(draft))
	for i, p := range draft {
		canonical[i] = tr.ToCanonical(p)
	}

	var res zones.Result
	if mode == ModeEdit {
		res = s.client.Update(ctx, editID, name, canonical)
	} else {
		res = s.client.Create(ctx, name, canonical)
	}
	if !res.OK {
		logger.Warn("Editor", "Save rejected: %s", res.Message)
		return res
	}

	if err := s.Refresh(ctx); err != nil {
		logger.Warn("Editor", "Refresh after save failed: %v", err)
	}

	// Only reset if the session is still where the commit left it. A
	// cancel or tool switch that landed while the save was in flight
	// must not be clobbered.
	s.mu.Lock()
	if s.mode == mode && s.name == name && s.editID == editID {
		s.mode = ModeIdle
		s.draft = nil
		s.name = ""
		s.editID = 0
	}
	s.mu.Unlock()
	return res
}

// Delete removes a zone by id and refreshes the store on success. The
// caller is responsible for having confirmed with the operator first.
func (s *Session) Delete(ctx context.Context, id int64) zones.Result {
	res := s.client.Delete(ctx, id)
	if res.OK {
		if err := s.Refresh(ctx); err != nil {
			logger.Warn("Editor", "Refresh after delete failed: %v", err)
		}
	}
	return res
}

// Refresh replaces the store contents with the backend's list. On
// failure an already-populated store is left untouched.
func (s *Session) Refresh(ctx context.Context) error {
	list, err := s.client.List(ctx)
	if err != nil {
		return err
	}
	s.store.Replace(list)
	return nil
}
