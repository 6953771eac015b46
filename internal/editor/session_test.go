package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/crowdcount/dashboard-server/internal/geometry"
	"github.com/crowdcount/dashboard-server/internal/zones"
)

// fakeBackend is a minimal zone collection server: it accepts any
// mutation, records the last one, and serves a fixed list. When the
// arrived/release channels are set, the next mutation signals arrived
// and stalls until release closes.
type fakeBackend struct {
	mu         sync.Mutex
	list       []zones.Zone
	lastMethod string
	lastPath   string
	lastBody   zones.Zone
	rejectNext bool
	arrived    chan struct{}
	release    chan struct{}
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(f.list)
			return
		}

		f.lastMethod = r.Method
		f.lastPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

		if f.arrived != nil {
			close(f.arrived)
			f.arrived = nil
		}
		if f.release != nil {
			<-f.release
		}

		w.Header().Set("Content-Type", "application/json")
		if f.rejectNext {
			f.rejectNext = false
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"message":"Invalid zone"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func newTestSession(t *testing.T, backend *fakeBackend) (*Session, *zones.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := zones.NewStore()
	s := NewSession(store, zones.NewClient(srv.URL, ""))
	s.SetCanvasSize(geometry.Size{Width: 640, Height: 360})
	s.SetSourceSize(geometry.Size{Width: 1280, Height: 720})
	return s, store, srv
}

func TestSelectToolRequiresName(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})

	if err := s.SelectTool(ModeLine); err != ErrNameRequired {
		t.Fatalf("line without name: err = %v", err)
	}
	if s.Mode() != ModeIdle {
		t.Fatalf("mode changed on rejected transition: %v", s.Mode())
	}

	s.StageName("Entrance")
	if err := s.SelectTool(ModeLine); err != nil {
		t.Fatalf("line with name: %v", err)
	}
	if s.Mode() != ModeLine {
		t.Fatalf("mode = %v, want line", s.Mode())
	}
}

func TestToolSwitchDiscardsDraft(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	s.StageName("Entrance")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: 10, Y: 10})
	s.Click(geometry.Point{X: 20, Y: 20})
	if len(s.Draft()) != 2 {
		t.Fatalf("draft len = %d", len(s.Draft()))
	}

	_ = s.SelectTool(ModePolygon)
	if len(s.Draft()) != 0 {
		t.Fatalf("draft survived tool switch: %d points", len(s.Draft()))
	}
	if s.Mode() != ModePolygon {
		t.Fatalf("mode = %v, want polygon", s.Mode())
	}
}

func TestClickIgnoredWhileIdle(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	s.Click(geometry.Point{X: 10, Y: 10})
	if len(s.Draft()) != 0 {
		t.Fatalf("idle click recorded")
	}
}

func TestClickClampsToCanvas(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	s.StageName("Entrance")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: -15, Y: 9999})

	draft := s.Draft()
	if len(draft) != 1 {
		t.Fatalf("draft len = %d", len(draft))
	}
	if draft[0].X != 0 || draft[0].Y != 360 {
		t.Fatalf("clamped point = %+v", draft[0])
	}
}

func TestControlsPerMode(t *testing.T) {
	s, store, _ := newTestSession(t, &fakeBackend{})

	if save, cancel := s.Controls(); save || cancel {
		t.Fatalf("idle controls = save %v cancel %v", save, cancel)
	}

	s.StageName("Entrance")
	_ = s.SelectTool(ModePolygon)
	if save, cancel := s.Controls(); !save || !cancel {
		t.Fatalf("polygon controls = save %v cancel %v", save, cancel)
	}

	// Edit mode holds save back until a zone is picked.
	_ = s.SelectTool(ModeEdit)
	if save, _ := s.Controls(); save {
		t.Fatalf("edit save enabled before a zone is selected")
	}
	store.Replace([]zones.Zone{{ID: 7, Name: "Lobby", Points: zones.Points{{X: 100, Y: 100}, {X: 200, Y: 200}}}})
	if err := s.EditZone(7); err != nil {
		t.Fatalf("edit zone: %v", err)
	}
	if save, _ := s.Controls(); !save {
		t.Fatalf("edit save disabled after zone selected")
	}
}

func TestCommitPolygonNeedsThreePoints(t *testing.T) {
	backend := &fakeBackend{}
	s, _, _ := newTestSession(t, backend)
	s.StageName("Lobby")
	_ = s.SelectTool(ModePolygon)
	s.Click(geometry.Point{X: 10, Y: 10})
	s.Click(geometry.Point{X: 20, Y: 10})

	res := s.Commit(context.Background())
	if res.OK {
		t.Fatalf("two-point polygon committed")
	}
	if !strings.Contains(res.Message, "3") {
		t.Fatalf("message = %q", res.Message)
	}
	// Rejection leaves the session exactly as it was.
	if s.Mode() != ModePolygon || len(s.Draft()) != 2 || s.Name() != "Lobby" {
		t.Fatalf("state changed on rejected commit: mode %v draft %d name %q",
			s.Mode(), len(s.Draft()), s.Name())
	}
	if backend.lastMethod != "" {
		t.Fatalf("network touched on local validation failure: %s", backend.lastMethod)
	}
}

func TestCommitConvertsToCanonical(t *testing.T) {
	backend := &fakeBackend{list: []zones.Zone{{ID: 1, Name: "Gate"}}}
	s, store, _ := newTestSession(t, backend)
	s.StageName("Gate")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: 100, Y: 50})
	s.Click(geometry.Point{X: 320, Y: 180})

	res := s.Commit(context.Background())
	if !res.OK {
		t.Fatalf("commit failed: %s", res.Message)
	}
	if backend.lastMethod != http.MethodPost || backend.lastPath != "/api/zones" {
		t.Fatalf("backend saw %s %s", backend.lastMethod, backend.lastPath)
	}
	// 640x360 display onto 1280x720 source doubles every coordinate.
	pts := backend.lastBody.Points
	if len(pts) != 2 || pts[0] != (geometry.Point{X: 200, Y: 100}) || pts[1] != (geometry.Point{X: 640, Y: 360}) {
		t.Fatalf("canonical points = %+v", pts)
	}

	// Success resets the session and refreshes the store.
	if s.Mode() != ModeIdle || s.Name() != "" || len(s.Draft()) != 0 {
		t.Fatalf("session not reset after commit")
	}
	if store.Len() != 1 {
		t.Fatalf("store len = %d after refresh", store.Len())
	}
}

func TestCommitRejectedByBackendKeepsDraft(t *testing.T) {
	backend := &fakeBackend{rejectNext: true}
	s, _, _ := newTestSession(t, backend)
	s.StageName("Gate")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: 10, Y: 10})
	s.Click(geometry.Point{X: 20, Y: 20})

	res := s.Commit(context.Background())
	if res.OK {
		t.Fatalf("rejected commit reported OK")
	}
	if res.Message != "Invalid zone" {
		t.Fatalf("message = %q", res.Message)
	}
	if s.Mode() != ModeLine || len(s.Draft()) != 2 {
		t.Fatalf("draft lost on server rejection")
	}
}

func TestCommitDoesNotClobberRacedCancel(t *testing.T) {
	backend := &fakeBackend{
		arrived: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _, _ := newTestSession(t, backend)
	s.StageName("Gate")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: 10, Y: 10})
	s.Click(geometry.Point{X: 20, Y: 20})

	done := make(chan zones.Result, 1)
	go func() { done <- s.Commit(context.Background()) }()

	// The operator cancels and starts a new draft while the save is
	// still in flight; its completion must not wipe the new state.
	<-backend.arrived
	s.Cancel()
	s.StageName("Second")
	_ = s.SelectTool(ModePolygon)
	s.Click(geometry.Point{X: 30, Y: 30})
	close(backend.release)

	res := <-done
	if !res.OK {
		t.Fatalf("commit failed: %s", res.Message)
	}
	if s.Mode() != ModePolygon || s.Name() != "Second" || len(s.Draft()) != 1 {
		t.Fatalf("in-flight commit clobbered the session: mode %v name %q draft %d",
			s.Mode(), s.Name(), len(s.Draft()))
	}
}

func TestCommitWithoutSourceSize(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	s.SetSourceSize(geometry.Size{})
	s.StageName("Gate")
	_ = s.SelectTool(ModeLine)
	s.Click(geometry.Point{X: 10, Y: 10})
	s.Click(geometry.Point{X: 20, Y: 20})

	res := s.Commit(context.Background())
	if res.OK {
		t.Fatalf("commit succeeded without source dimensions")
	}
	if res.Message != ErrSourcePending.Error() {
		t.Fatalf("message = %q", res.Message)
	}
	if s.Mode() != ModeLine || len(s.Draft()) != 2 {
		t.Fatalf("state changed while source pending")
	}
}

func TestEditZoneSeedsDraftInDisplaySpace(t *testing.T) {
	backend := &fakeBackend{}
	s, store, _ := newTestSession(t, backend)
	store.Replace([]zones.Zone{{
		ID:     3,
		Name:   "Lobby",
		Points: zones.Points{{X: 200, Y: 100}, {X: 640, Y: 360}},
	}})

	if err := s.EditZone(3); err != nil {
		t.Fatalf("edit zone: %v", err)
	}
	if s.Mode() != ModeEdit || s.Name() != "Lobby" {
		t.Fatalf("mode %v name %q after edit", s.Mode(), s.Name())
	}
	draft := s.Draft()
	if len(draft) != 2 || draft[0] != (geometry.Point{X: 100, Y: 50}) || draft[1] != (geometry.Point{X: 320, Y: 180}) {
		t.Fatalf("seeded draft = %+v", draft)
	}

	res := s.Commit(context.Background())
	if !res.OK {
		t.Fatalf("edit commit failed: %s", res.Message)
	}
	if backend.lastMethod != http.MethodPut || backend.lastPath != "/api/zones/3" {
		t.Fatalf("backend saw %s %s", backend.lastMethod, backend.lastPath)
	}
}

func TestEditZoneUnknownID(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	if err := s.EditZone(99); err == nil {
		t.Fatalf("editing unknown zone succeeded")
	}
	if s.Mode() != ModeIdle {
		t.Fatalf("mode changed on failed edit: %v", s.Mode())
	}
}

func TestCancelResetsEverything(t *testing.T) {
	s, _, _ := newTestSession(t, &fakeBackend{})
	s.StageName("Gate")
	_ = s.SelectTool(ModePolygon)
	s.Click(geometry.Point{X: 10, Y: 10})

	s.Cancel()
	if s.Mode() != ModeIdle || s.Name() != "" || len(s.Draft()) != 0 {
		t.Fatalf("cancel left state behind: mode %v name %q draft %d",
			s.Mode(), s.Name(), len(s.Draft()))
	}
}

func TestDeleteRefreshesStore(t *testing.T) {
	backend := &fakeBackend{list: []zones.Zone{{ID: 2, Name: "Lobby"}}}
	s, store, _ := newTestSession(t, backend)
	store.Replace([]zones.Zone{{ID: 1, Name: "Gate"}, {ID: 2, Name: "Lobby"}})

	res := s.Delete(context.Background(), 1)
	if !res.OK {
		t.Fatalf("delete failed: %s", res.Message)
	}
	if backend.lastMethod != http.MethodDelete || backend.lastPath != "/api/zones/1" {
		t.Fatalf("backend saw %s %s", backend.lastMethod, backend.lastPath)
	}
	if store.Len() != 1 {
		t.Fatalf("store len = %d after delete refresh", store.Len())
	}
}
