package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func waitForSnapshot(t *testing.T, c *Channel, timeout time.Duration) Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if snap, ok := c.Latest(); ok {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no snapshot within %v", timeout)
	return Snapshot{}
}

func TestChannelSelectsPushWhenStreamAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		_, _ = fmt.Fprint(w, ": hello\n\n")
		_, _ = fmt.Fprint(w, "data: {\"total_people\":7,\"zones\":{\"Lobby\":2},\"timestamp\":123}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewChannel(Config{StreamURL: srv.URL, PollURL: srv.URL})
	defer c.Stop()

	if mode := c.Start(); mode != ModePush {
		t.Fatalf("mode = %v, want push", mode)
	}
	snap := waitForSnapshot(t, c, 2*time.Second)
	if snap.TotalPeople != 7 || snap.Zones["Lobby"] != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestChannelFallsBackToPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/live":
			http.NotFound(w, r)
		case "/api/count/live":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"total":4,"per_zone":{"Entrance":1}}`))
		}
	}))
	defer srv.Close()

	c := NewChannel(Config{
		StreamURL:    srv.URL + "/api/live",
		PollURL:      srv.URL + "/api/count/live",
		PollInterval: 20 * time.Millisecond,
	})
	defer c.Stop()

	if mode := c.Start(); mode != ModePoll {
		t.Fatalf("mode = %v, want poll", mode)
	}
	snap := waitForSnapshot(t, c, 2*time.Second)
	if snap.TotalPeople != 4 || snap.Zones["Entrance"] != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Timestamp == 0 {
		t.Fatalf("poll snapshot missing timestamp")
	}
}

func TestChannelPollSurvivesFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/count/live" {
			http.NotFound(w, r)
			return
		}
		n := calls.Add(1)
		if n <= 2 {
			// First polls fail; the loop must keep going.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"total":%d,"per_zone":{}}`, n)
	}))
	defer srv.Close()

	c := NewChannel(Config{
		PollURL:      srv.URL + "/api/count/live",
		PollInterval: 20 * time.Millisecond,
	})
	defer c.Stop()

	if mode := c.Start(); mode != ModePoll {
		t.Fatalf("mode = %v, want poll", mode)
	}
	snap := waitForSnapshot(t, c, 2*time.Second)
	if snap.TotalPeople < 3 {
		t.Fatalf("snapshot total = %d, want a post-failure reading", snap.TotalPeople)
	}
}

func TestChannelPollRejectsErrorReplies(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"total":6,"per_zone":{"Lobby":3}}`))
			return
		}
		// A rejected credential answers with a JSON body; it decodes,
		// but must not pass for a reading of zero people.
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"message":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewChannel(Config{
		PollURL:      srv.URL,
		PollInterval: 20 * time.Millisecond,
	})
	defer c.Stop()
	c.Start()

	snap := waitForSnapshot(t, c, 2*time.Second)
	if snap.TotalPeople != 6 {
		t.Fatalf("first reading = %+v", snap)
	}

	// Let several error replies come and go; the counts stay frozen at
	// the last good reading.
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	latest, ok := c.Latest()
	if !ok || latest.TotalPeople != 6 || latest.Zones["Lobby"] != 3 {
		t.Fatalf("error reply replaced the last reading: %+v", latest)
	}
}

func TestChannelSubscribersDropWhenSlow(t *testing.T) {
	c := NewChannel(Config{PollURL: "http://unused"})
	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	// Fill the subscriber buffer and keep publishing; the channel must
	// not block and Latest must reflect the newest snapshot.
	for i := 1; i <= 10; i++ {
		c.publish(Snapshot{TotalPeople: i})
	}
	latest, ok := c.Latest()
	if !ok || latest.TotalPeople != 10 {
		t.Fatalf("latest = %+v ok=%v", latest, ok)
	}
	// The subscriber still sees the earliest buffered values.
	first := <-ch
	if first.TotalPeople != 1 {
		t.Fatalf("first buffered snapshot = %d", first.TotalPeople)
	}
}

func TestChannelLastWriteWins(t *testing.T) {
	c := NewChannel(Config{PollURL: "http://unused"})
	c.publish(Snapshot{TotalPeople: 5, Timestamp: 100})
	// An older timestamp still replaces: ordering is not inspected.
	c.publish(Snapshot{TotalPeople: 2, Timestamp: 50})

	latest, ok := c.Latest()
	if !ok || latest.TotalPeople != 2 || latest.Timestamp != 50 {
		t.Fatalf("latest = %+v", latest)
	}
}
