package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/crowdcount/dashboard-server/internal/logger"
)

// Mode is the transport the channel committed to at startup.
type Mode int

const (
	// ModePush consumes the backend's SSE stream.
	ModePush Mode = iota
	// ModePoll requests point-in-time snapshots on a fixed interval.
	ModePoll
)

func (m Mode) String() string {
	if m == ModePush {
		return "push"
	}
	return "poll"
}

// Config configures a Channel.
type Config struct {
	// StreamURL is the SSE endpoint for push mode.
	StreamURL string
	// PollURL is the point-in-time snapshot endpoint for poll mode.
	PollURL string
	// Credential is the opaque session credential sent with requests.
	Credential string
	// PollInterval is the delay between the end of one poll and the
	// start of the next. Defaults to one second.
	PollInterval time.Duration
	// ReconnectDelay is the wait before re-dialing a dropped stream.
	ReconnectDelay time.Duration
}

// Channel feeds occupancy snapshots to its subscribers. The transport
// is chosen once by Start and never switched mid-session.
type Channel struct {
	cfg  Config
	http *http.Client

	mu        sync.Mutex
	clients   map[int]chan Snapshot
	nextID    int
	latest    Snapshot
	hasLatest bool
	mode      Mode
	stop      chan struct{}
	stopped   bool
}

// NewChannel creates a channel; call Start to select the transport and
// begin feeding subscribers.
func NewChannel(cfg Config) *Channel {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &Channel{
		cfg:     cfg,
		http:    &http.Client{},
		clients: make(map[int]chan Snapshot),
		stop:    make(chan struct{}),
	}
}

// Start probes the stream endpoint once and launches the feed loop in
// push mode when the probe answers with an event stream, poll mode
// otherwise. The choice is final for the channel's lifetime.
func (c *Channel) Start() Mode {
	mode := ModePoll
	if c.cfg.StreamURL != "" && c.probeStream() {
		mode = ModePush
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()

	logger.Info("Telemetry", "Live feed transport: %s", mode)
	if mode == ModePush {
		go c.runPush()
	} else {
		go c.runPoll()
	}
	return mode
}

// Stop halts the feed loop.
func (c *Channel) Stop() {
	c.mu.Lock()
	if !c.stopped {
		close(c.stop)
		c.stopped = true
	}
	c.mu.Unlock()
}

// Mode returns the transport selected by Start.
func (c *Channel) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Subscribe adds a consumer and returns its id and snapshot channel.
// Slow consumers have snapshots dropped rather than blocking the feed.
func (c *Channel) Subscribe() (int, <-chan Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan Snapshot, 2)
	c.clients[id] = ch

	logger.Debug("Telemetry", "Consumer #%d subscribed (total: %d)", id, len(c.clients))
	return id, ch
}

// Unsubscribe removes a consumer.
func (c *Channel) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.clients[id]; ok {
		close(ch)
		delete(c.clients, id)
	}
}

// Latest returns the most recent snapshot, if one has arrived.
func (c *Channel) Latest() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

func (c *Channel) publish(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Last write wins; out-of-order delivery is not detected.
	c.latest = snap
	c.hasLatest = true

	for _, ch := range c.clients {
		select {
		case ch <- snap:
		default:
		}
	}
}

// probeStream makes the one-time capability check for push mode.
func (c *Channel) probeStream() bool {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequest(http.MethodGet, c.cfg.StreamURL, nil)
	if err != nil {
		return false
	}
	c.authorize(req)
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK &&
		strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream")
}

func (c *Channel) runPush() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		if err := c.consumeStream(); err != nil {
			logger.Warn("Telemetry", "Stream dropped: %v, reconnecting in %v", err, c.cfg.ReconnectDelay)
		}

		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Channel) consumeStream() error {
	req, err := http.NewRequest(http.MethodGet, c.cfg.StreamURL, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var data bytes.Buffer
	for scanner.Scan() {
		select {
		case <-c.stop:
			return nil
		default:
		}

		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			if data.Len() > 0 {
				var snap Snapshot
				if err := json.Unmarshal(data.Bytes(), &snap); err == nil {
					c.publish(snap)
				}
				data.Reset()
			}
		default:
			// Comment or field we do not use (keepalives arrive here).
		}
	}
	return scanner.Err()
}

// runPoll requests a snapshot, processes it (or swallows the failure),
// and only then schedules the next poll, so requests never overlap. A
// failing backend freezes the displayed counts; it never kills the loop.
func (c *Channel) runPoll() {
	for {
		if err := c.pollOnce(); err != nil {
			logger.Debug("Telemetry", "Poll failed: %v", err)
		}

		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Channel) pollOnce() error {
	req, err := http.NewRequest(http.MethodGet, c.cfg.PollURL, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	client := &http.Client{Timeout: c.cfg.PollInterval * 3}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// An error reply may carry a JSON body of its own; it must never be
	// decoded as a reading and wipe the last good counts.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll status %d", resp.StatusCode)
	}

	var reply pollReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return err
	}
	c.publish(reply.toSnapshot(time.Now()))
	return nil
}

func (c *Channel) authorize(req *http.Request) {
	if c.cfg.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)
	}
}
