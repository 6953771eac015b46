package dashboard

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/crowdcount/dashboard-server/internal/logger"
	"github.com/crowdcount/dashboard-server/internal/metrics"
	"github.com/crowdcount/dashboard-server/internal/telemetry"
)

// advancer is implemented by track sources that need a tick to move
// (the synthetic source). Real detectors advance on their own.
type advancer interface {
	Advance()
}

// LiveBroadcaster manages fanout of occupancy snapshots to the SSE
// clients of /api/live. Snapshots are serialized once and shared.
type LiveBroadcaster struct {
	mu       sync.Mutex
	clients  map[int]chan []byte
	nextID   int
	counter  *Counter
	m        *metrics.Metrics
	interval time.Duration
	stop     chan struct{}
	stopped  bool

	latest    telemetry.Snapshot
	hasLatest bool
	history   []telemetry.Snapshot
}

// historyLimit bounds the retained snapshot history, matching the trend
// window the console charts from.
const historyLimit = 120

// NewLiveBroadcaster creates a broadcaster emitting one snapshot per
// interval.
func NewLiveBroadcaster(counter *Counter, m *metrics.Metrics, interval time.Duration) *LiveBroadcaster {
	return &LiveBroadcaster{
		clients:  make(map[int]chan []byte),
		counter:  counter,
		m:        m,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Subscribe adds an SSE client and returns its id and event channel.
func (lb *LiveBroadcaster) Subscribe() (int, <-chan []byte) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	id := lb.nextID
	lb.nextID++
	ch := make(chan []byte, 2) // Buffer 2 events to avoid blocking
	lb.clients[id] = ch

	if lb.m != nil {
		lb.m.LiveClients.Add(1)
		lb.m.TotalLiveClients.Add(1)
	}
	logger.Debug("LiveBroadcaster", "Client #%d subscribed (total clients: %d)", id, len(lb.clients))
	return id, ch
}

// Unsubscribe removes an SSE client.
func (lb *LiveBroadcaster) Unsubscribe(id int) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if ch, ok := lb.clients[id]; ok {
		close(ch)
		delete(lb.clients, id)
		if lb.m != nil {
			lb.m.LiveClients.Store(uint64(len(lb.clients)))
		}
		logger.Debug("LiveBroadcaster", "Client #%d unsubscribed (remaining clients: %d)", id, len(lb.clients))
	}
}

// Start begins the snapshot loop.
func (lb *LiveBroadcaster) Start() {
	go lb.run()
}

// Stop halts the broadcaster.
func (lb *LiveBroadcaster) Stop() {
	lb.mu.Lock()
	if !lb.stopped {
		close(lb.stop)
		lb.stopped = true
	}
	lb.mu.Unlock()
}

// Latest returns the most recent snapshot built by the loop. The poll
// endpoint serves from here so push and poll clients see the same
// reading.
func (lb *LiveBroadcaster) Latest() (telemetry.Snapshot, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.latest, lb.hasLatest
}

// History returns the retained snapshots, oldest first.
func (lb *LiveBroadcaster) History() []telemetry.Snapshot {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	out := make([]telemetry.Snapshot, len(lb.history))
	copy(out, lb.history)
	return out
}

func (lb *LiveBroadcaster) run() {
	logger.Info("LiveBroadcaster", "Starting live snapshot loop (interval=%v)...", lb.interval)
	ticker := time.NewTicker(lb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-lb.stop:
			return
		case <-ticker.C:
			lb.tick()
		}
	}
}

func (lb *LiveBroadcaster) tick() {
	if a, ok := lb.counter.source.(advancer); ok {
		a.Advance()
	}
	lb.counter.Step()
	snap := lb.counter.Snapshot()

	lb.mu.Lock()
	lb.latest = snap
	lb.hasLatest = true
	lb.history = append(lb.history, snap)
	if len(lb.history) > historyLimit {
		lb.history = lb.history[1:]
	}
	clientCount := len(lb.clients)
	lb.mu.Unlock()

	if clientCount == 0 {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error("LiveBroadcaster", "JSON marshal error: %v", err)
		return
	}
	lb.broadcast(data)
}

func (lb *LiveBroadcaster) broadcast(data []byte) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, ch := range lb.clients {
		select {
		case ch <- data:
			// Sent successfully
		default:
			// Client too slow, skip this snapshot for this client
		}
	}
	if lb.m != nil {
		lb.m.SnapshotsBroadcast.Add(1)
	}
}
