package dashboard

import (
	"math/rand"
	"sync"

	"github.com/crowdcount/dashboard-server/internal/geometry"
)

// SyntheticSource stands in for the external detector: a set of random
// walkers wandering the source frame. It keeps the feed, the counters
// and the overlay alive when no detector is attached.
type SyntheticSource struct {
	frame geometry.Size

	mu      sync.Mutex
	walkers []walker
	rng     *rand.Rand
}

type walker struct {
	id  int
	pos geometry.Point
	vel geometry.Point
}

// NewSyntheticSource creates count walkers at random positions inside
// the frame.
func NewSyntheticSource(frame geometry.Size, count int, seed int64) *SyntheticSource {
	s := &SyntheticSource{
		frame: frame,
		rng:   rand.New(rand.NewSource(seed)),
	}
	for i := 0; i < count; i++ {
		s.walkers = append(s.walkers, walker{
			id: i + 1,
			pos: geometry.Point{
				X: s.rng.Float64() * float64(frame.Width),
				Y: s.rng.Float64() * float64(frame.Height),
			},
			vel: geometry.Point{
				X: (s.rng.Float64() - 0.5) * 12,
				Y: (s.rng.Float64() - 0.5) * 12,
			},
		})
	}
	return s
}

// Advance moves every walker one step, bouncing off the frame edges.
func (s *SyntheticSource) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := float64(s.frame.Width)
	h := float64(s.frame.Height)
	for i := range s.walkers {
		wk := &s.walkers[i]
		wk.pos.X += wk.vel.X
		wk.pos.Y += wk.vel.Y
		if wk.pos.X < 0 || wk.pos.X > w {
			wk.vel.X = -wk.vel.X
			wk.pos.X = min(max(wk.pos.X, 0), w)
		}
		if wk.pos.Y < 0 || wk.pos.Y > h {
			wk.vel.Y = -wk.vel.Y
			wk.pos.Y = min(max(wk.pos.Y, 0), h)
		}
	}
}

// Tracks returns the current walker positions.
func (s *SyntheticSource) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.walkers))
	for i, wk := range s.walkers {
		out[i] = Track{ID: wk.id, Pos: wk.pos}
	}
	return out
}

// FrameSize returns the synthetic source frame dimensions.
func (s *SyntheticSource) FrameSize() geometry.Size {
	return s.frame
}

// StaticSource is a fixed set of tracks, used by tests.
type StaticSource struct {
	Frame geometry.Size
	List  []Track
}

// Tracks returns the fixed track list.
func (s *StaticSource) Tracks() []Track { return s.List }

// FrameSize returns the fixed frame dimensions.
func (s *StaticSource) FrameSize() geometry.Size { return s.Frame }
