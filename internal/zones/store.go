package zones

import "sync"

// Store is the in-memory mirror of the backend zone collection. It is
// never patched optimistically: after a successful save the caller
// replaces the whole list with the server's authoritative order.
type Store struct {
	mu     sync.Mutex
	zones  []Zone
	loaded bool
}

// NewStore returns an empty, not-yet-loaded store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs the authoritative list from the backend and marks
// the store loaded.
func (s *Store) Replace(list []Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = make([]Zone, len(list))
	copy(s.zones, list)
	s.loaded = true
}

// All returns a copy of the current zone list in backend order.
func (s *Store) All() []Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// ByID looks a zone up by its backend id.
func (s *Store) ByID(id int64) (Zone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// Len returns the number of cached zones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.zones)
}

// Loaded reports whether at least one refresh has succeeded. A failed
// first load leaves the store empty and unloaded; later failures leave
// the populated contents untouched.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
