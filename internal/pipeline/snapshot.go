package pipeline

import (
	"sync"

	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

// Snapshot holds the most recently published timeline.
type Snapshot struct {
	mu       sync.RWMutex
	timeline domain.Timeline
	set      bool
}

// Store replaces the published timeline.
func (s *Snapshot) Store(tl domain.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline = tl
	s.set = true
}

// Latest returns the published timeline, or false before the first Store.
func (s *Snapshot) Latest() (domain.Timeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeline, s.set
}
