package analytics

import (
	"sort"
	"sync"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// Store holds the latest analytics per spot. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	spots map[string]waves.SpotAnalytics
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{spots: make(map[string]waves.SpotAnalytics)}
}

// Publish replaces the analytics of a.SpotID
func (s *Store) Publish(a waves.SpotAnalytics) {
	s.mu.Lock()
	s.spots[a.SpotID] = a
	s.mu.Unlock()
}

// Get returns the latest analytics for a spot
func (s *Store) Get(spotID string) (waves.SpotAnalytics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.spots[spotID]
	return a, ok
}

// All returns every spot's analytics ordered by spot id
func (s *Store) All() []waves.SpotAnalytics {
	s.mu.RLock()
	out := make([]waves.SpotAnalytics, 0, len(s.spots))
	for _, a := range s.spots {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SpotID < out[j].SpotID })
	return out
}

// Len returns the number of spots with published analytics
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spots)
}
