package dispatch

import (
	"sync"

	"github.com/tamsinwray/meshconsole/internal/twin"
)

// Store holds the latest known state per device.
//
// Each Apply is an atomic read-modify-write: concurrent updates for the
// same device never interleave mid-merge. The per-device broadcast
// channel additionally serializes Apply with snapshot reads, so the
// store itself only needs a plain mutex.
type Store struct {
	mu     sync.Mutex
	states map[string]twin.State
}

// NewStore creates an empty latest-state store.
func NewStore() *Store {
	return &Store{
		states: make(map[string]twin.State),
	}
}

// Latest returns the stored state for a device.
// The second return value is false for devices that never reported.
func (s *Store) Latest(deviceID string) (twin.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[deviceID]
	return st, ok
}

// Apply folds an update into the stored state and returns the result.
//
// Full updates replace the stored state wholesale. Partial updates merge
// into the stored state, or into an implicit empty state for devices that
// never reported.
func (s *Store) Apply(deviceID string, update twin.State, partial bool) twin.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := update
	if partial {
		merged = s.states[deviceID].Merge(update)
	}
	s.states[deviceID] = merged

	return merged
}

// Len returns the number of devices with stored state.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
