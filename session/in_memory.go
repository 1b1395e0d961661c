package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/meetmesh/core"
)

// InMemoryStore is a volatile SnapshotStore keeping the last known
// CoordinationState per meeting in a process local map. It is safe for
// concurrent access. Each stored and returned snapshot is cloned to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]core.CoordinationState
}

// NewInMemoryStore constructs an empty in‑memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string]core.CoordinationState)}
}

// Save stores a clone of the provided snapshot, replacing any previous one.
func (s *InMemoryStore) Save(state core.CoordinationState) error {
	if state.MeetingID == "" {
		return fmt.Errorf("snapshot has no meeting id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[state.MeetingID] = state.Clone()
	return nil
}

// Get returns a clone of the last snapshot for meetingID.
func (s *InMemoryStore) Get(meetingID string) (core.CoordinationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.snapshots[meetingID]
	if !ok {
		return core.CoordinationState{}, fmt.Errorf("%w: %s", core.ErrMeetingNotFound, meetingID)
	}
	return state.Clone(), nil
}

// List returns the ids of all stored meetings, sorted.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes a meeting's snapshot.
func (s *InMemoryStore) Delete(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, meetingID)
}
