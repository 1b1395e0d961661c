package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/meetmesh/coordination"
	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
)

// meeting is the runtime handle of one scheduled meeting.
type meeting struct {
	id     string
	coord  *coordination.Engine
	inbox  chan core.Reply
	events chan core.Event
	errs   chan error
	cancel context.CancelFunc
	done   chan struct{}
	log    logging.Logger
}

// Registry maps meeting ids to running meetings. It is owned by an Engine;
// entries are added by Schedule and removed when a meeting's loop exits.
type Registry struct {
	mu       sync.RWMutex
	meetings map[string]*meeting
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{meetings: make(map[string]*meeting)}
}

func (r *Registry) add(m *meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meetings[m.id]; exists {
		return fmt.Errorf("meeting %s already registered", m.id)
	}

	r.meetings[m.id] = m

	return nil
}

func (r *Registry) get(id string) (*meeting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meetings[id]

	return m, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.meetings, id)
}

func (r *Registry) all() []*meeting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		out = append(out, m)
	}

	return out
}

// IDs returns the ids of running meetings, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.meetings))
	for id := range r.meetings {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Len returns the number of running meetings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.meetings)
}
