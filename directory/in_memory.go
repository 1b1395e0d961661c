package directory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/meetmesh/core"
)

// InMemoryDirectory is a naive process‑local Directory. It offers:
//  1. Lookup of participants by ref
//  2. Case-insensitive name search, used to resolve names extracted from a
//     conversation to refs
//
// Concurrency: protected by RWMutex. Returned participants are copies.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	people map[core.ParticipantRef]core.Participant
}

// NewInMemoryDirectory creates a directory pre-populated with people.
func NewInMemoryDirectory(people ...core.Participant) *InMemoryDirectory {
	d := &InMemoryDirectory{people: make(map[core.ParticipantRef]core.Participant, len(people))}
	for _, p := range people {
		d.people[p.Ref] = clone(p)
	}
	return d
}

// Lookup returns the participant behind ref.
func (d *InMemoryDirectory) Lookup(_ context.Context, ref core.ParticipantRef) (core.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[ref]
	if !ok {
		return core.Participant{}, fmt.Errorf("%w: %s", core.ErrParticipantNotFound, ref)
	}
	return clone(p), nil
}

// Add inserts or replaces a participant.
func (d *InMemoryDirectory) Add(p core.Participant) error {
	if p.Ref == "" {
		return fmt.Errorf("participant ref is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.people[p.Ref] = clone(p)
	return nil
}

// Remove deletes a participant by ref.
func (d *InMemoryDirectory) Remove(ref core.ParticipantRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.people[ref]; !ok {
		return fmt.Errorf("%w: %s", core.ErrParticipantNotFound, ref)
	}
	delete(d.people, ref)
	return nil
}

// Search returns up to limit participants whose name or ref contains query
// (case-insensitive), ordered by ref. An empty query matches everyone.
func (d *InMemoryDirectory) Search(query string, limit int) []core.Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]core.Participant, 0)
	for _, p := range d.people {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(string(p.Ref)), q) {
			results = append(results, clone(p))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Ref < results[j].Ref })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Resolve maps a name or ref to exactly one participant ref. Exact matches on
// ref or name win over substring matches; more than one candidate is an
// error.
func (d *InMemoryDirectory) Resolve(name string) (core.ParticipantRef, error) {
	d.mu.RLock()
	for _, p := range d.people {
		if strings.EqualFold(string(p.Ref), name) || strings.EqualFold(p.Name, name) {
			d.mu.RUnlock()
			return p.Ref, nil
		}
	}
	d.mu.RUnlock()

	matches := d.Search(name, 2)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", core.ErrParticipantNotFound, name)
	case 1:
		return matches[0].Ref, nil
	default:
		return "", fmt.Errorf("participant name %q is ambiguous", name)
	}
}

func clone(p core.Participant) core.Participant {
	p.Availability.Free = slices.Clone(p.Availability.Free)
	p.Availability.Busy = slices.Clone(p.Availability.Busy)
	return p
}
