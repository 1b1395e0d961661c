package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/meetmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.Directory = (*InMemoryDirectory)(nil)

func TestInMemoryDirectory_LookupAdd(t *testing.T) {
	busy := core.TimeSlot{Start: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC)}
	d := NewInMemoryDirectory(core.Participant{Ref: "u1", Name: "Alice Smith", Availability: core.Availability{Busy: []core.TimeSlot{busy}}})

	p, err := d.Lookup(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Alice Smith" || len(p.Availability.Busy) != 1 {
		t.Fatalf("unexpected participant %#v", p)
	}

	// mutation safety (returned participant is a copy)
	p.Availability.Busy[0].Start = time.Time{}
	p2, _ := d.Lookup(context.Background(), "u1")
	if p2.Availability.Busy[0].Start.IsZero() {
		t.Fatal("expected copy isolation for availability")
	}

	if _, err := d.Lookup(context.Background(), "nobody"); !errors.Is(err, core.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}

	if err := d.Add(core.Participant{}); err == nil {
		t.Fatal("expected error for empty ref")
	}
	if err := d.Add(core.Participant{Ref: "u2", Name: "Bob"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := d.Remove("u2"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := d.Remove("u2"); err == nil {
		t.Fatal("expected error removing twice")
	}
}

func TestInMemoryDirectory_SearchResolve(t *testing.T) {
	d := NewInMemoryDirectory(
		core.Participant{Ref: "u1", Name: "Alice Smith"},
		core.Participant{Ref: "u2", Name: "Alicia Keys"},
		core.Participant{Ref: "u3", Name: "Bob Stone"},
	)

	if got := d.Search("ALI", 10); len(got) != 2 || got[0].Ref != "u1" {
		t.Fatalf("unexpected search result %#v", got)
	}
	if got := d.Search("", 2); len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}

	ref, err := d.Resolve("bob")
	if err != nil || ref != "u3" {
		t.Fatalf("expected u3, got %q %v", ref, err)
	}
	ref, err = d.Resolve("alice smith")
	if err != nil || ref != "u1" {
		t.Fatalf("expected exact match u1, got %q %v", ref, err)
	}
	if _, err := d.Resolve("ali"); err == nil {
		t.Fatal("expected ambiguity error")
	}
	if _, err := d.Resolve("zed"); !errors.Is(err, core.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
