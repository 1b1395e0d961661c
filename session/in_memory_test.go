package session

import (
	"errors"
	"testing"

	"github.com/hupe1980/meetmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.SnapshotStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGet(t *testing.T) {
	s := NewInMemoryStore()

	state := core.CoordinationState{
		MeetingID:       "m-1",
		Sequence:        core.ParticipantSequence{"a", "b"},
		MainCoordinator: "a",
		Sessions: map[core.ParticipantRef]*core.NegotiationSession{
			"a": {Participant: "a", Status: core.StatusNegotiating},
		},
		Outcome: core.OutcomeInProgress,
	}

	if err := s.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	state.Sessions["a"].Status = core.StatusConflict

	got, err := s.Get("m-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sessions["a"].Status != core.StatusNegotiating {
		t.Fatalf("stored snapshot was mutated through caller reference: %s", got.Sessions["a"].Status)
	}

	got.Sessions["a"].Status = core.StatusConfirmed
	again, _ := s.Get("m-1")
	if again.Sessions["a"].Status != core.StatusNegotiating {
		t.Fatalf("stored snapshot was mutated through returned reference")
	}
}

func TestInMemoryStore_NotFound(t *testing.T) {
	s := NewInMemoryStore()

	if _, err := s.Get("missing"); !errors.Is(err, core.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}

	if err := s.Save(core.CoordinationState{}); err == nil {
		t.Fatal("expected error for snapshot without meeting id")
	}
}

func TestInMemoryStore_ListDelete(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.Save(core.CoordinationState{MeetingID: "b"})
	_ = s.Save(core.CoordinationState{MeetingID: "a"})

	if ids := s.List(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}

	s.Delete("a")
	if ids := s.List(); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("unexpected ids after delete %v", ids)
	}
}
