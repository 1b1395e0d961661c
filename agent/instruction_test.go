package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/meetmesh/core"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(core.RenderContext) (string, error) { return m.text, m.err }

func newTestRenderContext() core.RenderContext {
	return core.RenderContext{MeetingID: "m-1", Title: "Sync", Participant: "alice", ParticipantName: "Alice"}
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(newTestRenderContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(rc core.RenderContext) (string, error) { return "for " + rc.ParticipantName, nil })
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(newTestRenderContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "for Alice" {
		t.Fatalf("expected 'for Alice', got %q", got)
	}
}

func TestInstruction_NewInstructionFromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "provider text"})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(newTestRenderContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "provider text" {
		t.Fatalf("expected 'provider text', got %q", got)
	}
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	expectedErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: expectedErr})
	_, err := inst.Resolve(newTestRenderContext())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
	if !(Instruction{}).IsZero() {
		t.Fatalf("expected zero instruction")
	}
}
