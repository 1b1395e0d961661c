package core

import (
	"errors"
	"testing"
)

func TestEvent_Constructors(t *testing.T) {
	msg := NewMessageEvent("m-1", Message{MeetingID: "m-1", Participant: "bob", Intent: IntentOpen, Text: "hi"})
	if msg.Kind != EventMessageSent || msg.Participant != "bob" || msg.Intent != IntentOpen || msg.ID == "" {
		t.Fatalf("unexpected message event %+v", msg)
	}
	if msg.IsTerminal() {
		t.Error("message events are not terminal")
	}

	out := NegotiationOutcome{Participant: "bob", Status: StatusConfirmed, Action: ActionReadyToFinalize}
	rep := NewReplyEvent("m-1", Reply{Participant: "bob", Text: "ok"}, out)
	if rep.Outcome == nil || rep.Outcome.Action != ActionReadyToFinalize {
		t.Fatalf("unexpected reply event %+v", rep)
	}

	failed := NewErrorEvent("m-1", EventFailed, errors.New("boom"))
	if failed.Error != "boom" || !failed.IsTerminal() {
		t.Fatalf("unexpected failed event %+v", failed)
	}
	if NewErrorEvent("m-1", EventCancelled, nil).Error != "" {
		t.Error("nil error should leave Error empty")
	}

	if a, b := NewID(), NewID(); a == b {
		t.Fatal("ids must be unique")
	}
}
