package core

import (
	"errors"
	"testing"
	"time"
)

func TestNegotiationSession_LastReplyAndClone(t *testing.T) {
	s := NewNegotiationSession("alice", monday)
	if s.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", s.Status)
	}

	s.AddTurn(NewTurn(SpeakerCoordinator, "When works?"))
	if _, ok := s.LastReply(); ok {
		t.Fatal("coordinator turns are not replies")
	}

	reply := NewTurn(Speaker("alice"), "Tuesday at 10")
	reply.Attempted = &TimePreference{SpecificTime: "2025-03-04 10:00"}
	s.AddTurn(reply)
	s.Preference = &TimePreference{TimeLabel: "Tuesday"}

	got, ok := s.LastReply()
	if !ok || got.Text != "Tuesday at 10" {
		t.Fatalf("unexpected last reply %+v", got)
	}
	if !s.UpdatedAt.Equal(reply.Timestamp) {
		t.Error("AddTurn should bump UpdatedAt")
	}

	c := s.Clone()
	c.History[1].Attempted.SpecificTime = "changed"
	c.Preference.TimeLabel = "changed"
	c.History = append(c.History, NewTurn(SpeakerCoordinator, "extra"))

	if s.History[1].Attempted.SpecificTime != "2025-03-04 10:00" || s.Preference.TimeLabel != "Tuesday" || len(s.History) != 2 {
		t.Fatal("clone shares state with original")
	}
}

func TestNegotiationSession_HasReply(t *testing.T) {
	s := NewNegotiationSession("alice", monday)
	s.AddTurn(NewTurnAt(SpeakerCoordinator, "When works?", monday))
	s.AddTurn(NewTurnAt(Speaker("alice"), "let me check", monday.Add(time.Minute)))
	s.AddTurn(NewTurnAt(Speaker("alice"), "Tuesday at 10", monday.Add(2*time.Minute)))

	if !s.HasReply("let me check") || !s.HasReply("Tuesday at 10") {
		t.Fatal("expected earlier replies to be found")
	}
	if s.HasReply("When works?") {
		t.Fatal("coordinator turns are not replies")
	}
	if !s.UpdatedAt.Equal(monday.Add(2 * time.Minute)) {
		t.Fatalf("expected UpdatedAt to follow the turn clock, got %s", s.UpdatedAt)
	}
}

func TestCoordinationState_Queries(t *testing.T) {
	st := CoordinationState{
		Sequence: ParticipantSequence{"a", "b"},
		Sessions: map[ParticipantRef]*NegotiationSession{
			"a": {Participant: "a", Status: StatusConfirmed},
			"b": {Participant: "b", Status: StatusNegotiating},
		},
		AgreedTime: &TimePreference{SpecificTime: "x"},
	}

	if st.AllConfirmed() {
		t.Error("b is still negotiating")
	}
	if n := st.Negotiating(); len(n) != 1 || n[0] != "b" {
		t.Fatalf("unexpected negotiating set %v", n)
	}

	c := st.Clone()
	c.Sessions["b"].Status = StatusConfirmed
	c.AgreedTime.SpecificTime = "y"
	c.Sequence[0] = "z"

	if st.Sessions["b"].Status != StatusNegotiating || st.AgreedTime.SpecificTime != "x" || st.Sequence[0] != "a" {
		t.Fatal("clone shares state with original")
	}
	if !c.AllConfirmed() {
		t.Error("expected clone to be all confirmed")
	}
	if (CoordinationState{}).AllConfirmed() {
		t.Error("an empty sequence is never all confirmed")
	}
}

func TestOutcome_IsTerminal(t *testing.T) {
	for _, o := range []Outcome{OutcomeFinalized, OutcomeTimedOut, OutcomeFailed, OutcomeCancelled} {
		if !o.IsTerminal() {
			t.Errorf("%s should be terminal", o)
		}
	}
	if OutcomeInProgress.IsTerminal() || Outcome("").IsTerminal() {
		t.Error("in progress is not terminal")
	}
}

func TestAttemptLimiter(t *testing.T) {
	l := NewAttemptLimiter(3)
	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected error on first attempt: %v", err)
	}
	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected error on second attempt: %v", err)
	}
	if l.Remaining() != 1 {
		t.Fatalf("expected 1 remaining, got %d", l.Remaining())
	}
	if err := l.Increment(); err == nil {
		t.Fatal("expected budget exhaustion on third attempt")
	}
	if l.Count() != 3 {
		t.Fatalf("expected count 3, got %d", l.Count())
	}

	unlimited := NewAttemptLimiter(0)
	for i := 0; i < 100; i++ {
		if err := unlimited.Increment(); err != nil {
			t.Fatalf("unlimited limiter failed: %v", err)
		}
	}
	if unlimited.Remaining() != -1 {
		t.Fatal("unlimited limiter should report -1")
	}
}

func TestNegotiationError(t *testing.T) {
	cause := &OutOfSequenceError{Participant: "b", Expected: "a", Status: StatusPending}
	err := error(&NegotiationError{MeetingID: "m-1", Outcome: OutcomeFailed, Err: cause})

	var oos *OutOfSequenceError
	if !errors.As(err, &oos) || oos.Expected != "a" {
		t.Fatalf("expected to unwrap OutOfSequenceError, got %v", err)
	}
	if o, ok := OutcomeOf(err); !ok || o != OutcomeFailed {
		t.Fatalf("unexpected outcome %v %v", o, ok)
	}
	if _, ok := OutcomeOf(errors.New("plain")); ok {
		t.Fatal("plain errors carry no outcome")
	}
	if got := (&NegotiationError{MeetingID: "m-2", Outcome: OutcomeTimedOut}).Error(); got != "meeting m-2 timed_out" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAmbiguousPriorityError(t *testing.T) {
	err := &AmbiguousPriorityError{Candidates: []ParticipantRef{"a", "b"}}
	if err.Error() != "ambiguous priority between a, b" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if (&AmbiguousPriorityError{}).Error() != "ambiguous priority: no candidates" {
		t.Fatal("unexpected message for empty candidates")
	}
}

func TestTimePreference_Start(t *testing.T) {
	p := PreferenceAt(monday.Add(10*time.Hour), 30*time.Minute)
	if p.Flexibility != FlexibilityStrict || p.SpecificTime != "2025-03-03 10:00" {
		t.Fatalf("unexpected preference %+v", p)
	}

	slot, err := p.Slot(p.Duration, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slot.Start.Equal(monday.Add(10*time.Hour)) || slot.Duration() != 30*time.Minute {
		t.Fatalf("unexpected slot %v", slot)
	}

	rfc := TimePreference{SpecificTime: "2025-03-03T10:00:00+01:00"}
	if s, err := rfc.Start(nil); err != nil || !s.Equal(monday.Add(9*time.Hour)) {
		t.Fatalf("expected RFC 3339 to parse, got %v %v", s, err)
	}

	if _, err := (TimePreference{TimeLabel: "soon"}).Start(nil); !errors.Is(err, ErrUnresolvedPreference) {
		t.Fatalf("expected ErrUnresolvedPreference, got %v", err)
	}
	if _, err := (TimePreference{SpecificTime: "Tuesday"}).Start(nil); !errors.Is(err, ErrUnresolvedPreference) {
		t.Fatalf("expected ErrUnresolvedPreference, got %v", err)
	}

	if got := (TimePreference{TimeLabel: "Tue", SpecificTime: "2025-03-04 10:00"}).String(); got != "Tue (2025-03-04 10:00)" {
		t.Fatalf("unexpected String %q", got)
	}
}
