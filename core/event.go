package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an Event.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventMessageSent   EventKind = "message_sent"
	EventReplyRecorded EventKind = "reply_recorded"
	EventReplyIgnored  EventKind = "reply_ignored"
	EventPoll          EventKind = "poll"
	EventFinalized     EventKind = "finalized"
	EventTimedOut      EventKind = "timed_out"
	EventFailed        EventKind = "failed"
	EventCancelled     EventKind = "cancelled"
)

// Event is the observable progress record of one meeting. Events are emitted
// on the channel returned by the engine and should be treated as immutable.
//
// Which fields are set depends on Kind:
//   - message_sent: Participant, Intent, Text
//   - reply_recorded: Participant, Text, Outcome
//   - poll: Attempt
//   - finalized: AgreedTime
//   - timed_out / failed / cancelled / reply_ignored: Error
type Event struct {
	ID          string              `json:"id"`
	MeetingID   string              `json:"meeting_id"`
	Kind        EventKind           `json:"kind"`
	Participant ParticipantRef      `json:"participant,omitempty"`
	Intent      NegotiationIntent   `json:"intent,omitempty"`
	Text        string              `json:"text,omitempty"`
	Outcome     *NegotiationOutcome `json:"outcome,omitempty"`
	AgreedTime  *TimePreference     `json:"agreed_time,omitempty"`
	Attempt     int                 `json:"attempt,omitempty"`
	Error       string              `json:"error,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewEvent creates a bare event bound to a meeting.
func NewEvent(meetingID string, kind EventKind) Event {
	return Event{
		ID:        NewID(),
		MeetingID: meetingID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent records an outbound message.
func NewMessageEvent(meetingID string, msg Message) Event {
	e := NewEvent(meetingID, EventMessageSent)
	e.Participant = msg.Participant
	e.Intent = msg.Intent
	e.Text = msg.Text
	return e
}

// NewReplyEvent records an inbound reply together with its outcome.
func NewReplyEvent(meetingID string, r Reply, out NegotiationOutcome) Event {
	e := NewEvent(meetingID, EventReplyRecorded)
	e.Participant = r.Participant
	e.Text = r.Text
	e.Outcome = &out
	return e
}

// NewErrorEvent creates an event carrying an error message.
func NewErrorEvent(meetingID string, kind EventKind, err error) Event {
	e := NewEvent(meetingID, kind)
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsTerminal reports whether the event ends the meeting's event stream.
func (e Event) IsTerminal() bool {
	switch e.Kind {
	case EventFinalized, EventTimedOut, EventFailed, EventCancelled:
		return true
	}
	return false
}

// UnixSeconds returns the timestamp as float seconds.
func (e Event) UnixSeconds() float64 {
	return float64(e.Timestamp.UnixNano()) / 1e9
}

// NewID returns a fresh random identifier.
func NewID() string { return uuid.NewString() }
