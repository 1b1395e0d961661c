package core

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the per-participant negotiation state.
type SessionStatus string

const (
	StatusPending     SessionStatus = "PENDING"
	StatusNegotiating SessionStatus = "NEGOTIATING"
	StatusConfirmed   SessionStatus = "CONFIRMED"
	StatusConflict    SessionStatus = "CONFLICT"
)

// Speaker identifies the author of a history turn. Participants speak as their
// ref; the orchestrator speaks as SpeakerCoordinator.
type Speaker string

// SpeakerCoordinator is the speaker recorded for outbound messages.
const SpeakerCoordinator Speaker = "coordinator"

// Turn is one entry of a session's history.
//
// Attempted carries the preference extracted from a reply that failed a
// constraint check; it is kept here, never in NegotiationSession.Preference.
type Turn struct {
	ID        string            `json:"id"`
	Speaker   Speaker           `json:"speaker"`
	Text      string            `json:"text"`
	Intent    NegotiationIntent `json:"intent,omitempty"`
	Attempted *TimePreference   `json:"attempted,omitempty"`
	Reason    ConflictReason    `json:"reason,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewTurn creates a turn with a fresh id stamped with the current time.
func NewTurn(speaker Speaker, text string) Turn {
	return NewTurnAt(speaker, text, time.Now())
}

// NewTurnAt creates a turn with a fresh id stamped with at, in UTC.
func NewTurnAt(speaker Speaker, text string, at time.Time) Turn {
	return Turn{ID: uuid.NewString(), Speaker: speaker, Text: text, Timestamp: at.UTC()}
}

// NegotiationSession tracks one participant's progress through the protocol.
// Sessions are owned by a coordination engine and mutated only through its
// transition functions; values handed to callers are clones.
type NegotiationSession struct {
	Participant ParticipantRef  `json:"participant"`
	Status      SessionStatus   `json:"status"`
	History     []Turn          `json:"history"`
	Preference  *TimePreference `json:"preference,omitempty"`
	LastSeq     uint64          `json:"last_seq,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewNegotiationSession creates a PENDING session.
func NewNegotiationSession(p ParticipantRef, now time.Time) *NegotiationSession {
	return &NegotiationSession{Participant: p, Status: StatusPending, History: []Turn{}, UpdatedAt: now}
}

// AddTurn appends a turn and bumps UpdatedAt.
func (s *NegotiationSession) AddTurn(t Turn) {
	s.History = append(s.History, t)
	s.UpdatedAt = t.Timestamp
}

// LastReply returns the most recent turn spoken by the participant.
func (s *NegotiationSession) LastReply() (Turn, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Speaker == Speaker(s.Participant) {
			return s.History[i], true
		}
	}
	return Turn{}, false
}

// HasReply reports whether the participant already said text in this
// session.
func (s *NegotiationSession) HasReply(text string) bool {
	for _, t := range s.History {
		if t.Speaker == Speaker(s.Participant) && t.Text == text {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe for independent mutation.
func (s *NegotiationSession) Clone() *NegotiationSession {
	c := *s
	c.History = slices.Clone(s.History)
	for i := range c.History {
		c.History[i].Attempted = clonePreference(c.History[i].Attempted)
	}
	c.Preference = clonePreference(s.Preference)
	return &c
}
