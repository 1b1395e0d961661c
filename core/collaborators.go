package core

import (
	"context"
	"time"
)

// RenderContext is the data a Renderer may use to phrase a message.
type RenderContext struct {
	MeetingID       string          `json:"meeting_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Category        Category        `json:"category,omitempty"`
	Participant     ParticipantRef  `json:"participant"`
	ParticipantName string          `json:"participant_name"`
	Coordinator     ParticipantRef  `json:"coordinator"`
	CoordinatorName string          `json:"coordinator_name"`
	Participants    []string        `json:"participants"`
	Duration        time.Duration   `json:"duration"`
	TimeRange       TimeRange       `json:"time_range"`
	Constraints     Constraints     `json:"constraints"`
	Proposal        *TimePreference `json:"proposal,omitempty"`
	Reason          ConflictReason  `json:"reason,omitempty"`
	Suggestion      *TimePreference `json:"suggestion,omitempty"`
	AgreedTime      *TimePreference `json:"agreed_time,omitempty"`
	History         []Turn          `json:"history,omitempty"`
}

// Message is an outbound, already rendered notification.
type Message struct {
	MeetingID   string            `json:"meeting_id"`
	Participant ParticipantRef    `json:"participant"`
	Intent      NegotiationIntent `json:"intent"`
	Text        string            `json:"text"`
}

// Reply is an inbound participant reply. Seq is an optional transport
// sequence number; when non-zero, replies with Seq at or below the last seen
// value for the participant are treated as replays.
type Reply struct {
	MeetingID   string         `json:"meeting_id"`
	Participant ParticipantRef `json:"participant"`
	Text        string         `json:"text"`
	Seq         uint64         `json:"seq,omitempty"`
}

// Summarizer turns an initial conversation into a structured request. It is
// the only place free-form intake text is interpreted.
type Summarizer interface {
	Summarize(ctx context.Context, conversation []Turn) (MeetingRequest, error)
}

// Renderer phrases a message for one participant. The engine decides what to
// say; a Renderer only decides how.
type Renderer interface {
	Render(ctx context.Context, intent NegotiationIntent, rc RenderContext) (string, error)
}

// Transport delivers rendered messages. Replies flow back through the
// engine's Deliver method.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Extractor reads a time preference out of free reply text. proposal is the
// time the participant was asked about (nil for the main coordinator's first
// turn). A nil result with a nil error means nothing usable was stated.
type Extractor interface {
	Extract(ctx context.Context, text string, proposal *TimePreference) (*TimePreference, error)
}

// Directory resolves participant refs to identities and availability.
type Directory interface {
	Lookup(ctx context.Context, ref ParticipantRef) (Participant, error)
}

// SnapshotStore persists coordination state snapshots. Implementations must
// store and return copies.
type SnapshotStore interface {
	Save(state CoordinationState) error
	Get(meetingID string) (CoordinationState, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string, proposal *TimePreference) (*TimePreference, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, text string, proposal *TimePreference) (*TimePreference, error) {
	return f(ctx, text, proposal)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
