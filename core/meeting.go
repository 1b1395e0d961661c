package core

import (
	"fmt"
	"slices"
	"time"
)

// ParticipantRef is an opaque identifier resolvable to a participant's
// identity and availability via a Directory.
type ParticipantRef string

// Category classifies a meeting for priority rule matching.
type Category string

const (
	CategoryInterview         Category = "interview"
	CategoryPerformanceReview Category = "performance-review"
	CategoryProjectMeeting    Category = "project-meeting"
	CategoryTraining          Category = "training"
	CategoryOther             Category = "other"
)

// MeetingRole is the role a participant plays in one particular meeting.
type MeetingRole string

const (
	RoleInterviewer MeetingRole = "interviewer"
	RoleSuperior    MeetingRole = "superior"
	RoleProjectLead MeetingRole = "project-lead"
	RoleInstructor  MeetingRole = "instructor"
	RoleRequester   MeetingRole = "requester"
)

// Rank is the organisational seniority of a participant.
type Rank string

const (
	RankExecutive Rank = "executive"
	RankManager   Rank = "manager"
	RankStaff     Rank = "staff"
)

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Overlaps reports whether two slots share any instant.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether o lies entirely inside s.
func (s TimeSlot) Contains(o TimeSlot) bool {
	return !o.Start.Before(s.Start) && !o.End.After(s.End)
}

// Duration returns End - Start.
func (s TimeSlot) Duration() time.Duration { return s.End.Sub(s.Start) }

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s-%s", s.Start.Format(PreferenceLayout), s.End.Format("15:04"))
}

// TimeRange bounds the window a meeting may be placed in. A zero Start or End
// leaves that side unbounded.
type TimeRange struct {
	Start time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"` // e.g. "this week"
}

// Admits reports whether the slot fits inside the range.
func (r TimeRange) Admits(s TimeSlot) bool {
	if !r.Start.IsZero() && s.Start.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && s.End.After(r.End) {
		return false
	}
	return true
}

// HourRange restricts meetings to [From, To) local hours of the day.
type HourRange struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// Constraints are the schedule constraints attached to a request.
type Constraints struct {
	WorkdayOnly  bool       `json:"workday_only,omitempty" yaml:"workday_only,omitempty"`
	WorkingHours *HourRange `json:"working_hours,omitempty" yaml:"working_hours,omitempty"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Availability is the pre-resolved schedule of one participant. Busy slots are
// listed conflicts; when Free is non-empty a slot must also fit inside one of
// the free slots.
type Availability struct {
	Free []TimeSlot `json:"free,omitempty" yaml:"free,omitempty"`
	Busy []TimeSlot `json:"busy,omitempty" yaml:"busy,omitempty"`
}

// Participant is the resolved identity behind a ParticipantRef.
type Participant struct {
	Ref          ParticipantRef `json:"ref"`
	Name         string         `json:"name"`
	Rank         Rank           `json:"rank,omitempty"`
	External     bool           `json:"external,omitempty"`
	Availability Availability   `json:"availability"`
}

// DisplayName returns Name or falls back to the ref.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return string(p.Ref)
}

// MeetingRequest is the structured output of the summarizer. It is treated as
// immutable once accepted by the engine (see Clone).
type MeetingRequest struct {
	Title        string                         `json:"title"`
	Description  string                         `json:"description,omitempty"`
	Category     Category                       `json:"category,omitempty"`
	Participants []ParticipantRef               `json:"participants"`
	Roles        map[ParticipantRef]MeetingRole `json:"roles,omitempty"`
	Organizer    ParticipantRef                 `json:"organizer,omitempty"`
	Coordinator  ParticipantRef                 `json:"coordinator,omitempty"` // explicit override
	Duration     time.Duration                  `json:"duration,omitempty"`
	TimeRange    TimeRange                      `json:"time_range"`
	Constraints  Constraints                    `json:"constraints"`
}

// Validate checks structural integrity: at least one participant and no duplicates.
func (r MeetingRequest) Validate() error {
	if len(r.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[ParticipantRef]struct{}, len(r.Participants))
	for _, p := range r.Participants {
		if p == "" {
			return fmt.Errorf("%w: empty participant ref", ErrInvalidRequest)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = struct{}{}
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidRequest)
	}
	return nil
}

// HasParticipant reports whether ref is part of the request.
func (r MeetingRequest) HasParticipant(ref ParticipantRef) bool {
	return slices.Contains(r.Participants, ref)
}

// Clone returns a deep copy so later caller mutation cannot leak into a
// running negotiation.
func (r MeetingRequest) Clone() MeetingRequest {
	c := r
	c.Participants = slices.Clone(r.Participants)
	if r.Roles != nil {
		c.Roles = make(map[ParticipantRef]MeetingRole, len(r.Roles))
		for k, v := range r.Roles {
			c.Roles[k] = v
		}
	}
	if r.Constraints.WorkingHours != nil {
		wh := *r.Constraints.WorkingHours
		c.Constraints.WorkingHours = &wh
	}
	return c
}

// ParticipantSequence is the priority-ordered negotiation order. The first
// element is always the main coordinator.
type ParticipantSequence []ParticipantRef

// Coordinator returns the first element, or "" for an empty sequence.
func (s ParticipantSequence) Coordinator() ParticipantRef {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Index returns the position of ref or -1.
func (s ParticipantSequence) Index(ref ParticipantRef) int {
	return slices.Index(s, ref)
}

// Validate checks the sequence is non-empty, duplicate free and, when req has
// participants, a permutation of them.
func (s ParticipantSequence) Validate(req MeetingRequest) error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	seen := make(map[ParticipantRef]struct{}, len(s))
	for _, p := range s {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = struct{}{}
	}
	if len(req.Participants) == 0 {
		return nil
	}
	if len(req.Participants) != len(s) {
		return fmt.Errorf("%w: sequence has %d participants, request has %d", ErrInvalidSequence, len(s), len(req.Participants))
	}
	for _, p := range req.Participants {
		if _, ok := seen[p]; !ok {
			return fmt.Errorf("%w: %s missing from sequence", ErrInvalidSequence, p)
		}
	}
	return nil
}
