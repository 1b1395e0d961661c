package testutil

import (
	"time"

	"github.com/hupe1980/meetmesh/core"
)

// Monday is a fixed reference date used by tests (a Monday).
var Monday = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

// At returns Monday plus the given day offset at hour:minute UTC.
func At(day, hour, minute int) time.Time {
	return Monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// MeetingRequestBuilder helps construct meeting requests with fluent chaining.
// Example:
//
//	req := NewMeetingRequestBuilder("Sync").Participants("a", "b").Organizer("a").Build()
type MeetingRequestBuilder struct {
	req core.MeetingRequest
}

// NewMeetingRequestBuilder creates a builder for a one hour meeting during the
// week of Monday.
func NewMeetingRequestBuilder(title string) *MeetingRequestBuilder {
	return &MeetingRequestBuilder{req: core.MeetingRequest{
		Title:     title,
		Category:  core.CategoryOther,
		Duration:  time.Hour,
		TimeRange: core.TimeRange{Start: Monday, End: Monday.AddDate(0, 0, 7), Label: "this week"},
		Roles:     map[core.ParticipantRef]core.MeetingRole{},
	}}
}

// Participants appends participants (chainable).
func (b *MeetingRequestBuilder) Participants(refs ...core.ParticipantRef) *MeetingRequestBuilder {
	b.req.Participants = append(b.req.Participants, refs...)
	return b
}

// Organizer sets the organizer (chainable).
func (b *MeetingRequestBuilder) Organizer(ref core.ParticipantRef) *MeetingRequestBuilder {
	b.req.Organizer = ref
	return b
}

// Coordinator sets an explicit coordinator (chainable).
func (b *MeetingRequestBuilder) Coordinator(ref core.ParticipantRef) *MeetingRequestBuilder {
	b.req.Coordinator = ref
	return b
}

// Category sets the category (chainable).
func (b *MeetingRequestBuilder) Category(c core.Category) *MeetingRequestBuilder {
	b.req.Category = c
	return b
}

// Role assigns a meeting role (chainable).
func (b *MeetingRequestBuilder) Role(ref core.ParticipantRef, role core.MeetingRole) *MeetingRequestBuilder {
	b.req.Roles[ref] = role
	return b
}

// Duration sets the duration (chainable).
func (b *MeetingRequestBuilder) Duration(d time.Duration) *MeetingRequestBuilder {
	b.req.Duration = d
	return b
}

// Range sets the time range (chainable).
func (b *MeetingRequestBuilder) Range(start, end time.Time) *MeetingRequestBuilder {
	b.req.TimeRange = core.TimeRange{Start: start, End: end}
	return b
}

// WorkdayOnly restricts the meeting to Monday-Friday (chainable).
func (b *MeetingRequestBuilder) WorkdayOnly() *MeetingRequestBuilder {
	b.req.Constraints.WorkdayOnly = true
	return b
}

// WorkingHours restricts the meeting to [from, to) (chainable).
func (b *MeetingRequestBuilder) WorkingHours(from, to int) *MeetingRequestBuilder {
	b.req.Constraints.WorkingHours = &core.HourRange{From: from, To: to}
	return b
}

// Build returns a copy of the request.
func (b *MeetingRequestBuilder) Build() core.MeetingRequest {
	return b.req.Clone()
}

// Person returns a participant with the given ref, rank and busy slots.
func Person(ref core.ParticipantRef, rank core.Rank, busy ...core.TimeSlot) core.Participant {
	return core.Participant{
		Ref:          ref,
		Name:         string(ref),
		Rank:         rank,
		Availability: core.Availability{Busy: busy},
	}
}

// People indexes participants by ref.
func People(ps ...core.Participant) map[core.ParticipantRef]core.Participant {
	m := make(map[core.ParticipantRef]core.Participant, len(ps))
	for _, p := range ps {
		m[p.Ref] = p
	}
	return m
}

// Slot returns a slot starting at start lasting d.
func Slot(start time.Time, d time.Duration) core.TimeSlot {
	return core.TimeSlot{Start: start, End: start.Add(d)}
}
