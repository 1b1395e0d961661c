package core

import (
	"fmt"
	"time"
)

// PreferenceLayout is the canonical layout of TimePreference.SpecificTime.
const PreferenceLayout = "2006-01-02 15:04"

// DefaultMeetingDuration is used when neither the request nor the preference
// state a duration.
const DefaultMeetingDuration = time.Hour

// Flexibility tells whether a stated preference may be moved.
type Flexibility string

const (
	FlexibilityStrict   Flexibility = "strict"
	FlexibilityFlexible Flexibility = "flexible"
)

// TimePreference is one participant's stated time preference. A nil
// *TimePreference is the "null" preference (nothing stated yet), which is
// distinct from a flexible preference.
type TimePreference struct {
	TimeLabel    string        `json:"time_label" description:"Free text label of the time, e.g. 'Tuesday afternoon'"`
	SpecificTime string        `json:"specific_time,omitempty" description:"Concrete start time formatted as YYYY-MM-DD HH:MM"`
	Flexibility  Flexibility   `json:"flexibility" description:"strict or flexible"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// HasSpecificTime reports whether a concrete start time was stated.
func (p TimePreference) HasSpecificTime() bool { return p.SpecificTime != "" }

// Start parses SpecificTime. RFC 3339 and PreferenceLayout are accepted; the
// latter is interpreted in loc (UTC when nil).
func (p TimePreference) Start(loc *time.Location) (time.Time, error) {
	if p.SpecificTime == "" {
		return time.Time{}, fmt.Errorf("%w: no specific time", ErrUnresolvedPreference)
	}
	if t, err := time.Parse(time.RFC3339, p.SpecificTime); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(PreferenceLayout, p.SpecificTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnresolvedPreference, p.SpecificTime, err)
	}
	return t, nil
}

// Slot resolves the preference to a concrete slot of length d.
func (p TimePreference) Slot(d time.Duration, loc *time.Location) (TimeSlot, error) {
	start, err := p.Start(loc)
	if err != nil {
		return TimeSlot{}, err
	}
	return TimeSlot{Start: start, End: start.Add(d)}, nil
}

func (p TimePreference) String() string {
	switch {
	case p.TimeLabel != "" && p.SpecificTime != "":
		return fmt.Sprintf("%s (%s)", p.TimeLabel, p.SpecificTime)
	case p.SpecificTime != "":
		return p.SpecificTime
	default:
		return p.TimeLabel
	}
}

// PreferenceAt builds a strict preference for a concrete start.
func PreferenceAt(start time.Time, d time.Duration) TimePreference {
	s := start.Format(PreferenceLayout)
	return TimePreference{TimeLabel: s, SpecificTime: s, Flexibility: FlexibilityStrict, Duration: d}
}

func clonePreference(p *TimePreference) *TimePreference {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
