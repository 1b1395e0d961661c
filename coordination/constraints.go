package coordination

import (
	"time"

	"github.com/hupe1980/meetmesh/core"
)

// evaluateLocked checks pref for p. On success resolved is the preference to
// store; otherwise reason names the conflict and suggestion is an
// alternative to offer.
func (e *Engine) evaluateLocked(p core.ParticipantRef, pref *core.TimePreference) (resolved *core.TimePreference, reason core.ConflictReason, suggestion *core.TimePreference) {
	if p == e.state.MainCoordinator {
		return e.evaluateCoordinatorLocked(pref)
	}

	return e.evaluateParticipantLocked(p, pref)
}

// evaluateCoordinatorLocked checks the coordinator's own preference against
// the request's range and constraints and the coordinator's availability.
func (e *Engine) evaluateCoordinatorLocked(pref *core.TimePreference) (*core.TimePreference, core.ConflictReason, *core.TimePreference) {
	c := e.state.MainCoordinator
	d := e.requiredDuration(pref)

	if pref == nil {
		return nil, core.ReasonAmbiguous, e.earliestLocked(c, time.Time{}, d)
	}

	if e.tooShort(pref, d) {
		return nil, core.ReasonTooShort, e.earliestLocked(c, e.startOrZero(pref), d)
	}

	if !pref.HasSpecificTime() {
		if pref.Flexibility == core.FlexibilityFlexible {
			if slot := e.earliestLocked(c, time.Time{}, d); slot != nil {
				slot.Flexibility = core.FlexibilityFlexible
				return slot, "", nil
			}
		}

		return nil, core.ReasonAmbiguous, e.earliestLocked(c, time.Time{}, d)
	}

	slot, err := pref.Slot(d, e.opts.Location)
	if err != nil {
		return nil, core.ReasonAmbiguous, e.earliestLocked(c, time.Time{}, d)
	}

	if reason := e.slotConflictLocked(c, slot); reason != "" {
		return nil, reason, e.earliestLocked(c, slot.Start, d)
	}

	resolved := *pref
	resolved.SpecificTime = slot.Start.In(e.opts.Location).Format(core.PreferenceLayout)
	resolved.Duration = d

	if resolved.TimeLabel == "" {
		resolved.TimeLabel = resolved.SpecificTime
	}

	if resolved.Flexibility == "" {
		resolved.Flexibility = core.FlexibilityStrict
	}

	return &resolved, "", nil
}

// evaluateParticipantLocked certifies that the anchored coordinator slot
// works for p. A different concrete time is a conflict; a flexible or
// label-only acceptance adopts the anchor.
func (e *Engine) evaluateParticipantLocked(p core.ParticipantRef, pref *core.TimePreference) (*core.TimePreference, core.ConflictReason, *core.TimePreference) {
	anchor := e.anchorLocked()
	if anchor == nil {
		return nil, core.ReasonAmbiguous, nil
	}

	d := e.durationLocked()

	if pref == nil {
		return nil, core.ReasonAmbiguous, cloneRef(anchor)
	}

	if pref.Duration > 0 && pref.Duration < d {
		return nil, core.ReasonTooShort, cloneRef(anchor)
	}

	if pref.HasSpecificTime() {
		start, err := pref.Start(e.opts.Location)
		if err != nil {
			return nil, core.ReasonAmbiguous, cloneRef(anchor)
		}

		anchorStart, err := anchor.Start(e.opts.Location)
		if err != nil || !start.Equal(anchorStart) {
			return nil, core.ReasonAnchorMismatch, cloneRef(anchor)
		}
	}

	slot, err := anchor.Slot(d, e.opts.Location)
	if err != nil {
		return nil, core.ReasonAmbiguous, cloneRef(anchor)
	}

	if reason := e.availabilityConflictLocked(p, slot); reason != "" {
		return nil, reason, cloneRef(anchor)
	}

	return cloneRef(anchor), "", nil
}

func (e *Engine) fallbackSuggestionLocked(p core.ParticipantRef) *core.TimePreference {
	if p == e.state.MainCoordinator {
		return e.earliestLocked(p, time.Time{}, e.durationLocked())
	}

	return cloneRef(e.anchorLocked())
}

// slotConflictLocked runs every check for a candidate slot of p.
func (e *Engine) slotConflictLocked(p core.ParticipantRef, slot core.TimeSlot) core.ConflictReason {
	req := e.state.Request

	if !req.TimeRange.Admits(slot) {
		return core.ReasonOutOfRange
	}

	loc := e.opts.Location
	start, end := slot.Start.In(loc), slot.End.In(loc)

	if req.Constraints.WorkdayOnly && (isWeekend(start) || isWeekend(end.Add(-time.Nanosecond))) {
		return core.ReasonNotWorkday
	}

	if wh := req.Constraints.WorkingHours; wh != nil {
		y, m, d := start.Date()
		from := time.Date(y, m, d, wh.From, 0, 0, 0, loc)
		to := time.Date(y, m, d, wh.To, 0, 0, 0, loc)

		if start.Before(from) || end.After(to) {
			return core.ReasonOutsideHours
		}
	}

	return e.availabilityConflictLocked(p, slot)
}

func (e *Engine) availabilityConflictLocked(p core.ParticipantRef, slot core.TimeSlot) core.ConflictReason {
	person, ok := e.people[p]
	if !ok {
		return ""
	}

	for _, busy := range person.Availability.Busy {
		if busy.Overlaps(slot) {
			return core.ReasonBusy
		}
	}

	if len(person.Availability.Free) == 0 {
		return ""
	}

	for _, free := range person.Availability.Free {
		if free.Contains(slot) {
			return ""
		}
	}

	return core.ReasonNotFree
}

// earliestLocked searches forward from from (or the range start) in SlotStep
// increments for the first slot of length d that passes every check for p.
// It returns nil when the range has no such slot.
func (e *Engine) earliestLocked(p core.ParticipantRef, from time.Time, d time.Duration) *core.TimePreference {
	req := e.state.Request
	loc := e.opts.Location
	step := e.opts.SlotStep

	start := from
	if start.IsZero() || (!req.TimeRange.Start.IsZero() && start.Before(req.TimeRange.Start)) {
		start = req.TimeRange.Start
	}

	if start.IsZero() {
		start = e.opts.Now()
	}

	start = start.In(loc)
	if t := start.Truncate(step); !t.Equal(start) {
		start = t.Add(step)
	}

	limit := req.TimeRange.End
	if limit.IsZero() {
		limit = start.Add(e.opts.SearchHorizon)
	}

	for t := start; !t.Add(d).After(limit); t = t.Add(step) {
		slot := core.TimeSlot{Start: t, End: t.Add(d)}
		if e.slotConflictLocked(p, slot) == "" {
			pref := core.PreferenceAt(t.In(loc), d)
			return &pref
		}
	}

	if !from.IsZero() {
		return e.earliestLocked(p, time.Time{}, d)
	}

	return nil
}

func (e *Engine) requiredDuration(pref *core.TimePreference) time.Duration {
	if d := e.state.Request.Duration; d > 0 {
		return d
	}

	if pref != nil && pref.Duration > 0 {
		return pref.Duration
	}

	return core.DefaultMeetingDuration
}

func (e *Engine) tooShort(pref *core.TimePreference, d time.Duration) bool {
	return pref.Duration > 0 && pref.Duration < d
}

func (e *Engine) startOrZero(pref *core.TimePreference) time.Time {
	t, err := pref.Start(e.opts.Location)
	if err != nil {
		return time.Time{}
	}

	return t
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
