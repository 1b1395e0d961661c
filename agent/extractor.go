package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hupe1980/meetmesh/core"
)

var (
	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`)
	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	monthDateRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayWordRe   = regexp.MustCompile(`(?i)\b(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)\b`)
	clockRe     = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	meridiemRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	atHourRe    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\b`)
	partOfDayRe = regexp.MustCompile(`(?i)\b(noon|morning|afternoon|evening)\b`)
	acceptRe    = regexp.MustCompile(`(?i)\b(yes|yep|yeah|ok|okay|sure|fine|agreed|confirm|confirmed|works|perfect|great|sounds good)\b`)
	negationRe  = regexp.MustCompile(`(?i)\b(no|not|nope|can't|cannot|can not|won't|doesn't|don't|isn't|unable|busy)\b`)
	strictRe    = regexp.MustCompile(`(?i)\b(only|must|strictly)\b`)
	flexibleRe  = regexp.MustCompile(`(?i)\b(flexible|any ?time|whenever|either)\b`)
	clauseRe    = regexp.MustCompile(`(?i)[,;.!?]|\bbut\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var partOfDayHours = map[string]int{"noon": 12, "morning": 9, "afternoon": 14, "evening": 17}

// PatternExtractorOptions configures a PatternExtractor.
type PatternExtractorOptions struct {
	// Location interprets stated times. Defaults to UTC.
	Location *time.Location
	// Now anchors relative days ("tomorrow", "Tuesday") when the reply has
	// no proposal to anchor to.
	Now func() time.Time
	// DefaultHour is used when only a day is stated.
	DefaultHour int
}

// PatternExtractor is a deterministic core.Extractor for plain replies.
//
// It recognises explicit dates (2025-03-04, 3/4/2025, March 4), weekday and
// relative day names, clock times (10:00, 3pm, at 9) and parts of the day.
// Relative days resolve to the next matching day on or after the proposal's
// date, or after Now when there is no proposal. When a reply names several
// days or times, the last one wins, so "not Monday, Tuesday 10:00 works"
// yields Tuesday.
//
// Clauses containing a negation ("I can't make 10:00", "not Monday") are
// dropped before any time is read, so a refused time is never returned.
//
// Replies without a time resolve as follows: an acceptance ("that works")
// adopts the proposal, "flexible"/"any time" yields a label-only flexible
// preference, and everything else, including refusals, yields nil.
type PatternExtractor struct {
	loc         *time.Location
	now         func() time.Time
	defaultHour int
}

// NewPatternExtractor creates a PatternExtractor.
func NewPatternExtractor(optFns ...func(o *PatternExtractorOptions)) *PatternExtractor {
	opts := PatternExtractorOptions{
		Location:    time.UTC,
		Now:         time.Now,
		DefaultHour: 9,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &PatternExtractor{loc: opts.Location, now: opts.Now, defaultHour: opts.DefaultHour}
}

// Extract implements core.Extractor.
func (e *PatternExtractor) Extract(ctx context.Context, text string, proposal *core.TimePreference) (*core.TimePreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, nil
	}

	kept, negated := affirmed(raw)
	if kept == "" {
		return nil, nil
	}

	flex := flexibilityOf(kept)

	if start, ok := e.parse(kept, proposal); ok {
		p := core.PreferenceAt(start, 0)
		p.TimeLabel = raw
		if flex != "" {
			p.Flexibility = flex
		}
		return &p, nil
	}

	if negated {
		return nil, nil
	}

	if acceptRe.MatchString(kept) {
		if proposal != nil {
			cp := *proposal
			if flex != "" {
				cp.Flexibility = flex
			}
			return &cp, nil
		}
		return &core.TimePreference{TimeLabel: raw, Flexibility: core.FlexibilityFlexible}, nil
	}

	if flex == core.FlexibilityFlexible {
		return &core.TimePreference{TimeLabel: raw, Flexibility: core.FlexibilityFlexible}, nil
	}

	return nil, nil
}

// affirmed drops every clause of text that contains a negation and reports
// whether any was dropped.
func affirmed(text string) (string, bool) {
	var (
		kept    []string
		negated bool
		from    int
	)

	bounds := append(clauseRe.FindAllStringIndex(text, -1), []int{len(text), len(text)})
	for _, b := range bounds {
		clause := strings.TrimSpace(text[from:b[0]])
		from = b[1]
		if clause == "" {
			continue
		}
		if negationRe.MatchString(clause) {
			negated = true
			continue
		}
		kept = append(kept, clause)
	}

	return strings.Join(kept, ", "), negated
}

func flexibilityOf(text string) core.Flexibility {
	switch {
	case strictRe.MatchString(text):
		return core.FlexibilityStrict
	case flexibleRe.MatchString(text):
		return core.FlexibilityFlexible
	default:
		return ""
	}
}

// parse finds a day and a time of day in text. At least one of them must be
// stated explicitly.
func (e *PatternExtractor) parse(text string, proposal *core.TimePreference) (time.Time, bool) {
	base := e.base(proposal)

	day, hasDay := e.day(text, base)
	hour, minute, hasTime := clock(text)

	if !hasDay && !hasTime {
		return time.Time{}, false
	}

	if !hasDay {
		day = base
	}

	if !hasTime {
		hour, minute = e.defaultHour, 0
		if m := lastMatch(partOfDayRe, text); m != nil {
			hour = partOfDayHours[strings.ToLower(m[1])]
		}
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, e.loc), true
}

// base is the midnight relative days are resolved from.
func (e *PatternExtractor) base(proposal *core.TimePreference) time.Time {
	ref := e.now().In(e.loc)

	if proposal != nil {
		if t, err := proposal.Start(e.loc); err == nil {
			ref = t.In(e.loc)
		}
	}

	return time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, e.loc)
}

func (e *PatternExtractor) day(text string, base time.Time) (time.Time, bool) {
	type hit struct {
		at  int
		day time.Time
	}

	var best *hit
	consider := func(at int, d time.Time) {
		if best == nil || at > best.at {
			best = &hit{at: at, day: d}
		}
	}

	for _, re := range []*regexp.Regexp{isoDateRe, slashDateRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if t, err := dateparse.ParseIn(text[loc[0]:loc[1]], e.loc); err == nil {
				consider(loc[0], t)
			}
		}
	}

	for _, m := range monthDateRe.FindAllStringSubmatchIndex(text, -1) {
		year := strconv.Itoa(base.Year())
		if m[6] >= 0 {
			year = text[m[6]:m[7]]
		}
		frag := fmt.Sprintf("%s %s, %s", strings.ToLower(text[m[2]:m[2]+3]), text[m[4]:m[5]], year)
		if t, err := dateparse.ParseIn(frag, e.loc); err == nil {
			consider(m[0], t)
		}
	}

	for _, m := range dayWordRe.FindAllStringSubmatchIndex(text, -1) {
		word := strings.ToLower(text[m[2]:m[3]])
		switch word {
		case "today":
			consider(m[0], base)
		case "tomorrow":
			consider(m[0], base.AddDate(0, 0, 1))
		default:
			wd := weekdays[word]
			consider(m[0], base.AddDate(0, 0, (int(wd)-int(base.Weekday())+7)%7))
		}
	}

	if best == nil {
		return time.Time{}, false
	}

	return best.day, true
}

// clock returns the last stated time of day.
func clock(text string) (hour, minute int, ok bool) {
	bestAt := -1

	for _, m := range clockRe.FindAllStringSubmatchIndex(text, -1) {
		h, _ := strconv.Atoi(text[m[2]:m[3]])
		mm, _ := strconv.Atoi(text[m[4]:m[5]])
		mer := ""
		if m[6] >= 0 {
			mer = text[m[6]:m[7]]
		}
		if h, mm, valid := normalizeClock(h, mm, mer); valid && m[0] > bestAt {
			hour, minute, ok, bestAt = h, mm, true, m[0]
		}
	}

	for _, m := range meridiemRe.FindAllStringSubmatchIndex(text, -1) {
		h, _ := strconv.Atoi(text[m[2]:m[3]])
		if h, mm, valid := normalizeClock(h, 0, text[m[4]:m[5]]); valid && m[0] > bestAt {
			hour, minute, ok, bestAt = h, mm, true, m[0]
		}
	}

	for _, m := range atHourRe.FindAllStringSubmatchIndex(text, -1) {
		h, _ := strconv.Atoi(text[m[2]:m[3]])
		if h, mm, valid := normalizeClock(h, 0, ""); valid && m[0] > bestAt {
			hour, minute, ok, bestAt = h, mm, true, m[0]
		}
	}

	if m := lastMatchIndex(partOfDayRe, text); m != nil && m[0] > bestAt && strings.EqualFold(text[m[2]:m[3]], "noon") {
		hour, minute, ok = 12, 0, true
	}

	return hour, minute, ok
}

func normalizeClock(h, m int, meridiem string) (int, int, bool) {
	switch strings.ToLower(meridiem) {
	case "am":
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		if h != 12 {
			h += 12
		}
	}

	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}

	return h, m, true
}

func lastMatch(re *regexp.Regexp, text string) []string {
	all := re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func lastMatchIndex(re *regexp.Regexp, text string) []int {
	all := re.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

var _ core.Extractor = (*PatternExtractor)(nil)
