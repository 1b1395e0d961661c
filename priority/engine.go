package priority

import (
	"fmt"

	"github.com/hupe1980/meetmesh/core"
)

// Options configures an Engine.
type Options struct {
	Rules RuleTable
}

// Engine derives the negotiation order of a meeting. It is a pure function of
// its rule table and inputs and is safe for concurrent use.
type Engine struct {
	rules RuleTable
}

// New creates an Engine using DefaultRules unless overridden.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{Rules: DefaultRules()}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{rules: opts.Rules}
}

// Rules returns the rule table in use.
func (e *Engine) Rules() RuleTable { return e.rules }

// Sequence returns the participant sequence for req with the main
// coordinator first and the remaining participants in request order.
//
// people carries the resolved profiles used for rank tie-breaking; missing
// entries rank lowest. Resolution order: the request's explicit coordinator,
// the rule's explicit coordinator, holders of the category's designated role,
// the organizer, then everyone. Ties at the top rank resolve to the organizer
// when tied, otherwise *core.AmbiguousPriorityError is returned.
func (e *Engine) Sequence(req core.MeetingRequest, people map[core.ParticipantRef]core.Participant) (core.ParticipantSequence, error) {
	if len(req.Participants) == 0 {
		return nil, &core.AmbiguousPriorityError{}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	coordinator, err := e.Coordinator(req, people)
	if err != nil {
		return nil, err
	}

	seq := make(core.ParticipantSequence, 0, len(req.Participants))
	seq = append(seq, coordinator)

	for _, p := range req.Participants {
		if p != coordinator {
			seq = append(seq, p)
		}
	}

	return seq, nil
}

// Coordinator selects the main coordinator of req.
func (e *Engine) Coordinator(req core.MeetingRequest, people map[core.ParticipantRef]core.Participant) (core.ParticipantRef, error) {
	if len(req.Participants) == 0 {
		return "", &core.AmbiguousPriorityError{}
	}

	if req.Coordinator != "" {
		if !req.HasParticipant(req.Coordinator) {
			return "", fmt.Errorf("%w: coordinator %s is not a participant", core.ErrInvalidRequest, req.Coordinator)
		}
		return req.Coordinator, nil
	}

	category := req.Category
	if category == "" {
		category = core.CategoryOther
	}

	rule, ok := e.rules.ruleFor(category)
	if ok && rule.Coordinator != "" && req.HasParticipant(rule.Coordinator) {
		return rule.Coordinator, nil
	}

	candidates := e.candidates(req, rule.Role)

	return e.pick(req, candidates, people)
}

func (e *Engine) candidates(req core.MeetingRequest, role core.MeetingRole) []core.ParticipantRef {
	var holders []core.ParticipantRef
	if role != "" {
		for _, p := range req.Participants {
			if req.Roles[p] == role {
				holders = append(holders, p)
			}
		}
	}
	if len(holders) > 0 {
		return holders
	}

	if req.Organizer != "" && req.HasParticipant(req.Organizer) {
		return []core.ParticipantRef{req.Organizer}
	}

	return req.Participants
}

func (e *Engine) pick(req core.MeetingRequest, candidates []core.ParticipantRef, people map[core.ParticipantRef]core.Participant) (core.ParticipantRef, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	best := -1
	var top []core.ParticipantRef
	for _, c := range candidates {
		s := e.score(people[c])
		switch {
		case s > best:
			best = s
			top = []core.ParticipantRef{c}
		case s == best:
			top = append(top, c)
		}
	}

	if len(top) == 1 {
		return top[0], nil
	}

	for _, c := range top {
		if c == req.Organizer {
			return c, nil
		}
	}

	return "", &core.AmbiguousPriorityError{Candidates: top}
}

// score orders participants by rank, then external before internal.
func (e *Engine) score(p core.Participant) int {
	s := e.rules.Ranks[p.Rank] * 2
	if e.rules.ExternalFirst && p.External {
		s++
	}
	return s
}
