package coordination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
)

// Options configures an Engine.
type Options struct {
	// Location interprets preferences given without a zone. Defaults to UTC.
	Location *time.Location
	// SlotStep is the granularity of alternative-slot search.
	SlotStep time.Duration
	// SearchHorizon bounds the alternative-slot search when the request's
	// time range has no end.
	SearchHorizon time.Duration
	// Now returns the current time; overridable in tests.
	Now    func() time.Time
	Logger logging.Logger
}

// DefaultOptions are applied before any option function.
var DefaultOptions = Options{
	Location:      time.UTC,
	SlotStep:      30 * time.Minute,
	SearchHorizon: 14 * 24 * time.Hour,
	Now:           time.Now,
}

// Engine owns the negotiation sessions of one meeting and implements the
// per-session state machine:
//
//	PENDING --Start/Advance--> NEGOTIATING
//	NEGOTIATING --RecordReply(ok)--> CONFIRMED
//	NEGOTIATING --RecordReply(conflict)--> NEGOTIATING
//	NEGOTIATING --Abort--> CONFLICT (if the last attempt conflicted)
//
// At most one session is NEGOTIATING at any time. The main coordinator is
// negotiated first and its confirmed preference anchors everyone else.
//
// RecordReply calls are serialized; the extractor runs outside the state lock
// so Status stays responsive while a slow extractor is working.
type Engine struct {
	replyMu sync.Mutex // serializes RecordReply

	mu        sync.Mutex // guards everything below
	state     core.CoordinationState
	started   bool
	suggested map[core.ParticipantRef]*core.TimePreference
	people    map[core.ParticipantRef]core.Participant
	extractor core.Extractor
	opts      Options
	logger    logging.Logger
}

// New creates an engine for one meeting. people supplies display names and
// availability; participants missing from it have no availability
// constraints. The request is cloned.
func New(meetingID string, req core.MeetingRequest, people map[core.ParticipantRef]core.Participant, extractor core.Extractor, optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.SlotStep <= 0 {
		opts.SlotStep = DefaultOptions.SlotStep
	}

	if opts.SearchHorizon <= 0 {
		opts.SearchHorizon = DefaultOptions.SearchHorizon
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	p := make(map[core.ParticipantRef]core.Participant, len(people))
	for k, v := range people {
		p[k] = v
	}

	return &Engine{
		state: core.CoordinationState{
			MeetingID: meetingID,
			Request:   req.Clone(),
			Sessions:  map[core.ParticipantRef]*core.NegotiationSession{},
			Outcome:   core.OutcomeInProgress,
		},
		suggested: map[core.ParticipantRef]*core.TimePreference{},
		people:    p,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
}

// Start initializes one PENDING session per participant, promotes the main
// coordinator (seq[0]) to NEGOTIATING and returns its opening prompt. An empty
// sequence fails with core.ErrEmptySequence and creates no sessions.
func (e *Engine) Start(seq core.ParticipantSequence) (core.Prompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return core.Prompt{}, core.ErrAlreadyStarted
	}

	if e.state.Outcome.IsTerminal() {
		return core.Prompt{}, core.ErrTerminated
	}

	if len(seq) == 0 {
		return core.Prompt{}, core.ErrEmptySequence
	}

	if err := seq.Validate(e.state.Request); err != nil {
		return core.Prompt{}, err
	}

	now := e.opts.Now()

	e.state.Sequence = append(core.ParticipantSequence(nil), seq...)
	e.state.MainCoordinator = seq.Coordinator()

	for _, p := range seq {
		e.state.Sessions[p] = core.NewNegotiationSession(p, now)
	}

	e.state.Sessions[e.state.MainCoordinator].Status = core.StatusNegotiating
	e.started = true

	e.logger.Debug("negotiation started", "meeting_id", e.state.MeetingID, "coordinator", e.state.MainCoordinator, "participants", len(seq))

	return e.promptLocked(e.state.MainCoordinator, core.IntentOpen), nil
}

// RecordReply applies one inbound reply to the replying participant's session.
//
// Errors:
//   - *core.UnknownParticipantError: the ref has no session; state is unchanged
//   - core.ErrStaleReply: a replayed seq number, or a confirmed participant
//     repeating any of their earlier replies; safe to ignore
//   - *core.OutOfSequenceError: the participant is not the one negotiating
func (e *Engine) RecordReply(ctx context.Context, reply core.Reply) (core.NegotiationOutcome, error) {
	e.replyMu.Lock()
	defer e.replyMu.Unlock()

	e.mu.Lock()
	if err := e.checkReplyLocked(reply); err != nil {
		e.mu.Unlock()
		return core.NegotiationOutcome{}, err
	}
	proposal := e.proposalLocked(reply.Participant)
	e.mu.Unlock()

	pref, extractErr := e.extract(ctx, reply.Text, proposal)
	if extractErr != nil && ctx.Err() != nil {
		return core.NegotiationOutcome{}, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Outcome.IsTerminal() {
		return core.NegotiationOutcome{}, core.ErrTerminated
	}

	p := reply.Participant
	sess := e.state.Sessions[p]

	turn := core.NewTurnAt(core.Speaker(p), reply.Text, e.opts.Now())
	if reply.Seq > 0 {
		sess.LastSeq = reply.Seq
	}

	var (
		resolved   *core.TimePreference
		reason     core.ConflictReason
		suggestion *core.TimePreference
	)

	if extractErr != nil {
		e.logger.Warn("preference extraction failed", "meeting_id", e.state.MeetingID, "participant", p, "error", extractErr)
		reason = core.ReasonAmbiguous
		suggestion = e.fallbackSuggestionLocked(p)
	} else {
		resolved, reason, suggestion = e.evaluateLocked(p, pref)
	}

	if reason != "" {
		turn.Attempted = cloneRef(pref)
		turn.Reason = reason
		sess.AddTurn(turn)

		e.suggested[p] = suggestion

		e.logger.Debug("reply conflicts", "meeting_id", e.state.MeetingID, "participant", p, "reason", reason)

		return core.NegotiationOutcome{
			Participant: p,
			Status:      sess.Status,
			Action:      core.ActionAwaitRetry,
			Preference:  cloneRef(pref),
			Reason:      reason,
			Suggestion:  cloneRef(suggestion),
		}, nil
	}

	sess.AddTurn(turn)
	sess.Preference = resolved
	sess.Status = core.StatusConfirmed
	delete(e.suggested, p)

	out := core.NegotiationOutcome{
		Participant: p,
		Status:      core.StatusConfirmed,
		Action:      core.ActionReadyToFinalize,
		Preference:  cloneRef(resolved),
	}

	if next := e.nextPendingLocked(); next != "" {
		out.Action = core.ActionAdvance
		out.Next = next
	}

	e.logger.Debug("reply confirmed", "meeting_id", e.state.MeetingID, "participant", p, "preference", resolved.String(), "action", out.Action)

	return out, nil
}

// Advance promotes p from PENDING to NEGOTIATING and returns its opening
// prompt. p must be the next PENDING participant in sequence and no session
// may be NEGOTIATING.
func (e *Engine) Advance(p core.ParticipantRef) (core.Prompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActiveLocked(); err != nil {
		return core.Prompt{}, err
	}

	sess, ok := e.state.Sessions[p]
	if !ok {
		return core.Prompt{}, &core.UnknownParticipantError{Participant: p}
	}

	if active := e.activeLocked(); active != "" {
		return core.Prompt{}, &core.OutOfSequenceError{Participant: p, Expected: active, Status: sess.Status}
	}

	next := e.nextPendingLocked()
	if next != p {
		return core.Prompt{}, &core.OutOfSequenceError{Participant: p, Expected: next, Status: sess.Status}
	}

	sess.Status = core.StatusNegotiating
	sess.UpdatedAt = e.opts.Now()

	return e.promptLocked(p, core.IntentOpen), nil
}

// RecordMessage appends an outbound message to p's history.
func (e *Engine) RecordMessage(p core.ParticipantRef, intent core.NegotiationIntent, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.state.Sessions[p]
	if !ok {
		return &core.UnknownParticipantError{Participant: p}
	}

	turn := core.NewTurnAt(core.SpeakerCoordinator, text, e.opts.Now())
	turn.Intent = intent
	sess.AddTurn(turn)

	return nil
}

// Prompt builds the render context for addressing p with intent.
func (e *Engine) Prompt(p core.ParticipantRef, intent core.NegotiationIntent) (core.Prompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.state.Sessions[p]; !ok {
		return core.Prompt{}, &core.UnknownParticipantError{Participant: p}
	}

	return e.promptLocked(p, intent), nil
}

// Status returns a deep copy of the current state. It never mutates state.
func (e *Engine) Status() core.CoordinationState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Clone()
}

// Active returns the participant currently NEGOTIATING, or "".
func (e *Engine) Active() core.ParticipantRef {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.activeLocked()
}

// Ready reports whether every session is CONFIRMED and the meeting is still
// in progress.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Outcome == core.OutcomeInProgress && e.state.AllConfirmed()
}

// Finalize reduces the confirmed preferences to the agreed time and marks the
// meeting FINALIZED in one step.
func (e *Engine) Finalize() (core.TimePreference, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActiveLocked(); err != nil {
		return core.TimePreference{}, err
	}

	agreed, err := Reduce(e.state)
	if err != nil {
		return core.TimePreference{}, err
	}

	e.state.AgreedTime = &agreed
	e.state.Outcome = core.OutcomeFinalized

	e.logger.Info("meeting finalized", "meeting_id", e.state.MeetingID, "agreed_time", agreed.String())

	return agreed, nil
}

// Abort ends an in-progress meeting with a terminal outcome other than
// FINALIZED and returns the final snapshot. The session being negotiated is
// marked CONFLICT when its last attempt conflicted.
func (e *Engine) Abort(outcome core.Outcome) (core.CoordinationState, error) {
	if !outcome.IsTerminal() || outcome == core.OutcomeFinalized {
		return core.CoordinationState{}, fmt.Errorf("cannot abort with outcome %s", outcome)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Outcome.IsTerminal() {
		return e.state.Clone(), core.ErrTerminated
	}

	if active := e.activeLocked(); active != "" {
		sess := e.state.Sessions[active]
		if last, ok := sess.LastReply(); ok && last.Reason != "" {
			sess.Status = core.StatusConflict
			sess.UpdatedAt = e.opts.Now()
		}
	}

	e.state.Outcome = outcome

	return e.state.Clone(), nil
}

func (e *Engine) checkActiveLocked() error {
	if !e.started {
		return core.ErrNotStarted
	}

	if e.state.Outcome.IsTerminal() {
		return core.ErrTerminated
	}

	return nil
}

func (e *Engine) checkReplyLocked(reply core.Reply) error {
	if err := e.checkActiveLocked(); err != nil {
		return err
	}

	sess, ok := e.state.Sessions[reply.Participant]
	if !ok {
		return &core.UnknownParticipantError{Participant: reply.Participant}
	}

	if reply.Seq > 0 && reply.Seq <= sess.LastSeq {
		return fmt.Errorf("%w: seq %d from %s already applied", core.ErrStaleReply, reply.Seq, reply.Participant)
	}

	if sess.Status == core.StatusNegotiating {
		return nil
	}

	if sess.Status == core.StatusConfirmed && sess.HasReply(reply.Text) {
		return fmt.Errorf("%w: duplicate reply from %s", core.ErrStaleReply, reply.Participant)
	}

	return &core.OutOfSequenceError{Participant: reply.Participant, Expected: e.activeLocked(), Status: sess.Status}
}

func (e *Engine) extract(ctx context.Context, text string, proposal *core.TimePreference) (*core.TimePreference, error) {
	if e.extractor == nil {
		return nil, fmt.Errorf("no extractor configured")
	}

	return e.extractor.Extract(ctx, text, proposal)
}

// proposalLocked is the time p was last asked about.
func (e *Engine) proposalLocked(p core.ParticipantRef) *core.TimePreference {
	if s, ok := e.suggested[p]; ok && s != nil {
		return cloneRef(s)
	}

	if p != e.state.MainCoordinator {
		return cloneRef(e.anchorLocked())
	}

	return nil
}

func (e *Engine) anchorLocked() *core.TimePreference {
	if sess, ok := e.state.Sessions[e.state.MainCoordinator]; ok && sess.Status == core.StatusConfirmed {
		return sess.Preference
	}

	return nil
}

func (e *Engine) activeLocked() core.ParticipantRef {
	for _, p := range e.state.Sequence {
		if e.state.Sessions[p].Status == core.StatusNegotiating {
			return p
		}
	}

	return ""
}

func (e *Engine) nextPendingLocked() core.ParticipantRef {
	for _, p := range e.state.Sequence {
		if e.state.Sessions[p].Status == core.StatusPending {
			return p
		}
	}

	return ""
}

func (e *Engine) promptLocked(p core.ParticipantRef, intent core.NegotiationIntent) core.Prompt {
	req := e.state.Request

	rc := core.RenderContext{
		MeetingID:       e.state.MeetingID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Participant:     p,
		ParticipantName: e.displayName(p),
		Coordinator:     e.state.MainCoordinator,
		CoordinatorName: e.displayName(e.state.MainCoordinator),
		Duration:        e.durationLocked(),
		TimeRange:       req.TimeRange,
		Constraints:     req.Constraints,
		Proposal:        cloneRef(e.anchorLocked()),
		AgreedTime:      cloneRef(e.state.AgreedTime),
	}

	for _, ref := range e.state.Sequence {
		rc.Participants = append(rc.Participants, e.displayName(ref))
	}

	if sess, ok := e.state.Sessions[p]; ok {
		rc.History = sess.Clone().History

		if intent == core.IntentRepromptConflict {
			if last, ok := sess.LastReply(); ok {
				rc.Reason = last.Reason
			}
			rc.Suggestion = cloneRef(e.suggested[p])
		}

		if intent == core.IntentConfirm && sess.Preference != nil {
			rc.Proposal = cloneRef(sess.Preference)
		}
	}

	return core.Prompt{Participant: p, Intent: intent, Context: rc}
}

func (e *Engine) displayName(p core.ParticipantRef) string {
	if person, ok := e.people[p]; ok {
		return person.DisplayName()
	}

	return string(p)
}

// durationLocked is the requested duration, or the anchor's, or the default.
func (e *Engine) durationLocked() time.Duration {
	if d := e.state.Request.Duration; d > 0 {
		return d
	}

	if a := e.anchorLocked(); a != nil && a.Duration > 0 {
		return a.Duration
	}

	return core.DefaultMeetingDuration
}

func cloneRef(p *core.TimePreference) *core.TimePreference {
	if p == nil {
		return nil
	}

	cp := *p

	return &cp
}
