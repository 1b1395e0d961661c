package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/meetmesh/core"
)

type domainLogger interface {
	LogReply(participant, action, reason string)
	LogSend(participant, intent string, dur time.Duration, err error)
	LogOutcome(outcome string, dur time.Duration, err error)
}

// run drives one meeting to a terminal outcome.
//
// Each iteration waits for whichever comes first: a reply in the inbox, the
// end of a wait cycle, or cancellation. Only elapsed cycles count against the
// attempt budget. Cancellation is checked before anything else on every
// iteration, so a cancelled meeting never sends another message.
func (e *Engine) run(ctx context.Context, m *meeting, first core.Prompt) {
	started := e.now()

	defer func() {
		state := m.coord.Status()
		e.metrics.MeetingCompleted(string(state.Outcome), e.now().Sub(started))

		e.registry.remove(m.id)
		m.cancel()
		e.release()

		close(m.events)
		close(m.errs)
		close(m.done)
	}()

	e.emit(m, core.NewEvent(m.id, core.EventStarted))
	e.persist(m)

	e.send(ctx, m, first)

	attempts := core.NewAttemptLimiter(e.config.AttemptBudget)

	ticker := time.NewTicker(e.config.WaitInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			e.terminate(m, core.OutcomeCancelled, err, started)
			return
		}

		select {
		case <-ctx.Done():
			continue

		case reply := <-m.inbox:
			if done := e.handleReply(ctx, m, reply, started); done {
				return
			}

		case <-ticker.C:
			e.metrics.PollCycle()

			if err := attempts.Increment(); err != nil {
				e.terminate(m, core.OutcomeTimedOut, err, started)
				return
			}

			ev := core.NewEvent(m.id, core.EventPoll)
			ev.Attempt = attempts.Count()
			ev.Participant = m.coord.Active()
			e.emit(m, ev)
		}
	}
}

// handleReply applies one reply and performs the outbound actions it
// requires. It reports whether the meeting has ended.
func (e *Engine) handleReply(ctx context.Context, m *meeting, reply core.Reply, started time.Time) bool {
	// a cancelled meeting applies no further replies; the loop ends it
	if ctx.Err() != nil {
		return false
	}

	out, err := m.coord.RecordReply(ctx, reply)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrStaleReply):
			m.log.Debug("Ignoring stale reply", "participant", string(reply.Participant), "error", err.Error())

			ev := core.NewErrorEvent(m.id, core.EventReplyIgnored, err)
			ev.Participant = reply.Participant
			ev.Text = reply.Text
			e.emit(m, ev)

			return false

		case ctx.Err() != nil:
			// picked up at the top of the loop
			return false

		default:
			e.terminate(m, core.OutcomeFailed, err, started)
			return true
		}
	}

	e.metrics.Reply(string(out.Action))
	if dl, ok := m.log.(domainLogger); ok {
		dl.LogReply(string(reply.Participant), string(out.Action), string(out.Reason))
	} else {
		m.log.Info("Reply recorded", "participant", string(reply.Participant), "action", string(out.Action), "reason", string(out.Reason))
	}

	e.emit(m, core.NewReplyEvent(m.id, reply, out))

	if ctx.Err() != nil {
		return false
	}

	switch out.Action {
	case core.ActionAwaitRetry:
		prompt, err := m.coord.Prompt(reply.Participant, core.IntentRepromptConflict)
		if err != nil {
			e.terminate(m, core.OutcomeFailed, err, started)
			return true
		}

		e.send(ctx, m, prompt)

	case core.ActionAdvance:
		e.confirm(ctx, m, reply.Participant)

		prompt, err := m.coord.Advance(out.Next)
		if err != nil {
			e.terminate(m, core.OutcomeFailed, err, started)
			return true
		}

		e.send(ctx, m, prompt)

	case core.ActionReadyToFinalize:
		e.confirm(ctx, m, reply.Participant)

		if err := e.finalize(ctx, m, started); err != nil {
			e.terminate(m, core.OutcomeFailed, err, started)
		}

		return true
	}

	e.persist(m)

	return false
}

func (e *Engine) confirm(ctx context.Context, m *meeting, p core.ParticipantRef) {
	prompt, err := m.coord.Prompt(p, core.IntentConfirm)
	if err != nil {
		m.log.Warn("Cannot build confirmation", "participant", string(p), "error", err.Error())
		return
	}

	e.send(ctx, m, prompt)
}

// send renders and delivers one prompt. Failures are logged and surfaced as
// events; they never end the meeting and are not retried.
func (e *Engine) send(ctx context.Context, m *meeting, prompt core.Prompt) {
	text, err := e.renderer.Render(ctx, prompt.Intent, prompt.Context)
	if err != nil {
		m.log.Warn("Render failed", "participant", string(prompt.Participant), "intent", string(prompt.Intent), "error", err.Error())
		e.emitSendFailure(m, prompt, err)
		return
	}

	if err := e.limiter.Wait(ctx); err != nil {
		e.emitSendFailure(m, prompt, err)
		return
	}

	msg := core.Message{
		MeetingID:   m.id,
		Participant: prompt.Participant,
		Intent:      prompt.Intent,
		Text:        text,
	}

	start := e.now()
	err = e.transport.Send(ctx, msg)
	dur := e.now().Sub(start)

	e.metrics.MessageSent(string(msg.Intent), err == nil)

	if dl, ok := m.log.(domainLogger); ok {
		dl.LogSend(string(msg.Participant), string(msg.Intent), dur, err)
	} else if err != nil {
		m.log.Error("Message delivery failed", "participant", string(msg.Participant), "intent", string(msg.Intent), "error", err.Error())
	}

	if err != nil {
		e.emitSendFailure(m, prompt, err)
		return
	}

	if err := m.coord.RecordMessage(msg.Participant, msg.Intent, msg.Text); err != nil {
		m.log.Warn("Cannot record message", "participant", string(msg.Participant), "error", err.Error())
	}

	e.emit(m, core.NewMessageEvent(m.id, msg))
}

func (e *Engine) emitSendFailure(m *meeting, prompt core.Prompt, err error) {
	ev := core.NewErrorEvent(m.id, core.EventMessageSent, err)
	ev.Participant = prompt.Participant
	ev.Intent = prompt.Intent
	e.emit(m, ev)
}

// terminate ends the meeting without agreement and reports it upward
// together with the last known state.
func (e *Engine) terminate(m *meeting, outcome core.Outcome, cause error, started time.Time) {
	state, err := m.coord.Abort(outcome)
	if err != nil && !errors.Is(err, core.ErrTerminated) {
		m.log.Error("Abort failed", "outcome", string(outcome), "error", err.Error())
		state = m.coord.Status()
	}

	// Abort on an already terminal meeting reports the outcome it ended with
	outcome = state.Outcome

	e.save(m, state)

	ne := &core.NegotiationError{MeetingID: m.id, Outcome: outcome, Err: cause, State: state}

	if dl, ok := m.log.(domainLogger); ok {
		dl.LogOutcome(string(outcome), e.now().Sub(started), ne)
	} else {
		m.log.Warn("Meeting negotiation ended", "outcome", string(outcome), "error", ne.Error())
	}

	e.emit(m, core.NewErrorEvent(m.id, kindFor(outcome), ne))

	m.errs <- ne
}

func kindFor(outcome core.Outcome) core.EventKind {
	switch outcome {
	case core.OutcomeTimedOut:
		return core.EventTimedOut
	case core.OutcomeCancelled:
		return core.EventCancelled
	case core.OutcomeFinalized:
		return core.EventFinalized
	default:
		return core.EventFailed
	}
}

// emit never blocks; events that do not fit the buffer are dropped.
func (e *Engine) emit(m *meeting, ev core.Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warn("Event buffer full, dropping event", "kind", string(ev.Kind))
	}
}

func (e *Engine) persist(m *meeting) {
	e.save(m, m.coord.Status())
}

func (e *Engine) save(m *meeting, state core.CoordinationState) {
	if e.store == nil {
		return
	}

	if err := e.store.Save(state); err != nil {
		m.log.Warn("Snapshot not saved", "error", err.Error())
	}
}
