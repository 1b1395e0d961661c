package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/meetmesh/core"
)

// finalize reduces the confirmed preferences to the agreed time and sends
// the final notice to every participant in sequence order. The meeting is
// FINALIZED before any notice goes out; notice failures are reported as
// events only.
func (e *Engine) finalize(ctx context.Context, m *meeting, started time.Time) error {
	agreed, err := m.coord.Finalize()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	state := m.coord.Status()
	e.save(m, state)

	for _, p := range state.Sequence {
		prompt, err := m.coord.Prompt(p, core.IntentFinalNotice)
		if err != nil {
			m.log.Warn("Cannot build final notice", "participant", string(p), "error", err.Error())
			continue
		}

		e.send(ctx, m, prompt)
	}

	// the notices are part of the participants' history
	e.persist(m)

	if dl, ok := m.log.(domainLogger); ok {
		dl.LogOutcome(string(core.OutcomeFinalized), e.now().Sub(started), nil)
	} else {
		m.log.Info("Meeting negotiation ended", "outcome", string(core.OutcomeFinalized), "agreed_time", agreed.String())
	}

	ev := core.NewEvent(m.id, core.EventFinalized)
	ev.AgreedTime = &agreed
	e.emit(m, ev)

	return nil
}
