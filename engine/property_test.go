package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hupe1980/meetmesh/core"
	itest "github.com/hupe1980/meetmesh/internal/testutil"
	"github.com/hupe1980/meetmesh/transport"
)

func TestEngine_TimeoutProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 15
	properties := gopter.NewProperties(parameters)

	// confirmed is how many of the scripted participants answer at all.
	run := func(budget, confirmed int) (*core.NegotiationError, []core.Event, *transport.InMemoryTransport, bool) {
		refs := []core.ParticipantRef{"alice", "bob", "carol", "dave"}

		tr := transport.NewInMemoryTransport()
		for i := 0; i < confirmed && i < len(refs)-1; i++ {
			text := "that works"
			if i == 0 {
				text = "Tuesday at 10"
			}
			tr.Script(refs[i], text)
		}

		eng := newTestEngine(tr, func(o *Options) {
			o.Config.WaitInterval = time.Millisecond
			o.Config.AttemptBudget = budget
		})

		req := itest.NewMeetingRequestBuilder("Prop").Participants(refs...).Organizer("alice").Build()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, events, err := eng.ScheduleSync(ctx, req)

		var ne *core.NegotiationError
		if !errors.As(err, &ne) {
			return nil, events, tr, false
		}

		return ne, events, tr, true
	}

	properties.Property("a silent participant always times out after the budget", prop.ForAll(
		func(budget, confirmed int) bool {
			ne, events, _, ok := run(budget, confirmed)
			if !ok || ne.Outcome != core.OutcomeTimedOut {
				return false
			}

			return len(kinds(events, core.EventPoll)) == budget-1 && ne.State.AgreedTime == nil
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 3),
	))

	properties.Property("no final notice without agreement", prop.ForAll(
		func(budget, confirmed int) bool {
			ne, _, tr, ok := run(budget, confirmed)
			if !ok {
				return false
			}

			return tr.Count(ne.MeetingID, core.IntentFinalNotice) == 0
		},
		gen.IntRange(1, 4),
		gen.IntRange(0, 3),
	))

	properties.Property("confirmed sessions form a prefix of the sequence", prop.ForAll(
		func(budget, confirmed int) bool {
			ne, _, _, ok := run(budget, confirmed)
			if !ok {
				return false
			}

			pending := false
			for _, p := range ne.State.Sequence {
				sess, _ := ne.State.Session(p)
				if sess.Status != core.StatusConfirmed {
					pending = true
					continue
				}
				if pending {
					return false
				}
			}

			return true
		},
		gen.IntRange(2, 4),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
