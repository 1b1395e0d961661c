package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/meetmesh/core"
)

// ReplySink receives inbound replies, typically engine.Engine.Deliver.
type ReplySink func(meetingID string, reply core.Reply) error

// InMemoryTransport is a trivial in‑process Transport. It keeps all messages
// in a nested map guarded by an RWMutex.
//
// Layout: meetingID -> participant -> messages
//
// When a script is configured, every OPEN or REPROMPT_CONFLICT message pops
// the participant's next scripted reply and hands it to the bound sink. CONFIRM
// and FINAL_NOTICE messages are never answered.
type InMemoryTransport struct {
	mu      sync.RWMutex
	outbox  map[string]map[core.ParticipantRef][]core.Message
	script  map[core.ParticipantRef][]string
	seq     map[core.ParticipantRef]uint64
	failing map[core.ParticipantRef]error
	sink    ReplySink
}

// NewInMemoryTransport returns an empty transport without a script.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{
		outbox:  make(map[string]map[core.ParticipantRef][]core.Message),
		script:  make(map[core.ParticipantRef][]string),
		seq:     make(map[core.ParticipantRef]uint64),
		failing: make(map[core.ParticipantRef]error),
	}
}

// Script queues replies for a participant (chainable).
func (t *InMemoryTransport) Script(p core.ParticipantRef, replies ...string) *InMemoryTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script[p] = append(t.script[p], replies...)
	return t
}

// FailFor makes every send to p fail with err (chainable).
func (t *InMemoryTransport) FailFor(p core.ParticipantRef, err error) *InMemoryTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing[p] = err
	return t
}

// Bind sets the sink scripted replies are delivered to.
func (t *InMemoryTransport) Bind(sink ReplySink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

// Send records msg and, for prompts, plays the next scripted reply.
func (t *InMemoryTransport) Send(ctx context.Context, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	if err, ok := t.failing[msg.Participant]; ok {
		t.mu.Unlock()
		return fmt.Errorf("send to %s: %w", msg.Participant, err)
	}

	if _, exists := t.outbox[msg.MeetingID]; !exists {
		t.outbox[msg.MeetingID] = make(map[core.ParticipantRef][]core.Message)
	}
	t.outbox[msg.MeetingID][msg.Participant] = append(t.outbox[msg.MeetingID][msg.Participant], msg)

	var (
		reply core.Reply
		play  bool
	)
	if msg.Intent == core.IntentOpen || msg.Intent == core.IntentRepromptConflict {
		if queue := t.script[msg.Participant]; len(queue) > 0 && t.sink != nil {
			t.script[msg.Participant] = queue[1:]
			t.seq[msg.Participant]++
			reply = core.Reply{MeetingID: msg.MeetingID, Participant: msg.Participant, Text: queue[0], Seq: t.seq[msg.Participant]}
			play = true
		}
	}
	sink := t.sink
	t.mu.Unlock()

	if play {
		if err := sink(msg.MeetingID, reply); err != nil {
			return fmt.Errorf("deliver scripted reply from %s: %w", msg.Participant, err)
		}
	}

	return nil
}

// Messages returns a copy of the messages sent to p in a meeting.
func (t *InMemoryTransport) Messages(meetingID string, p core.ParticipantRef) []core.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]core.Message(nil), t.outbox[meetingID][p]...)
}

// Count returns how many messages with intent were sent in a meeting.
func (t *InMemoryTransport) Count(meetingID string, intent core.NegotiationIntent) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, msgs := range t.outbox[meetingID] {
		for _, m := range msgs {
			if m.Intent == intent {
				n++
			}
		}
	}
	return n
}

// Remaining returns the number of unplayed scripted replies for p.
func (t *InMemoryTransport) Remaining(p core.ParticipantRef) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.script[p])
}

var _ core.Transport = (*InMemoryTransport)(nil)
