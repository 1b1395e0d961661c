package transport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meetmesh/core"
)

type recordingSink struct {
	mu      sync.Mutex
	replies []core.Reply
	err     error
}

func (s *recordingSink) deliver(_ string, r core.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s.err
}

func TestInMemoryTransport_RecordsMessages(t *testing.T) {
	tr := NewInMemoryTransport()
	ctx := context.Background()

	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "alice", Intent: core.IntentOpen, Text: "hi"}))
	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "alice", Intent: core.IntentConfirm, Text: "ok"}))
	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "other", Participant: "alice", Intent: core.IntentOpen, Text: "hi"}))

	msgs := tr.Messages("m", "alice")
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, 1, tr.Count("m", core.IntentConfirm))

	msgs[0].Text = "mutated"
	assert.Equal(t, "hi", tr.Messages("m", "alice")[0].Text)
}

func TestInMemoryTransport_ScriptedReplies(t *testing.T) {
	sink := &recordingSink{}
	tr := NewInMemoryTransport().Script("bob", "Monday 10:00", "that works")
	tr.Bind(sink.deliver)
	ctx := context.Background()

	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "bob", Intent: core.IntentOpen}))
	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "bob", Intent: core.IntentConfirm}))
	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "bob", Intent: core.IntentRepromptConflict}))
	require.NoError(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "bob", Intent: core.IntentOpen}))

	require.Len(t, sink.replies, 2)
	assert.Equal(t, core.Reply{MeetingID: "m", Participant: "bob", Text: "Monday 10:00", Seq: 1}, sink.replies[0])
	assert.Equal(t, core.Reply{MeetingID: "m", Participant: "bob", Text: "that works", Seq: 2}, sink.replies[1])
	assert.Zero(t, tr.Remaining("bob"))
}

func TestInMemoryTransport_Failures(t *testing.T) {
	boom := errors.New("boom")
	tr := NewInMemoryTransport().FailFor("carol", boom)

	err := tr.Send(context.Background(), core.Message{MeetingID: "m", Participant: "carol", Intent: core.IntentOpen})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tr.Messages("m", "carol"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Send(ctx, core.Message{MeetingID: "m", Participant: "dave"}), context.Canceled)

	sink := &recordingSink{err: errors.New("inbox full")}
	tr = NewInMemoryTransport().Script("erin", "Tuesday")
	tr.Bind(sink.deliver)
	assert.Error(t, tr.Send(context.Background(), core.Message{MeetingID: "m", Participant: "erin", Intent: core.IntentOpen}))
}
