package meetmesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/internal/testutil"
	"github.com/hupe1980/meetmesh/transport"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, conversation []core.Turn) (core.MeetingRequest, error) {
	args := m.Called(ctx, conversation)
	return args.Get(0).(core.MeetingRequest), args.Error(1)
}

func TestMeetMesh_ScheduleConversation(t *testing.T) {
	req := testutil.NewMeetingRequestBuilder("1:1").
		Participants("alice", "bob").
		Category(core.CategoryPerformanceReview).
		Role("alice", core.RoleSuperior).
		Build()

	conv := []core.Turn{core.NewTurn("bob", "I need a review with Alice")}

	sum := new(MockSummarizer)
	sum.On("Summarize", mock.Anything, conv).Return(req, nil)

	tr := transport.NewInMemoryTransport().
		Script("alice", "Tuesday at 10").
		Script("bob", "sounds good")

	mesh := New(func(o *Options) {
		o.Summarizer = sum
		o.Transport = tr
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, events, errs, err := mesh.ScheduleConversation(ctx, conv)
	require.NoError(t, err)

	var last core.Event
	for ev := range events {
		last = ev
	}
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, core.EventFinalized, last.Kind)

	state, err := mesh.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFinalized, state.Outcome)
	assert.Equal(t, core.ParticipantRef("alice"), state.MainCoordinator)
	assert.Equal(t, 2, tr.Count(id, core.IntentFinalNotice))

	sum.AssertExpectations(t)
}

func TestMeetMesh_ScheduleConversationErrors(t *testing.T) {
	_, _, _, err := New().ScheduleConversation(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSummarizer)

	sum := new(MockSummarizer)
	sum.On("Summarize", mock.Anything, mock.Anything).
		Return(core.MeetingRequest{}, &core.IncompleteError{Missing: []string{"title"}})

	_, _, _, err = New(func(o *Options) { o.Summarizer = sum }).ScheduleConversation(context.Background(), nil)

	var incomplete *core.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"title"}, incomplete.Missing)
}

func TestMeetMesh_DeliverAndCancel(t *testing.T) {
	mesh := New()

	req := testutil.NewMeetingRequestBuilder("Sync").Participants("alice", "bob").Organizer("alice").Build()

	id, _, errs, err := mesh.Schedule(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, mesh.Deliver(id, core.Reply{Participant: "alice", Text: "tomorrow at 3pm"}))
	require.NoError(t, mesh.Cancel(id))

	var ne *core.NegotiationError
	require.ErrorAs(t, <-errs, &ne)
	assert.Equal(t, core.OutcomeCancelled, ne.Outcome)

	require.NoError(t, mesh.Shutdown(context.Background()))
}
