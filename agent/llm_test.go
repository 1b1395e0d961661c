package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/internal/testutil"
	"github.com/hupe1980/meetmesh/model"
)

// MockRenderer records fallback renders.
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, intent core.NegotiationIntent, rc core.RenderContext) (string, error) {
	args := m.Called(ctx, intent, rc)
	return args.String(0), args.Error(1)
}

// MockResolver maps names to refs.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(name string) (core.ParticipantRef, error) {
	args := m.Called(name)
	return args.Get(0).(core.ParticipantRef), args.Error(1)
}

func TestLLMRenderer_UsesModelText(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.Enqueue(model.Response{Text: "  Hey Bob! Does Tuesday 10:00 work?  "})

	fallback := new(MockRenderer)
	r := NewLLMRenderer(m, func(o *LLMRendererOptions) { o.Fallback = fallback })

	text, err := r.Render(context.Background(), core.IntentOpen, renderContext())
	require.NoError(t, err)
	assert.Equal(t, "Hey Bob! Does Tuesday 10:00 work?", text)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, "writing a short chat message to Bob")
	assert.Contains(t, reqs[0].Messages[0].Text, `"title": "Sync"`)
	fallback.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestLLMRenderer_FallsBackOnModelError(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.FailWith(errors.New("quota"))

	rc := renderContext()
	fallback := new(MockRenderer)
	fallback.On("Render", mock.Anything, core.IntentConfirm, rc).Return("fallback text", nil)

	r := NewLLMRenderer(m, func(o *LLMRendererOptions) { o.Fallback = fallback })

	text, err := r.Render(context.Background(), core.IntentConfirm, rc)
	require.NoError(t, err)
	assert.Equal(t, "fallback text", text)
	fallback.AssertExpectations(t)
}

func TestLLMRenderer_NoFallback(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.FailWith(errors.New("quota"))

	r := NewLLMRenderer(m, func(o *LLMRendererOptions) { o.Fallback = nil })

	_, err := r.Render(context.Background(), core.IntentConfirm, renderContext())
	assert.ErrorContains(t, err, "quota")

	_, err = r.Render(context.Background(), core.NegotiationIntent("SHOUT"), renderContext())
	assert.Error(t, err)
}

func TestLLMExtractor_ToolCall(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	require.NoError(t, m.EnqueueToolCall(PreferenceToolName, map[string]any{
		"stated":           true,
		"time_label":       "Tuesday morning",
		"specific_time":    "2025-03-04 09:30",
		"duration_minutes": 45,
	}))

	e := NewLLMExtractor(m)

	got, err := e.Extract(context.Background(), "Tuesday morning, 9:30 maybe", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-04 09:30", got.SpecificTime)
	assert.Equal(t, "Tuesday morning", got.TimeLabel)
	assert.Equal(t, core.FlexibilityStrict, got.Flexibility)
	assert.Equal(t, 45*time.Minute, got.Duration)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, PreferenceToolName, reqs[0].Tools[0].Name)
	assert.Contains(t, reqs[0].Messages[0].Text, "No time has been proposed yet.")
}

func TestLLMExtractor_AcceptsProposal(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.Enqueue(model.Response{Text: "```json\n{\"stated\": true, \"accepts_proposal\": true}\n```"})

	proposal := core.PreferenceAt(testutil.At(1, 10, 0), 0)

	got, err := NewLLMExtractor(m).Extract(context.Background(), "fine by me", &proposal)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, proposal, *got)
	assert.Contains(t, m.Requests()[0].Messages[0].Text, "Proposed time:")
}

func TestLLMExtractor_NothingStated(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	require.NoError(t, m.EnqueueToolCall(PreferenceToolName, map[string]any{"stated": false}))

	got, err := NewLLMExtractor(m).Extract(context.Background(), "who is this?", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLLMExtractor_FlexibleWithoutTime(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	require.NoError(t, m.EnqueueToolCall(PreferenceToolName, map[string]any{"stated": true, "specific_time": "someday"}))

	got, err := NewLLMExtractor(m).Extract(context.Background(), "some day next week", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.HasSpecificTime())
	assert.Equal(t, core.FlexibilityFlexible, got.Flexibility)
	assert.Equal(t, "some day next week", got.TimeLabel)
}

func TestLLMExtractor_InvalidArguments(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	require.NoError(t, m.EnqueueToolCall(PreferenceToolName, map[string]any{"time_label": "x"}))

	_, err := NewLLMExtractor(m).Extract(context.Background(), "x", nil)
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.ErrorContains(t, err, "stated")

	m.FailWith(errors.New("down"))
	_, err = NewLLMExtractor(m).Extract(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "down")
}

const summaryJSON = `Here you go:
{
  "title": "Quarterly review",
  "category": "Performance Review",
  "participants": [{"name": "Alice", "role": "superior"}, {"name": "Bob"}],
  "organizer": "Bob",
  "duration_minutes": 30,
  "time_range": {"label": "next week", "start": "2025-03-10", "end": "2025-03-14"},
  "constraints": {"workday_only": true, "working_hours": {"from": 9, "to": 17}}
}`

func TestLLMSummarizer_BuildsRequest(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.Enqueue(model.Response{Text: summaryJSON})

	resolver := new(MockResolver)
	resolver.On("Resolve", "Alice").Return(core.ParticipantRef("u-alice"), nil)
	resolver.On("Resolve", "Bob").Return(core.ParticipantRef("u-bob"), nil)

	s := NewLLMSummarizer(m, func(o *LLMSummarizerOptions) { o.Resolver = resolver })

	req, err := s.Summarize(context.Background(), []core.Turn{
		core.NewTurn("u-bob", "I need my review with Alice next week, 30 minutes."),
	})
	require.NoError(t, err)

	assert.Equal(t, "Quarterly review", req.Title)
	assert.Equal(t, core.CategoryPerformanceReview, req.Category)
	assert.Equal(t, []core.ParticipantRef{"u-alice", "u-bob"}, req.Participants)
	assert.Equal(t, core.RoleSuperior, req.Roles["u-alice"])
	assert.Equal(t, core.ParticipantRef("u-bob"), req.Organizer)
	assert.Equal(t, 30*time.Minute, req.Duration)
	assert.Equal(t, "next week", req.TimeRange.Label)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), req.TimeRange.Start)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), req.TimeRange.End)
	assert.True(t, req.Constraints.WorkdayOnly)
	require.NotNil(t, req.Constraints.WorkingHours)
	assert.Equal(t, 17, req.Constraints.WorkingHours.To)

	assert.Contains(t, m.Requests()[0].Messages[0].Text, "u-bob: I need my review")
	resolver.AssertExpectations(t)
}

func TestLLMSummarizer_Incomplete(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.Enqueue(model.Response{Text: `{"title": "", "participants": []}`})

	s := NewLLMSummarizer(m)

	_, err := s.Summarize(context.Background(), []core.Turn{core.NewTurn("u", "let's meet")})

	var incomplete *core.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"title", "participants"}, incomplete.Missing)

	_, err = s.Summarize(context.Background(), nil)
	require.ErrorAs(t, err, &incomplete)
}

func TestLLMSummarizer_UnresolvedName(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.Enqueue(model.Response{Text: `{"title": "Sync", "participants": [{"name": "Zed"}]}`})

	resolver := new(MockResolver)
	resolver.On("Resolve", "Zed").Return(core.ParticipantRef(""), core.ErrParticipantNotFound)

	_, err := NewLLMSummarizer(m, func(o *LLMSummarizerOptions) { o.Resolver = resolver }).
		Summarize(context.Background(), []core.Turn{core.NewTurn("u", "sync with Zed")})
	assert.ErrorIs(t, err, core.ErrParticipantNotFound)
}

func TestNormalizeCategory(t *testing.T) {
	for in, want := range map[string]core.Category{
		"Interview":       core.CategoryInterview,
		"project meeting": core.CategoryProjectMeeting,
		"appraisal":       core.CategoryPerformanceReview,
		"workshop":        core.CategoryTraining,
		"lunch":           core.CategoryOther,
		"":                "",
	} {
		assert.Equal(t, want, normalizeCategory(in), in)
	}
}
