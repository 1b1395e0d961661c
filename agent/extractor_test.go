package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/internal/testutil"
)

func newTestPatternExtractor() *PatternExtractor {
	return NewPatternExtractor(func(o *PatternExtractorOptions) {
		o.Now = func() time.Time { return testutil.At(0, 8, 0) }
	})
}

func TestPatternExtractor_Times(t *testing.T) {
	e := newTestPatternExtractor()

	tests := []struct {
		text string
		want string
		flex core.Flexibility
	}{
		{"Tuesday at 10", "2025-03-04 10:00", core.FlexibilityStrict},
		{"2025-03-05 14:30 please", "2025-03-05 14:30", core.FlexibilityStrict},
		{"3pm tomorrow", "2025-03-04 15:00", core.FlexibilityStrict},
		{"Wednesday afternoon", "2025-03-05 14:00", core.FlexibilityStrict},
		{"not Monday, Tuesday 10:00 works", "2025-03-04 10:00", core.FlexibilityStrict},
		{"March 7 at 9am", "2025-03-07 09:00", core.FlexibilityStrict},
		{"only Thursday at 2pm", "2025-03-06 14:00", core.FlexibilityStrict},
		{"I'm flexible, any time Friday", "2025-03-07 09:00", core.FlexibilityFlexible},
		{"today at noon", "2025-03-03 12:00", core.FlexibilityStrict},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.text, nil)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.SpecificTime)
			assert.Equal(t, tt.flex, got.Flexibility)
			assert.Equal(t, tt.text, got.TimeLabel)
		})
	}
}

func TestPatternExtractor_RelativeToProposal(t *testing.T) {
	e := newTestPatternExtractor()
	proposal := core.PreferenceAt(testutil.At(2, 10, 0), 0)

	got, err := e.Extract(context.Background(), "Thursday 11:00 instead", &proposal)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-06 11:00", got.SpecificTime)

	got, err = e.Extract(context.Background(), "at 15:00 that day", &proposal)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2025-03-05 15:00", got.SpecificTime)
}

func TestPatternExtractor_NoTime(t *testing.T) {
	e := newTestPatternExtractor()
	proposal := core.PreferenceAt(testutil.At(1, 10, 0), 0)

	got, err := e.Extract(context.Background(), "Yes, that works for me", &proposal)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, proposal, *got)

	got, err = e.Extract(context.Background(), "sure, I'm flexible", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.HasSpecificTime())
	assert.Equal(t, core.FlexibilityFlexible, got.Flexibility)

	for _, text := range []string{"", "   ", "I can't make it", "let me check with my team"} {
		got, err = e.Extract(context.Background(), text, &proposal)
		require.NoError(t, err)
		assert.Nil(t, got, text)
	}
}

func TestPatternExtractor_NegatedTimes(t *testing.T) {
	e := newTestPatternExtractor()
	proposal := core.PreferenceAt(testutil.At(1, 10, 0), 0)

	for _, text := range []string{
		"No, I can't make 10:00.",
		"I'm not free Tuesday 10:00",
		"Tuesday at 10 doesn't work for me",
		"busy on Tuesday at 10, sorry",
	} {
		got, err := e.Extract(context.Background(), text, &proposal)
		require.NoError(t, err)
		assert.Nil(t, got, text)
	}

	tests := []struct {
		text string
		want string
	}{
		{"Not Tuesday, Wednesday at 11 instead", "2025-03-05 11:00"},
		{"10:00 doesn't work but 14:00 does", "2025-03-04 14:00"},
		{"Thursday 9:00; not Friday", "2025-03-06 09:00"},
	}

	for _, tt := range tests {
		got, err := e.Extract(context.Background(), tt.text, &proposal)
		require.NoError(t, err)
		require.NotNil(t, got, tt.text)
		assert.Equal(t, tt.want, got.SpecificTime, tt.text)
		assert.Equal(t, tt.text, got.TimeLabel)
	}
}

func TestPatternExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPatternExtractor().Extract(ctx, "Tuesday at 10", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
