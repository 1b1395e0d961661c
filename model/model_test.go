package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedAndEcho(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("hello", "hi there")

	resp, err := Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)

	resp, err = Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "other"}}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Text)
	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("q", "abc")

	respCh, errCh := m.Generate(context.Background(), Request{Stream: true, Messages: []Message{{Role: RoleUser, Text: "q"}}})

	var partials []string
	var final Response
	for r := range respCh {
		if r.Partial {
			partials = append(partials, r.Text)
			continue
		}
		final = r
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"a", "b", "c"}, partials)
	assert.Equal(t, "abc", final.Text)
}

func TestMockModel_QueueAndToolCalls(t *testing.T) {
	m := NewMockModel("mock", "mock")
	require.NoError(t, m.EnqueueToolCall("record", map[string]string{"day": "Monday"}))

	resp, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "record", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"day":"Monday"}`, string(resp.ToolCalls[0].Arguments))
}

func TestMockModel_Failure(t *testing.T) {
	m := NewMockModel("mock", "mock")
	boom := errors.New("boom")
	m.FailWith(boom)

	_, err := Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "x"}}})
	assert.ErrorIs(t, err, boom)

	_, err = Collect(context.Background(), NewMockModel("m", "p"), Request{})
	assert.Error(t, err)
}
