package agent

import (
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSchema(t *testing.T) {
	schema := toolSchema(preferenceToolArgs)

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, len(preferenceToolArgs))
	assert.Equal(t, map[string]any{"type": "integer", "description": "Requested meeting length in minutes, if stated"}, props["duration_minutes"])
	assert.Equal(t, []string{"stated"}, schema["required"])
	assert.Equal(t, schema, preferenceTool.schema)
}

func TestPreferenceToolCheck(t *testing.T) {
	ok := map[string]any{"stated": true, "specific_time": "2025-03-04 10:00", "duration_minutes": float64(45), "extra": "x"}
	require.NoError(t, preferenceTool.check(ok))

	tests := []struct {
		name   string
		params map[string]any
		arg    string
	}{
		{"missing stated", map[string]any{"time_label": "x"}, "stated"},
		{"stated as string", map[string]any{"stated": "yes"}, "stated"},
		{"fractional minutes", map[string]any{"stated": true, "duration_minutes": 1.5}, "duration_minutes"},
		{"numeric label", map[string]any{"stated": true, "time_label": float64(10)}, "time_label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := preferenceTool.check(tt.params)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, PreferenceToolName, argErr.Tool)

			var verr *jsonschema.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.ErrorContains(t, err, tt.arg)
		})
	}
}

func TestCompileToolRejectsUnknownKind(t *testing.T) {
	_, err := compileTool("broken", []toolArg{{Name: "x", Kind: "timestamp"}})
	assert.Error(t, err)
}
