package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate(`{{.name}} meets {{join ", " .with}}{{if .missing}}!{{end}}`, map[string]any{
		"name": "Alice",
		"with": []any{"Bob", "Carol"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice meets Bob, Carol", out)

	out, err = RenderTemplate("plain text, it's fine", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text, it's fine", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
