package templates

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginTemplates(t *testing.T) {
	tmpl, err := PluginTemplates()
	require.NoError(t, err)

	data := PluginData{Name: "my-plugin", Version: "0.1.0", EntryFile: "main.wasm"}

	t.Run("manifest is valid JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, tmpl, "plugin.json", data))

		var manifest map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &manifest))
		assert.Equal(t, "my-plugin", manifest["name"])
		assert.Equal(t, "0.1.0", manifest["version"])
		assert.Equal(t, "main.wasm", manifest["main"])
	})

	t.Run("readme mentions the entry file", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, tmpl, "README.md", data))
		assert.Contains(t, buf.String(), "main.wasm")
	})

	t.Run("unknown template fails", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, Render(&buf, tmpl, "nope", data))
	})
}
