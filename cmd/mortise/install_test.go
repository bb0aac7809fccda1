package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSpec(t *testing.T) {
	tests := []struct {
		arg  string
		name string
		spec string
	}{
		{"fetch", "fetch", ""},
		{"fetch@1.0.0", "fetch", "1.0.0"},
		{"fetch@^2.0.0", "fetch", "^2.0.0"},
		{"fetch@beta", "fetch", "beta"},
		{"@team/fetch", "@team/fetch", ""},
		{"@team/fetch@^1.0.0", "@team/fetch", "^1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, spec := splitSpec(tt.arg)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.spec, spec)
		})
	}
}

func TestIsRepoRefArg(t *testing.T) {
	assert.True(t, isRepoRefArg("acme/fetch"))
	assert.True(t, isRepoRefArg("acme/fetch#v1.2.0"))
	assert.False(t, isRepoRefArg("fetch"))
	assert.False(t, isRepoRefArg("fetch@^1.0.0"))
	// A scoped registry name also contains a slash, but is never a repo ref.
	assert.False(t, isRepoRefArg("@team/fetch"))
}

func TestScaffoldPlugin(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-plugin")

	require.NoError(t, scaffoldPlugin(dir, "my-plugin", "0.1.0", false))
	for _, file := range scaffoldFiles {
		assert.FileExists(t, filepath.Join(dir, file))
	}

	manifest, err := os.ReadFile(filepath.Join(dir, "plugin.json"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `"my-plugin"`)
	assert.Contains(t, string(manifest), `"0.1.0"`)

	// A second scaffold refuses to clobber without force.
	err = scaffoldPlugin(dir, "my-plugin", "0.1.0", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, scaffoldPlugin(dir, "my-plugin", "0.2.0", true))
}
