package entities_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortise-dev/mortise/internal/domain/entities"
)

func TestManifest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest entities.Manifest
		wantErr  string
	}{
		{
			name:     "valid",
			manifest: entities.Manifest{Name: "fetch", Version: "1.2.0"},
		},
		{
			name: "valid with main and dependencies",
			manifest: entities.Manifest{
				Name:         "fetch",
				Version:      "1.2.0",
				Main:         "lib/fetch.wasm",
				Dependencies: map[string]string{"cache": "^1.0.0"},
			},
		},
		{
			name:     "missing name",
			manifest: entities.Manifest{Version: "1.2.0"},
			wantErr:  "name is required",
		},
		{
			name:     "missing version",
			manifest: entities.Manifest{Name: "fetch"},
			wantErr:  "version is required",
		},
		{
			name:     "malformed version",
			manifest: entities.Manifest{Name: "fetch", Version: "one.two"},
			wantErr:  "invalid version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManifest_SemVersion(t *testing.T) {
	t.Parallel()

	m := entities.Manifest{Name: "fetch", Version: "1.2.0"}
	v, err := m.SemVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v.String())

	bad := entities.Manifest{Name: "fetch", Version: "nope"}
	_, err = bad.SemVersion()
	assert.Error(t, err)
}

func TestManifest_Matches(t *testing.T) {
	t.Parallel()

	m := entities.Manifest{Name: "fetch", Version: "1.2.0"}
	assert.True(t, m.Matches("fetch", semver.MustParse("1.2.0")))
	assert.False(t, m.Matches("fetch", semver.MustParse("1.2.1")))
	assert.False(t, m.Matches("cache", semver.MustParse("1.2.0")))
	assert.False(t, m.Matches("fetch", nil))

	// Equivalent spellings of one version still match.
	prefixed := entities.Manifest{Name: "fetch", Version: "v1.2.0"}
	assert.True(t, prefixed.Matches("fetch", semver.MustParse("1.2.0")))
}
