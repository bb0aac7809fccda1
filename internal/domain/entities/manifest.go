package entities

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// ManifestFileName is the metadata file every installed package carries.
const ManifestFileName = "plugin.json"

// Manifest is the package metadata read from plugin.json.
//
// Invariants:
// - Name and Version must be present
// - Version must parse as a semantic version
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Validate checks manifest invariants.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest %q: version is required", m.Name)
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("manifest %q: invalid version %q: %w", m.Name, m.Version, err)
	}
	return nil
}

// SemVersion returns the parsed semantic version.
func (m *Manifest) SemVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: invalid version %q: %w", m.Name, m.Version, err)
	}
	return v, nil
}

// EntryRelPath returns the manifest's entry file relative to the package
// directory: the declared main file, or defaultFile when absent; defaultExt
// is appended when the result has no extension.
func (m *Manifest) EntryRelPath(defaultFile, defaultExt string) string {
	entry := m.Main
	if entry == "" {
		entry = defaultFile
	}
	if filepath.Ext(entry) == "" {
		entry += defaultExt
	}
	return entry
}

// Matches reports whether the manifest describes exactly the given
// name and version. Used for the already-downloaded short-circuit.
func (m *Manifest) Matches(name string, version *semver.Version) bool {
	if m.Name != name || version == nil {
		return false
	}
	v, err := m.SemVersion()
	if err != nil {
		return false
	}
	return v.Equal(version)
}
