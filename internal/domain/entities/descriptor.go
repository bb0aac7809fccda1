package entities

import (
	"github.com/Masterminds/semver/v3"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// PluginDescriptor is the installed representation of a package: where it
// lives in the store, which file to load, and what it depends on.
// Descriptors are created only by a successful install and replaced whole,
// never mutated in place.
type PluginDescriptor struct {
	Name         values.PluginName `json:"name"`
	Version      *semver.Version   `json:"version"`
	Location     string            `json:"location"`
	EntryPath    string            `json:"entryPath"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// DependsOn reports whether the descriptor declares a dependency on name.
func (d *PluginDescriptor) DependsOn(name values.PluginName) bool {
	_, ok := d.Dependencies[name.String()]
	return ok
}

// VersionString returns the version, or "" for a nil version.
func (d *PluginDescriptor) VersionString() string {
	if d.Version == nil {
		return ""
	}
	return d.Version.String()
}
