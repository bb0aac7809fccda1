package dto

import (
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// InstallReport is the result of an install request: the descriptor now
// representing the package, and what the install actually did.
type InstallReport struct {
	Descriptor *entities.PluginDescriptor
	Outcome    values.InstallOutcome
}

// PluginSummary is the flat, output-friendly view of a descriptor, used by
// list/info rendering and by list filter expressions.
type PluginSummary struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Location     string            `json:"location" yaml:"location"`
	EntryPath    string            `json:"entryPath" yaml:"entry_path"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// NewPluginSummary flattens a descriptor.
func NewPluginSummary(d *entities.PluginDescriptor) PluginSummary {
	return PluginSummary{
		Name:         d.Name.String(),
		Version:      d.VersionString(),
		Location:     d.Location,
		EntryPath:    d.EntryPath,
		Dependencies: d.Dependencies,
	}
}
