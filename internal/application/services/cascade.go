package services

import (
	"context"
	"fmt"

	"github.com/mortise-dev/mortise/internal/domain/entities"
)

// unloadWithDependents unloads the target, then recursively unloads every
// installed plugin that depends on it, so no live binding survives the
// target's disappearance. It only unloads: dependents keep their inventory
// entries and files and stay reloadable. The seen set bounds the walk on
// cyclic dependency graphs.
func (m *Manager) unloadWithDependents(ctx context.Context, d *entities.PluginDescriptor, seen map[string]bool) error {
	if seen[d.Name.String()] {
		return nil
	}
	seen[d.Name.String()] = true

	if err := m.loader.Unload(ctx, d); err != nil {
		return fmt.Errorf("unload %q: %w", d.Name, err)
	}
	m.logger.Debug("plugin unloaded", "plugin", d.Name.String())

	for _, dependent := range m.inventory.Dependents(d.Name) {
		if err := m.unloadWithDependents(ctx, dependent, seen); err != nil {
			return err
		}
	}
	return nil
}
