package entities

import (
	"fmt"

	"github.com/mortise-dev/mortise/internal/domain/values"
)

// Inventory is the aggregate root for installed plugins: an ordered
// collection of descriptors, insertion order = install order, unique by
// name. It is the in-memory authority; the store directory is its durable
// projection, reconciled only at install/uninstall boundaries.
//
// Invariants:
// - at most one descriptor per name
// - order reflects install order (appends only)
//
// The inventory carries no locking of its own: mutation happens only inside
// the store lock's critical section, reads come from the same caller context.
type Inventory struct {
	installed []*PluginDescriptor
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Add appends a descriptor.
// Returns error on a duplicate name (invariant enforcement).
func (inv *Inventory) Add(d *PluginDescriptor) error {
	if d == nil {
		return fmt.Errorf("inventory: descriptor is required")
	}
	if inv.Find(d.Name) != nil {
		return fmt.Errorf("inventory: plugin %q is already installed", d.Name)
	}
	inv.installed = append(inv.installed, d)
	return nil
}

// Remove deletes the descriptor for name, preserving the order of the
// rest. Returns false when the name is not installed.
func (inv *Inventory) Remove(name values.PluginName) bool {
	for i, d := range inv.installed {
		if d.Name.Equals(name) {
			inv.installed = append(inv.installed[:i], inv.installed[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the descriptor for name, or nil.
func (inv *Inventory) Find(name values.PluginName) *PluginDescriptor {
	for _, d := range inv.installed {
		if d.Name.Equals(name) {
			return d
		}
	}
	return nil
}

// List returns the descriptors in install order. The slice is a copy;
// the descriptors are shared.
func (inv *Inventory) List() []*PluginDescriptor {
	out := make([]*PluginDescriptor, len(inv.installed))
	copy(out, inv.installed)
	return out
}

// Dependents returns every installed descriptor that declares a
// dependency on name, in install order.
func (inv *Inventory) Dependents(name values.PluginName) []*PluginDescriptor {
	var out []*PluginDescriptor
	for _, d := range inv.installed {
		if d.DependsOn(name) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of installed plugins.
func (inv *Inventory) Len() int {
	return len(inv.installed)
}
