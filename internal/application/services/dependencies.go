package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// installDependencies walks a just-installed descriptor's dependency map
// and installs whatever is not already satisfied. It runs lock-held and
// threads a visited set through the recursion: a name already visited in
// this walk is never re-entered, which bounds dependency cycles. A cycle
// whose ranges are mutually incompatible keeps the version that installed
// first; that configuration is unsupported.
//
// Names are walked in sorted order so runs are reproducible.
func (m *Manager) installDependencies(ctx context.Context, d *entities.PluginDescriptor, visited map[string]bool) error {
	if len(d.Dependencies) == 0 {
		return nil
	}

	names := make([]string, 0, len(d.Dependencies))
	for name := range d.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, depName := range names {
		rangeSpec := d.Dependencies[depName]

		if m.isIgnoredDependency(depName) {
			m.logger.Debug("dependency ignored",
				"plugin", d.Name.String(), "dependency", depName)
			continue
		}
		if _, ok := m.static[depName]; ok {
			m.logger.Debug("dependency supplied statically",
				"plugin", d.Name.String(), "dependency", depName)
			continue
		}
		if m.hostSatisfies(depName, rangeSpec) {
			m.logger.Debug("dependency satisfied by host",
				"plugin", d.Name.String(), "dependency", depName, "range", rangeSpec)
			continue
		}
		if m.installedSatisfies(depName, rangeSpec) {
			m.logger.Debug("dependency already installed",
				"plugin", d.Name.String(), "dependency", depName, "range", rangeSpec)
			continue
		}
		if visited[depName] {
			m.logger.Debug("dependency already visited in this walk",
				"plugin", d.Name.String(), "dependency", depName)
			continue
		}
		visited[depName] = true

		m.logger.Info("installing dependency",
			"plugin", d.Name.String(), "dependency", depName, "range", rangeSpec)
		_, _, err := m.installLockFree(ctx, installRequest{
			source:      m.registry,
			sourceName:  "registry",
			identifier:  depName,
			versionSpec: rangeSpec,
		}, visited)
		if err != nil {
			return fmt.Errorf("dependency %q of %q: %w", depName, d.Name, err)
		}
	}
	return nil
}

// isIgnoredDependency matches a dependency name against the configured
// ignore patterns: exact literal first, then the compiled expression over
// the whole name.
func (m *Manager) isIgnoredDependency(name string) bool {
	for i, pattern := range m.cfg.IgnoredDependencies {
		if name == pattern {
			return true
		}
		if m.ignored[i].MatchString(name) {
			return true
		}
	}
	return false
}

// hostSatisfies asks the host probe for the dependency's manifest and
// checks its version against the range. Any probe failure means "not
// satisfied": resolution falls through to an install.
func (m *Manager) hostSatisfies(name, rangeSpec string) bool {
	if m.probe == nil {
		return false
	}
	manifest, err := m.probe.Manifest(name)
	if err != nil || manifest == nil {
		return false
	}
	version, err := manifest.SemVersion()
	if err != nil {
		return false
	}
	return versionInRange(version, rangeSpec)
}

// installedSatisfies reports whether the inventory holds the dependency at
// a compatible version.
func (m *Manager) installedSatisfies(name, rangeSpec string) bool {
	pn, err := values.NewPluginName(name)
	if err != nil {
		return false
	}
	installed := m.inventory.Find(pn)
	if installed == nil {
		return false
	}
	return versionInRange(installed.Version, rangeSpec)
}

// versionInRange checks a version against a range string. A range that
// does not parse satisfies nothing.
func versionInRange(version *semver.Version, rangeSpec string) bool {
	r, err := values.NewVersionRange(rangeSpec)
	if err != nil {
		return false
	}
	return r.Satisfies(version)
}
