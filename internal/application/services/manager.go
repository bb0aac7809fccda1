package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// Config carries the manager's behavioral settings. Store and lock tuning
// lives with their infrastructure implementations.
type Config struct {
	// DefaultEntryFile is used when a manifest declares no main file.
	DefaultEntryFile string
	// DefaultEntryExt is appended to entry paths without an extension.
	DefaultEntryExt string
	// IgnoredDependencies are never installed. Each pattern is matched as
	// an exact literal first, then as a regular expression over the whole
	// dependency name.
	IgnoredDependencies []string
	// StaticDependencies are supplied by the host out-of-band and never
	// installed.
	StaticDependencies []string
}

// ManagerOptions wires a Manager's collaborators.
type ManagerOptions struct {
	Config    Config
	Store     ports.PluginStore
	Lock      ports.StoreLock
	Registry  ports.PackageSource
	Github    ports.PackageSource
	Local     ports.PackageSource
	Inline    ports.InlineSourceFactory
	Loader    ports.PluginLoader
	Probe     ports.HostModuleProbe
	Inventory *entities.Inventory
	Logger    *slog.Logger
}

// Manager orchestrates plugin installation: it is the serializing gate in
// front of the store. Every mutating operation runs inside the store lock's
// critical section; reads come from the caller's own context and take no
// lock. Each Manager owns its inventory, so independent managers over
// different store roots do not interfere.
type Manager struct {
	cfg       Config
	store     ports.PluginStore
	lock      ports.StoreLock
	registry  ports.PackageSource
	github    ports.PackageSource
	local     ports.PackageSource
	inline    ports.InlineSourceFactory
	loader    ports.PluginLoader
	probe     ports.HostModuleProbe
	inventory *entities.Inventory
	ignored   []*regexp.Regexp
	static    map[string]struct{}
	logger    *slog.Logger
}

// NewManager creates a manager from its options. A nil Inventory starts
// empty; a nil Logger falls back to slog.Default().
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Config.DefaultEntryFile == "" {
		return nil, fmt.Errorf("manager: default entry file is required")
	}

	ignored := make([]*regexp.Regexp, 0, len(opts.Config.IgnoredDependencies))
	for _, pattern := range opts.Config.IgnoredDependencies {
		re, err := regexp.Compile("^" + pattern + "$")
		if err != nil {
			return nil, fmt.Errorf("manager: invalid ignore pattern %q: %w", pattern, err)
		}
		ignored = append(ignored, re)
	}

	static := make(map[string]struct{}, len(opts.Config.StaticDependencies))
	for _, name := range opts.Config.StaticDependencies {
		static[name] = struct{}{}
	}

	inventory := opts.Inventory
	if inventory == nil {
		inventory = entities.NewInventory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:       opts.Config,
		store:     opts.Store,
		lock:      opts.Lock,
		registry:  opts.Registry,
		github:    opts.Github,
		local:     opts.Local,
		inline:    opts.Inline,
		loader:    opts.Loader,
		probe:     opts.Probe,
		inventory: inventory,
		ignored:   ignored,
		static:    static,
		logger:    logger,
	}, nil
}

// withStoreLock runs fn inside the store lock's critical section. The lock
// is always released, whatever fn returns; a release failure is logged and
// never replaces fn's own result.
func (m *Manager) withStoreLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.store.EnsureRoot(); err != nil {
		return fmt.Errorf("store root: %w", err)
	}

	handle, err := m.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := handle.Release(); rerr != nil {
			m.logger.Warn("store lock release failed", "error", rerr)
		}
	}()

	return fn(ctx)
}

// List returns the installed plugins in install order.
func (m *Manager) List() []*entities.PluginDescriptor {
	return m.inventory.List()
}

// Info returns the descriptor for an installed plugin.
func (m *Manager) Info(name string) (*entities.PluginDescriptor, error) {
	pn, err := values.NewPluginName(name)
	if err != nil {
		return nil, apperrors.NewInvalidNameError(name, err)
	}
	d := m.inventory.Find(pn)
	if d == nil {
		return nil, apperrors.NewNotInstalledError(pn.String())
	}
	return d, nil
}

// QueryPackage resolves a package identity without installing anything.
// A versionSpec matching the repository-reference pattern queries the VCS
// source; anything else queries the registry.
func (m *Manager) QueryPackage(ctx context.Context, name, versionSpec string) (entities.PackageInfo, error) {
	if values.IsRepoRef(versionSpec) {
		return m.github.Resolve(ctx, versionSpec, "")
	}
	if _, err := values.NewPluginName(name); err != nil {
		return entities.PackageInfo{}, apperrors.NewInvalidNameError(name, err)
	}
	return m.registry.Resolve(ctx, name, versionSpec)
}

// Require loads an installed plugin (or a file inside it) through the
// loader and returns the loaded value.
func (m *Manager) Require(ctx context.Context, specifier string) (any, error) {
	name, subPath := m.loader.SplitRequire(specifier)
	pn, err := values.NewPluginName(name)
	if err != nil {
		return nil, apperrors.NewInvalidNameError(name, err)
	}

	d := m.inventory.Find(pn)
	if d == nil {
		return nil, apperrors.NewNotInstalledError(pn.String())
	}

	entry := d.EntryPath
	if subPath != "" {
		entry, err = m.loader.ResolvePath(d, subPath)
		if err != nil {
			return nil, fmt.Errorf("require %q: %w", specifier, err)
		}
	}

	return m.loader.Load(ctx, d, entry)
}

// Uninstall removes an installed plugin: cascade-unload it and its
// dependents, drop it from the inventory, delete its files. Uninstalling a
// plugin that is not installed is a no-op success.
func (m *Manager) Uninstall(ctx context.Context, name string) error {
	pn, err := values.NewPluginName(name)
	if err != nil {
		return apperrors.NewInvalidNameError(name, err)
	}

	return m.withStoreLock(ctx, func(ctx context.Context) error {
		return m.uninstallLockFree(ctx, pn)
	})
}

// UninstallAll removes every installed plugin inside one lock scope, most
// recently installed first, so dependents go before the packages they
// reference.
func (m *Manager) UninstallAll(ctx context.Context) error {
	return m.withStoreLock(ctx, func(ctx context.Context) error {
		installed := m.inventory.List()
		for i := len(installed) - 1; i >= 0; i-- {
			if err := m.uninstallLockFree(ctx, installed[i].Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Manager) uninstallLockFree(ctx context.Context, name values.PluginName) error {
	d := m.inventory.Find(name)
	if d == nil {
		m.logger.Debug("uninstall skipped, plugin not installed", "plugin", name.String())
		return nil
	}

	if err := m.unloadWithDependents(ctx, d, make(map[string]bool)); err != nil {
		return err
	}

	m.inventory.Remove(name)
	if err := m.store.RemovePluginDir(name.String()); err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}

	m.logger.Info("plugin uninstalled", "plugin", name.String(), "version", d.VersionString())
	return nil
}
