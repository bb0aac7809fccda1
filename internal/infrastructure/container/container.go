// Package container provides dependency injection for the application.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mortise-dev/mortise/internal/application/services"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/infrastructure/loader"
	"github.com/mortise-dev/mortise/internal/infrastructure/lock"
	"github.com/mortise-dev/mortise/internal/infrastructure/source"
	"github.com/mortise-dev/mortise/internal/infrastructure/store"
	"github.com/mortise-dev/mortise/internal/infrastructure/system"
	"github.com/mortise-dev/mortise/internal/infrastructure/validation"
)

// Container holds the wired application dependencies.
type Container struct {
	manager *services.Manager
	loader  *loader.WazeroLoader
	config  *system.Config
	logger  *slog.Logger
}

// Options configure the container.
type Options struct {
	Logger *slog.Logger

	// ConfigPath overrides the system config file location.
	ConfigPath string

	// StoreRoot overrides the configured store root.
	StoreRoot string

	// RegistryURL overrides the configured registry endpoint.
	RegistryURL string
}

// New wires the full dependency graph at one composition root: config →
// store, lock, sources, loader → manager. The inventory is seeded by a
// store rescan so this process sees what previous processes installed.
func New(ctx context.Context, opts Options) (*Container, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = system.DefaultConfigPath()
	}
	cfg, err := system.NewConfigLoader().Load(configPath)
	if err != nil {
		logger.Debug("failed to load system config, using defaults",
			"path", configPath, "error", err)
		cfg = system.DefaultConfig()
	}
	if opts.StoreRoot != "" {
		cfg.StoreRoot = opts.StoreRoot
	}
	if opts.RegistryURL != "" {
		cfg.Registry.URL = opts.RegistryURL
	}

	root := system.ExpandPath(cfg.StoreRoot)

	validator, err := validation.NewManifestValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest validator: %w", err)
	}

	diskStore, err := store.NewDiskStore(store.Options{
		Root:             root,
		DefaultEntryFile: cfg.Entry.File,
		DefaultEntryExt:  cfg.Entry.Extension,
		Validator:        validator,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	storeLock := lock.NewFileLock(
		filepath.Join(root, lock.FileName), cfg.LockWait(), cfg.LockStale(), logger)

	wazeroLoader, err := loader.NewWazeroLoader(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin runtime: %w", err)
	}

	// Seed the inventory from disk: installs from previous processes become
	// visible here. Invalid packages are logged and skipped by the scan.
	inventory := entities.NewInventory()
	descriptors, err := diskStore.Scan()
	if err != nil {
		logger.Warn("store rescan failed, starting with an empty inventory", "error", err)
	}
	for _, d := range descriptors {
		if err := inventory.Add(d); err != nil {
			logger.Warn("skipping duplicate package from store rescan",
				"plugin", d.Name.String(), "error", err)
		}
	}

	manager, err := services.NewManager(services.ManagerOptions{
		Config: services.Config{
			DefaultEntryFile:    cfg.Entry.File,
			DefaultEntryExt:     cfg.Entry.Extension,
			IgnoredDependencies: cfg.IgnoredDependencies,
			StaticDependencies:  cfg.StaticDependencies,
		},
		Store: diskStore,
		Lock:  storeLock,
		Registry: source.NewRegistrySource(source.RegistryOptions{
			Endpoint: cfg.Registry.URL,
			Token:    cfg.Registry.Token,
			Logger:   logger,
		}),
		Github:    source.NewGithubSource(source.GithubOptions{Logger: logger}),
		Local:     source.NewLocalSource(logger),
		Inline:    source.NewInlineFactory(cfg.Entry.File),
		Loader:    wazeroLoader,
		Inventory: inventory,
		Logger:    logger,
	})
	if err != nil {
		_ = wazeroLoader.Close(ctx)
		return nil, err
	}

	return &Container{
		manager: manager,
		loader:  wazeroLoader,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Manager returns the installation orchestrator.
func (c *Container) Manager() *services.Manager {
	return c.manager
}

// Config returns the effective system configuration.
func (c *Container) Config() *system.Config {
	return c.config
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Close releases the plugin runtime.
func (c *Container) Close(ctx context.Context) error {
	return c.loader.Close(ctx)
}
