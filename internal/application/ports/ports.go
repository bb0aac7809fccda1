// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"

	"github.com/mortise-dev/mortise/internal/domain/entities"
)

// PackageSource turns an identifier plus version spec into package files on
// disk. Resolve reports identity without side effects; Materialize writes
// the package contents into destDir. Resolution failures surface as
// apperrors.ResolutionError, write/extract failures as
// apperrors.MaterializeError.
type PackageSource interface {
	// Resolve maps identifier+versionSpec to a concrete package identity.
	Resolve(ctx context.Context, identifier, versionSpec string) (entities.PackageInfo, error)

	// Materialize writes the resolved package's files into destDir.
	// destDir exists and is empty when called.
	Materialize(ctx context.Context, info entities.PackageInfo, destDir string) error
}

// PluginStore is the durable projection of the inventory: one directory
// per installed package under a fixed root, each holding an entry file
// and a manifest.
type PluginStore interface {
	// EnsureRoot creates the store root if it does not exist.
	EnsureRoot() error

	// Root returns the store root path.
	Root() string

	// PluginDir returns the directory a plugin installs into.
	PluginDir(name string) string

	// PrepareDir removes any stale directory for name and recreates it
	// empty, ready for materialization.
	PrepareDir(name string) (string, error)

	// ReadManifest reads and validates the manifest inside dir.
	ReadManifest(dir string) (*entities.Manifest, error)

	// WriteManifest writes the manifest inside dir.
	WriteManifest(dir string, m *entities.Manifest) error

	// RemovePluginDir deletes a plugin's directory tree.
	RemovePluginDir(name string) error

	// Scan walks the store and returns a descriptor per directory with a
	// readable manifest, ordered by directory modification time.
	Scan() ([]*entities.PluginDescriptor, error)
}

// LockHandle is a held store lock. Release is idempotent per handle and
// must always be attempted, regardless of the guarded operation's outcome.
type LockHandle interface {
	Release() error
}

// StoreLock serializes store mutation across goroutines and processes.
// Acquire blocks up to the configured wait, reclaims abandoned locks past
// the staleness threshold, and fails with apperrors.LockAcquireError
// otherwise.
type StoreLock interface {
	Acquire(ctx context.Context) (LockHandle, error)
}

// InlineSourceFactory builds the inline-code package source for one
// install call. Resolve on the returned source is pure synthesis from
// name+version; Materialize writes the code verbatim as the entry file
// plus a minimal manifest. An empty version means the unpinned sentinel.
type InlineSourceFactory func(name string, code []byte, version string) PackageSource

// PluginLoader is the host runtime collaborator: it loads and unloads
// installed plugin code and resolves require specifiers.
type PluginLoader interface {
	// Load loads the plugin's file at entryPath and returns the loaded value.
	Load(ctx context.Context, d *entities.PluginDescriptor, entryPath string) (any, error)

	// Unload evicts any live binding of the plugin. Unloading a plugin
	// that was never loaded is a no-op.
	Unload(ctx context.Context, d *entities.PluginDescriptor) error

	// ResolvePath resolves relPath inside the plugin's directory to an
	// absolute file path, rejecting escapes from the plugin directory.
	ResolvePath(d *entities.PluginDescriptor, relPath string) (string, error)

	// SplitRequire splits a require specifier into plugin name and
	// optional sub path ("@team/fetch/lib/util" -> "@team/fetch", "lib/util").
	SplitRequire(specifier string) (name, subPath string)
}

// HostModuleProbe checks whether the hosting environment itself provides a
// module, so dependency resolution can treat it as satisfied without
// installing. A nil probe means no host modules exist.
type HostModuleProbe interface {
	// Manifest returns the named host module's manifest, or an error when
	// the host does not expose it. Errors mean "not satisfied", never abort.
	Manifest(name string) (*entities.Manifest, error)
}
