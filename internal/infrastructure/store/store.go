// Package store implements the on-disk plugin store: one directory per
// installed package under a fixed root, each holding an entry file and a
// plugin.json manifest.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
	"github.com/mortise-dev/mortise/internal/infrastructure/validation"
)

// Options configure a DiskStore.
type Options struct {
	// Root is the store root directory.
	Root string
	// DefaultEntryFile names the entry file when a manifest declares none.
	DefaultEntryFile string
	// DefaultEntryExt is appended to entry paths without an extension.
	DefaultEntryExt string
	// Validator checks raw manifest bytes before decoding. Required.
	Validator *validation.ManifestValidator
	Logger    *slog.Logger
}

// DiskStore is the durable projection of the inventory.
type DiskStore struct {
	root      string
	entryFile string
	entryExt  string
	validator *validation.ManifestValidator
	logger    *slog.Logger
}

var _ ports.PluginStore = (*DiskStore)(nil)

// NewDiskStore creates a store over the given root. The root is not created
// until EnsureRoot is called.
func NewDiskStore(opts Options) (*DiskStore, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("store: root is required")
	}
	if opts.Validator == nil {
		return nil, fmt.Errorf("store: manifest validator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStore{
		root:      filepath.Clean(opts.Root),
		entryFile: opts.DefaultEntryFile,
		entryExt:  opts.DefaultEntryExt,
		validator: opts.Validator,
		logger:    logger,
	}, nil
}

// EnsureRoot creates the store root if it does not exist.
func (s *DiskStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create store root %s: %w", s.root, err)
	}
	return nil
}

// Root returns the store root path.
func (s *DiskStore) Root() string {
	return s.root
}

// PluginDir returns the directory a plugin installs into. Scoped names
// ("@team/fetch") nest under their scope directory.
func (s *DiskStore) PluginDir(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// PrepareDir removes any stale directory for name and recreates it empty.
func (s *DiskStore) PrepareDir(name string) (string, error) {
	dir := s.PluginDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// ReadManifest reads, schema-checks and decodes the manifest inside dir.
func (s *DiskStore) ReadManifest(dir string) (*entities.Manifest, error) {
	path := filepath.Join(dir, entities.ManifestFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is store-internal
	if err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	if err := s.validator.Validate(data); err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	var m entities.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	if err := m.Validate(); err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	return &m, nil
}

// WriteManifest writes the manifest inside dir.
func (s *DiskStore) WriteManifest(dir string, m *entities.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, entities.ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// RemovePluginDir deletes a plugin's directory tree. An empty scope
// directory left behind by a scoped name is pruned best-effort.
func (s *DiskStore) RemovePluginDir(name string) error {
	dir := s.PluginDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if strings.Contains(name, "/") {
		// Ignore failure: the scope directory may still hold siblings.
		_ = os.Remove(filepath.Dir(dir))
	}
	return nil
}

// Scan walks the store and builds a descriptor for every directory with a
// readable manifest, ordered by directory modification time so a rescanned
// inventory keeps roughly the original install order. Invalid packages are
// logged and skipped.
func (s *DiskStore) Scan() ([]*entities.PluginDescriptor, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store root %s: %w", s.root, err)
	}

	type candidate struct {
		dir     string
		modTime time.Time
	}
	var candidates []candidate

	collect := func(dir string) {
		info, err := os.Stat(dir)
		if err != nil {
			return
		}
		candidates = append(candidates, candidate{dir: dir, modTime: info.ModTime()})
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		if strings.HasPrefix(entry.Name(), "@") {
			// Scope directory: the packages are one level down.
			children, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, child := range children {
				if child.IsDir() {
					collect(filepath.Join(dir, child.Name()))
				}
			}
			continue
		}
		collect(dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	var descriptors []*entities.PluginDescriptor
	for _, c := range candidates {
		d, err := s.descriptorFromDir(c.dir)
		if err != nil {
			s.logger.Warn("skipping invalid package during store scan",
				"dir", c.dir, "error", err)
			continue
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func (s *DiskStore) descriptorFromDir(dir string) (*entities.PluginDescriptor, error) {
	manifest, err := s.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	name, err := values.NewPluginName(manifest.Name)
	if err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	version, err := manifest.SemVersion()
	if err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}
	entry := manifest.EntryRelPath(s.entryFile, s.entryExt)
	return &entities.PluginDescriptor{
		Name:         name,
		Version:      version,
		Location:     dir,
		EntryPath:    filepath.Join(dir, filepath.FromSlash(entry)),
		Dependencies: manifest.Dependencies,
	}, nil
}
