package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// NewTestLogger returns a logger that swallows output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventLog records side effects across stubs so tests can assert ordering.
type eventLog struct {
	entries []string
}

func (l *eventLog) add(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// fakeStore is an in-memory ports.PluginStore.
type fakeStore struct {
	events      *eventLog
	root        string
	manifests   map[string]*entities.Manifest
	files       map[string][]byte
	ensureRoots int
	prepared    []string
	removed     []string
}

func newFakeStore(events *eventLog) *fakeStore {
	return &fakeStore{
		events:    events,
		root:      "/store",
		manifests: make(map[string]*entities.Manifest),
		files:     make(map[string][]byte),
	}
}

func (s *fakeStore) EnsureRoot() error { s.ensureRoots++; return nil }

func (s *fakeStore) Root() string { return s.root }

func (s *fakeStore) PluginDir(name string) string { return path.Join(s.root, name) }

func (s *fakeStore) PrepareDir(name string) (string, error) {
	dir := s.PluginDir(name)
	delete(s.manifests, dir)
	delete(s.files, dir)
	s.prepared = append(s.prepared, name)
	return dir, nil
}

func (s *fakeStore) ReadManifest(dir string) (*entities.Manifest, error) {
	m, ok := s.manifests[dir]
	if !ok {
		return nil, apperrors.NewInvalidPackageError(dir, fmt.Errorf("manifest not found"))
	}
	return m, nil
}

func (s *fakeStore) WriteManifest(dir string, m *entities.Manifest) error {
	s.manifests[dir] = m
	return nil
}

func (s *fakeStore) RemovePluginDir(name string) error {
	dir := s.PluginDir(name)
	delete(s.manifests, dir)
	delete(s.files, dir)
	s.removed = append(s.removed, name)
	s.events.add("remove %s", name)
	return nil
}

func (s *fakeStore) Scan() ([]*entities.PluginDescriptor, error) { return nil, nil }

// stubPackage is one installable package a stubSource knows about.
type stubPackage struct {
	version  string
	manifest *entities.Manifest
}

// stubSource is a canned ports.PackageSource keyed by identifier.
type stubSource struct {
	events           *eventLog
	store            *fakeStore
	name             string
	packages         map[string]stubPackage
	resolveCalls     map[string]int
	materializeCalls map[string]int
	resolveErr       error
	materializeErr   error
}

func newStubSource(name string, events *eventLog, store *fakeStore) *stubSource {
	return &stubSource{
		events:           events,
		store:            store,
		name:             name,
		packages:         make(map[string]stubPackage),
		resolveCalls:     make(map[string]int),
		materializeCalls: make(map[string]int),
	}
}

func (s *stubSource) add(identifier, name, version string, deps map[string]string) {
	s.packages[identifier] = stubPackage{
		version:  version,
		manifest: &entities.Manifest{Name: name, Version: version, Dependencies: deps},
	}
}

func (s *stubSource) Resolve(_ context.Context, identifier, _ string) (entities.PackageInfo, error) {
	s.resolveCalls[identifier]++
	if s.resolveErr != nil {
		return entities.PackageInfo{}, s.resolveErr
	}
	p, ok := s.packages[identifier]
	if !ok {
		return entities.PackageInfo{}, apperrors.NewResolutionError(s.name, identifier, fmt.Errorf("unknown package"))
	}
	return entities.PackageInfo{
		Name:    values.MustNewPluginName(p.manifest.Name),
		Version: semver.MustParse(p.version),
		Origin:  entities.OriginRegistry,
	}, nil
}

func (s *stubSource) Materialize(_ context.Context, info entities.PackageInfo, destDir string) error {
	s.materializeCalls[info.Name.String()]++
	s.events.add("materialize %s@%s", info.Name, info.VersionString())
	if s.materializeErr != nil {
		return s.materializeErr
	}
	for _, p := range s.packages {
		if p.manifest.Name == info.Name.String() {
			return s.store.WriteManifest(destDir, p.manifest)
		}
	}
	return apperrors.NewMaterializeError(s.name, info.Name.String(), fmt.Errorf("unknown package"))
}

// stubInline mimics the inline-code source against the fake store.
type stubInline struct {
	store   *fakeStore
	events  *eventLog
	name    string
	code    []byte
	version string
}

func (s *stubInline) Resolve(context.Context, string, string) (entities.PackageInfo, error) {
	version := s.version
	if version == "" {
		version = values.UnpinnedVersion
	}
	return entities.PackageInfo{
		Name:    values.MustNewPluginName(s.name),
		Version: semver.MustParse(version),
		Origin:  entities.OriginCode,
	}, nil
}

func (s *stubInline) Materialize(_ context.Context, info entities.PackageInfo, destDir string) error {
	s.events.add("materialize %s@%s", info.Name, info.VersionString())
	s.store.files[destDir] = s.code
	return s.store.WriteManifest(destDir, &entities.Manifest{
		Name:    info.Name.String(),
		Version: info.VersionString(),
	})
}

// stubLock counts acquires and releases.
type stubLock struct {
	acquires   int
	releases   int
	acquireErr error
	releaseErr error
}

func (l *stubLock) Acquire(context.Context) (ports.LockHandle, error) {
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	l.acquires++
	return &stubLockHandle{lock: l}, nil
}

type stubLockHandle struct {
	lock *stubLock
}

func (h *stubLockHandle) Release() error {
	h.lock.releases++
	return h.lock.releaseErr
}

// stubLoader records loads and unloads. Load returns the inline code bytes
// when the fake store has them, otherwise the entry path it was given.
type stubLoader struct {
	events    *eventLog
	store     *fakeStore
	loaded    []string
	unloaded  []string
	unloadErr error
}

func (ld *stubLoader) Load(_ context.Context, d *entities.PluginDescriptor, entryPath string) (any, error) {
	ld.loaded = append(ld.loaded, d.Name.String())
	if code, ok := ld.store.files[d.Location]; ok {
		return code, nil
	}
	return entryPath, nil
}

func (ld *stubLoader) Unload(_ context.Context, d *entities.PluginDescriptor) error {
	if ld.unloadErr != nil {
		return ld.unloadErr
	}
	ld.unloaded = append(ld.unloaded, d.Name.String())
	ld.events.add("unload %s", d.Name)
	return nil
}

func (ld *stubLoader) ResolvePath(d *entities.PluginDescriptor, relPath string) (string, error) {
	return filepath.Join(d.Location, filepath.FromSlash(relPath)), nil
}

func (ld *stubLoader) SplitRequire(specifier string) (string, string) {
	segments := strings.Split(specifier, "/")
	nameSegments := 1
	if strings.HasPrefix(specifier, "@") && len(segments) > 1 {
		nameSegments = 2
	}
	if len(segments) <= nameSegments {
		return specifier, ""
	}
	return strings.Join(segments[:nameSegments], "/"), strings.Join(segments[nameSegments:], "/")
}

// stubProbe serves host-module manifests from a map.
type stubProbe struct {
	modules map[string]*entities.Manifest
	err     error
}

func (p *stubProbe) Manifest(name string) (*entities.Manifest, error) {
	if p.err != nil {
		return nil, p.err
	}
	m, ok := p.modules[name]
	if !ok {
		return nil, fmt.Errorf("host module %q not found", name)
	}
	return m, nil
}

// fixture bundles a manager wired to stubs.
type fixture struct {
	events   *eventLog
	store    *fakeStore
	lock     *stubLock
	registry *stubSource
	github   *stubSource
	local    *stubSource
	loader   *stubLoader
	manager  *Manager
}

func newFixture(t testingT, opts ...func(*ManagerOptions)) *fixture {
	events := &eventLog{}
	store := newFakeStore(events)
	f := &fixture{
		events:   events,
		store:    store,
		lock:     &stubLock{},
		registry: newStubSource("registry", events, store),
		github:   newStubSource("github", events, store),
		local:    newStubSource("path", events, store),
		loader:   &stubLoader{events: events, store: store},
	}

	managerOpts := ManagerOptions{
		Config: Config{
			DefaultEntryFile: "main.wasm",
			DefaultEntryExt:  ".wasm",
		},
		Store:    f.store,
		Lock:     f.lock,
		Registry: f.registry,
		Github:   f.github,
		Local:    f.local,
		Inline: func(name string, code []byte, version string) ports.PackageSource {
			return &stubInline{store: store, events: events, name: name, code: code, version: version}
		},
		Loader: f.loader,
		Logger: NewTestLogger(),
	}
	for _, opt := range opts {
		opt(&managerOpts)
	}

	manager, err := NewManager(managerOpts)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	f.manager = manager
	return f
}

// testingT is the subset of *testing.T the fixture needs.
type testingT interface {
	Fatalf(format string, args ...any)
}
