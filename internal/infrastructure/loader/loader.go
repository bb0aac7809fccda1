// Package loader runs installed plugins on a wazero WASM runtime: pure Go,
// no CGO, sandboxed by construction.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
)

// WazeroLoader loads plugin entry files as WASM modules. One runtime hosts
// every loaded module; Load returns the instantiated api.Module, Unload
// closes it.
type WazeroLoader struct {
	runtime wazero.Runtime
	modules map[string]api.Module
	logger  *slog.Logger
}

var _ ports.PluginLoader = (*WazeroLoader)(nil)

// NewWazeroLoader creates the runtime and instantiates WASI so plugins can
// use basic system calls (clock, random, stdio).
func NewWazeroLoader(ctx context.Context, logger *slog.Logger) (*WazeroLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	return &WazeroLoader{
		runtime: r,
		modules: make(map[string]api.Module),
		logger:  logger,
	}, nil
}

// Load compiles and instantiates the plugin's file at entryPath. A plugin
// already loaded returns its live module unchanged.
func (l *WazeroLoader) Load(ctx context.Context, d *entities.PluginDescriptor, entryPath string) (any, error) {
	name := d.Name.String()
	if mod, ok := l.modules[name]; ok {
		return mod, nil
	}

	wasmBytes, err := os.ReadFile(entryPath) //nolint:gosec // entry path is store-internal
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin %s: %w", name, err)
	}

	compiled, err := l.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plugin %s: %w", name, err)
	}

	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)
	mod, err := l.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugin %s: %w", name, err)
	}

	l.modules[name] = mod
	l.logger.Debug("plugin loaded", "plugin", name, "entry", entryPath)
	return mod, nil
}

// Unload closes the plugin's module. Unloading a plugin that was never
// loaded is a no-op.
func (l *WazeroLoader) Unload(ctx context.Context, d *entities.PluginDescriptor) error {
	name := d.Name.String()
	mod, ok := l.modules[name]
	if !ok {
		return nil
	}
	delete(l.modules, name)
	if err := mod.Close(ctx); err != nil {
		return fmt.Errorf("failed to close plugin %s: %w", name, err)
	}
	l.logger.Debug("plugin unloaded", "plugin", name)
	return nil
}

// ResolvePath resolves relPath inside the plugin's directory, rejecting
// anything that escapes it.
func (l *WazeroLoader) ResolvePath(d *entities.PluginDescriptor, relPath string) (string, error) {
	return resolveWithin(d.Location, relPath)
}

// SplitRequire splits a require specifier into plugin name and sub path.
// Scoped names keep their first two segments: "@team/fetch/lib/util" is
// plugin "@team/fetch" with sub path "lib/util".
func (l *WazeroLoader) SplitRequire(specifier string) (string, string) {
	return SplitRequire(specifier)
}

// Close shuts the runtime down, closing every loaded module.
func (l *WazeroLoader) Close(ctx context.Context) error {
	l.modules = make(map[string]api.Module)
	return l.runtime.Close(ctx)
}

// resolveWithin joins rel under base and rejects traversal outside it.
func resolveWithin(base, rel string) (string, error) {
	base = filepath.Clean(base)
	target := filepath.Join(base, filepath.FromSlash(rel))
	relToBase, err := filepath.Rel(base, target)
	if err != nil || relToBase == ".." || strings.HasPrefix(relToBase, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the plugin directory", rel)
	}
	return target, nil
}

// SplitRequire is the specifier-splitting rule, exported for reuse.
func SplitRequire(specifier string) (string, string) {
	segments := strings.Split(specifier, "/")
	nameSegments := 1
	if strings.HasPrefix(specifier, "@") && len(segments) > 1 {
		nameSegments = 2
	}
	if len(segments) <= nameSegments {
		return specifier, ""
	}
	return strings.Join(segments[:nameSegments], "/"),
		strings.Join(segments[nameSegments:], "/")
}
