package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/domain/entities"
)

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(ManagerOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default entry file")

	_, err = NewManager(ManagerOptions{
		Config: Config{
			DefaultEntryFile:    "main.wasm",
			IgnoredDependencies: []string{"["},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
}

func TestListReflectsInstallOrder(t *testing.T) {
	f := newFixture(t)
	f.registry.add("one", "one", "1.0.0", nil)
	f.registry.add("two", "two", "1.0.0", nil)

	assert.Empty(t, f.manager.List())

	for _, name := range []string{"one", "two"} {
		_, err := f.manager.Install(context.Background(), name, "")
		require.NoError(t, err)
	}

	listed := f.manager.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "one", listed[0].Name.String())
	assert.Equal(t, "two", listed[1].Name.String())
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	f.registry.add("fetch", "fetch", "1.2.0", nil)

	_, err := f.manager.Install(context.Background(), "fetch", "")
	require.NoError(t, err)

	d, err := f.manager.Info("fetch")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", d.VersionString())
	assert.Equal(t, f.store.PluginDir("fetch"), d.Location)

	_, err = f.manager.Info("ghost")
	var notInstalled *apperrors.NotInstalledError
	require.ErrorAs(t, err, &notInstalled)

	_, err = f.manager.Info("../escape")
	var nameErr *apperrors.InvalidNameError
	require.ErrorAs(t, err, &nameErr)
}

func TestRequireLoadsEntryPath(t *testing.T) {
	f := newFixture(t)
	f.registry.add("fetch", "fetch", "1.0.0", nil)

	_, err := f.manager.Install(context.Background(), "fetch", "")
	require.NoError(t, err)

	loaded, err := f.manager.Require(context.Background(), "fetch")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.store.PluginDir("fetch"), "main.wasm"), loaded)
	assert.Equal(t, []string{"fetch"}, f.loader.loaded)
}

func TestRequireSubPath(t *testing.T) {
	f := newFixture(t)
	f.registry.add("@team/fetch", "@team/fetch", "1.0.0", nil)

	_, err := f.manager.Install(context.Background(), "@team/fetch", "")
	require.NoError(t, err)

	loaded, err := f.manager.Require(context.Background(), "@team/fetch/lib/util")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join(f.store.PluginDir("@team/fetch"), filepath.FromSlash("lib/util")),
		loaded)
}

func TestRequireNotInstalled(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Require(context.Background(), "ghost")
	var notInstalled *apperrors.NotInstalledError
	require.ErrorAs(t, err, &notInstalled)

	_, err = f.manager.Require(context.Background(), "../escape")
	var nameErr *apperrors.InvalidNameError
	require.ErrorAs(t, err, &nameErr)
}

func TestQueryPackage(t *testing.T) {
	f := newFixture(t)
	f.registry.add("fetch", "fetch", "2.1.0", nil)
	f.github.add("acme/fetch#v1.2.0", "fetch", "1.2.0", nil)

	info, err := f.manager.QueryPackage(context.Background(), "fetch", "^2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", info.VersionString())

	info, err = f.manager.QueryPackage(context.Background(), "", "acme/fetch#v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", info.VersionString())
	assert.Equal(t, 1, f.github.resolveCalls["acme/fetch#v1.2.0"])

	_, err = f.manager.QueryPackage(context.Background(), "../escape", "")
	var nameErr *apperrors.InvalidNameError
	require.ErrorAs(t, err, &nameErr)

	assert.Zero(t, f.lock.acquires, "queries never lock the store")
}

func TestManagerSeededInventory(t *testing.T) {
	seeded := entities.NewInventory()
	f := newFixture(t, func(o *ManagerOptions) {
		o.Inventory = seeded
	})
	f.registry.add("fetch", "fetch", "1.0.0", nil)

	_, err := f.manager.Install(context.Background(), "fetch", "")
	require.NoError(t, err)

	assert.Equal(t, 1, seeded.Len(), "the manager mutates the inventory it was given")
}
