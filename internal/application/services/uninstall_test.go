package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

func TestUninstallRemovesPlugin(t *testing.T) {
	f := newFixture(t)
	f.registry.add("fetch", "fetch", "1.0.0", nil)

	_, err := f.manager.Install(context.Background(), "fetch", "")
	require.NoError(t, err)

	require.NoError(t, f.manager.Uninstall(context.Background(), "fetch"))

	assert.Nil(t, f.manager.inventory.Find(values.MustNewPluginName("fetch")))
	assert.Equal(t, []string{"fetch"}, f.store.removed)
	assert.Equal(t, []string{"fetch"}, f.loader.unloaded)
}

func TestUninstallNotInstalledIsNoOp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Uninstall(context.Background(), "ghost"))

	assert.Empty(t, f.store.removed)
	assert.Equal(t, 1, f.lock.acquires, "the check itself still runs locked")
}

func TestUninstallInvalidName(t *testing.T) {
	f := newFixture(t)

	err := f.manager.Uninstall(context.Background(), "../escape")

	var nameErr *apperrors.InvalidNameError
	require.ErrorAs(t, err, &nameErr)
	assert.Zero(t, f.lock.acquires)
}

func TestUninstallCascadeUnloadsDependents(t *testing.T) {
	f := newFixture(t)
	f.registry.add("lib", "lib", "1.0.0", nil)
	f.registry.add("app", "app", "1.0.0", map[string]string{"lib": "^1.0.0"})
	f.registry.add("top", "top", "1.0.0", map[string]string{"app": "^1.0.0"})

	for _, name := range []string{"lib", "app", "top"} {
		_, err := f.manager.Install(context.Background(), name, "")
		require.NoError(t, err)
	}
	f.events.entries = nil

	require.NoError(t, f.manager.Uninstall(context.Background(), "lib"))

	// The whole dependent chain is unloaded, but only lib's files go.
	assert.Equal(t, []string{
		"unload lib",
		"unload app",
		"unload top",
		"remove lib",
	}, f.events.entries)
	assert.Nil(t, f.manager.inventory.Find(values.MustNewPluginName("lib")))
	assert.NotNil(t, f.manager.inventory.Find(values.MustNewPluginName("app")),
		"dependents keep their inventory entries")
	assert.NotNil(t, f.manager.inventory.Find(values.MustNewPluginName("top")))
	assert.Equal(t, []string{"lib"}, f.store.removed)
}

func TestUninstallCascadeHandlesCyclicDependents(t *testing.T) {
	f := newFixture(t)
	f.registry.add("a", "a", "1.0.0", map[string]string{"b": "^1.0.0"})
	f.registry.add("b", "b", "1.0.0", map[string]string{"a": "^1.0.0"})

	_, err := f.manager.Install(context.Background(), "a", "")
	require.NoError(t, err)

	require.NoError(t, f.manager.Uninstall(context.Background(), "a"))

	assert.ElementsMatch(t, []string{"a", "b"}, f.loader.unloaded)
	assert.Equal(t, []string{"a"}, f.store.removed)
}

func TestUninstallUnloadFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.registry.add("fetch", "fetch", "1.0.0", nil)

	_, err := f.manager.Install(context.Background(), "fetch", "")
	require.NoError(t, err)

	f.loader.unloadErr = errors.New("runtime wedged")
	err = f.manager.Uninstall(context.Background(), "fetch")

	require.Error(t, err)
	assert.NotNil(t, f.manager.inventory.Find(values.MustNewPluginName("fetch")),
		"a failed unload leaves the plugin installed")
	assert.Empty(t, f.store.removed)
	assert.Equal(t, 2, f.lock.releases, "lock released on failure too")
}

func TestUninstallAllReverseInstallOrder(t *testing.T) {
	f := newFixture(t)
	f.registry.add("lib", "lib", "1.0.0", nil)
	f.registry.add("app", "app", "1.0.0", map[string]string{"lib": "^1.0.0"})

	for _, name := range []string{"lib", "app"} {
		_, err := f.manager.Install(context.Background(), name, "")
		require.NoError(t, err)
	}
	f.events.entries = nil
	acquiresBefore := f.lock.acquires

	require.NoError(t, f.manager.UninstallAll(context.Background()))

	// Most recently installed goes first, so app never dangles on lib,
	// and the whole sweep shares one lock scope.
	assert.Equal(t, []string{
		"unload app",
		"remove app",
		"unload lib",
		"remove lib",
	}, f.events.entries)
	assert.Zero(t, f.manager.inventory.Len())
	assert.Equal(t, acquiresBefore+1, f.lock.acquires)
}

func TestUninstallAllEmptyStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.UninstallAll(context.Background()))
	assert.Equal(t, 1, f.lock.acquires)
}
