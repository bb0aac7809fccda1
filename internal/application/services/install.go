package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/mortise-dev/mortise/internal/application/dto"
	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// installRequest is one resolved dispatch decision: which source handles
// the identifier, and how idempotency is judged.
type installRequest struct {
	source      ports.PackageSource
	sourceName  string
	identifier  string
	versionSpec string
	// exact makes the reuse check compare the installed version against
	// the resolved version instead of interpreting versionSpec as a
	// range. Used by path, repository and inline installs, where the
	// spec is not a range.
	exact bool
	force bool
}

// Install installs a package by name. A versionSpec matching the
// repository-reference pattern (owner/repo[#ref]) dispatches to the VCS
// source with the spec as identifier; anything else goes to the registry,
// where an empty spec means the "latest" tag.
func (m *Manager) Install(ctx context.Context, name, versionSpec string) (dto.InstallReport, error) {
	if _, err := values.NewPluginName(name); err != nil {
		return dto.InstallReport{}, apperrors.NewInvalidNameError(name, err)
	}

	req := installRequest{
		source:      m.registry,
		sourceName:  "registry",
		identifier:  name,
		versionSpec: versionSpec,
	}
	if values.IsRepoRef(versionSpec) {
		req = installRequest{
			source:     m.github,
			sourceName: "github",
			identifier: versionSpec,
			exact:      true,
		}
	}

	return m.installGuarded(ctx, req)
}

// InstallFromPath installs a package from a local directory. The manifest
// is read directly from the directory, no network involved.
func (m *Manager) InstallFromPath(ctx context.Context, path string, opts dto.InstallOptions) (dto.InstallReport, error) {
	return m.installGuarded(ctx, installRequest{
		source:     m.local,
		sourceName: "path",
		identifier: path,
		exact:      true,
		force:      opts.Force,
	})
}

// InstallFromGithub installs a package from an owner/repo[#ref] reference.
func (m *Manager) InstallFromGithub(ctx context.Context, ref string) (dto.InstallReport, error) {
	if _, err := values.ParseRepoRef(ref); err != nil {
		return dto.InstallReport{}, apperrors.NewInvalidNameError(ref, err)
	}

	return m.installGuarded(ctx, installRequest{
		source:     m.github,
		sourceName: "github",
		identifier: ref,
		exact:      true,
	})
}

// InstallFromCode installs caller-supplied code under the given name.
// version must be empty or a valid semantic version; empty (and the
// sentinel 0.0.0) means unpinned, re-installing always replaces.
func (m *Manager) InstallFromCode(ctx context.Context, name string, code []byte, version string) (dto.InstallReport, error) {
	if _, err := values.NewPluginName(name); err != nil {
		return dto.InstallReport{}, apperrors.NewInvalidNameError(name, err)
	}
	if version != "" {
		if _, err := semver.NewVersion(version); err != nil {
			return dto.InstallReport{}, apperrors.NewInvalidVersionError(version, err)
		}
	}

	return m.installGuarded(ctx, installRequest{
		source:     m.inline(name, code, version),
		sourceName: "code",
		identifier: name,
		exact:      true,
	})
}

// installGuarded runs one install request inside the store lock.
func (m *Manager) installGuarded(ctx context.Context, req installRequest) (dto.InstallReport, error) {
	var report dto.InstallReport
	err := m.withStoreLock(ctx, func(ctx context.Context) error {
		d, outcome, err := m.installLockFree(ctx, req, make(map[string]bool))
		if err != nil {
			return err
		}
		report = dto.InstallReport{Descriptor: d, Outcome: outcome}
		return nil
	})
	return report, err
}

// installLockFree is the install decision tree. It runs with the store
// lock already held; dependency recursion re-enters here directly, never
// through the public API, so the lock is never re-acquired.
func (m *Manager) installLockFree(
	ctx context.Context,
	req installRequest,
	visited map[string]bool,
) (*entities.PluginDescriptor, values.InstallOutcome, error) {
	info, err := req.source.Resolve(ctx, req.identifier, req.versionSpec)
	if err != nil {
		return nil, 0, err
	}
	name := info.Name

	installed := m.inventory.Find(name)
	if !req.force && m.satisfiedByInstalled(installed, info, req) {
		m.logger.Debug("install satisfied by installed copy",
			"plugin", name.String(), "version", installed.VersionString())
		return installed, values.OutcomeReused, nil
	}

	outcome := values.OutcomeInstalled
	if installed != nil {
		m.logger.Info("replacing installed version",
			"plugin", name.String(),
			"installed", installed.VersionString(),
			"requested", info.VersionString())
		if err := m.uninstallLockFree(ctx, name); err != nil {
			return nil, 0, err
		}
		outcome = values.OutcomeReplaced
	}

	dir := m.store.PluginDir(name.String())
	if req.force || !m.alreadyDownloaded(dir, info) {
		dir, err = m.store.PrepareDir(name.String())
		if err != nil {
			return nil, 0, apperrors.NewMaterializeError(req.sourceName, name.String(), err)
		}
		if err := req.source.Materialize(ctx, info, dir); err != nil {
			return nil, 0, err
		}
		m.logger.Info("plugin materialized",
			"plugin", name.String(), "version", info.VersionString(), "source", req.sourceName)
	} else {
		m.logger.Debug("reusing downloaded package",
			"plugin", name.String(), "version", info.VersionString())
	}

	manifest, err := m.store.ReadManifest(dir)
	if err != nil {
		return nil, 0, err
	}
	descriptor, err := m.buildDescriptor(dir, manifest, info)
	if err != nil {
		return nil, 0, err
	}

	visited[name.String()] = true
	if err := m.installDependencies(ctx, descriptor, visited); err != nil {
		return nil, 0, err
	}

	if err := m.inventory.Add(descriptor); err != nil {
		return nil, 0, err
	}
	return descriptor, outcome, nil
}

// satisfiedByInstalled decides the idempotent no-op branch: the installed
// copy wins when it satisfies what was asked for. Unpinned installs
// (version 0.0.0) never satisfy anything.
func (m *Manager) satisfiedByInstalled(installed *entities.PluginDescriptor, info entities.PackageInfo, req installRequest) bool {
	if installed == nil || installed.Version == nil {
		return false
	}
	if installed.Version.String() == values.UnpinnedVersion {
		return false
	}
	if req.exact {
		return info.Version != nil && installed.Version.Equal(info.Version)
	}
	if req.versionSpec == "" {
		return true
	}
	if r, err := values.NewVersionRange(req.versionSpec); err == nil {
		return r.Satisfies(installed.Version)
	}
	// Spec is a tag: reuse only an exact match with what the tag
	// resolved to.
	return info.Version != nil && installed.Version.Equal(info.Version)
}

// alreadyDownloaded reports whether the store directory already holds
// exactly the resolved package, so materialization can be skipped.
func (m *Manager) alreadyDownloaded(dir string, info entities.PackageInfo) bool {
	manifest, err := m.store.ReadManifest(dir)
	if err != nil {
		return false
	}
	return manifest.Matches(info.Name.String(), info.Version)
}

// buildDescriptor turns an on-disk manifest into the installed descriptor,
// enforcing that the manifest matches the resolved identity.
func (m *Manager) buildDescriptor(dir string, manifest *entities.Manifest, info entities.PackageInfo) (*entities.PluginDescriptor, error) {
	if !manifest.Matches(info.Name.String(), info.Version) {
		return nil, apperrors.NewInvalidPackageError(dir, fmt.Errorf(
			"manifest %s@%s does not match resolved package %s@%s",
			manifest.Name, manifest.Version, info.Name, info.VersionString()))
	}

	entry := manifest.EntryRelPath(m.cfg.DefaultEntryFile, m.cfg.DefaultEntryExt)

	version, err := manifest.SemVersion()
	if err != nil {
		return nil, apperrors.NewInvalidPackageError(dir, err)
	}

	return &entities.PluginDescriptor{
		Name:         info.Name,
		Version:      version,
		Location:     dir,
		EntryPath:    filepath.Join(dir, filepath.FromSlash(entry)),
		Dependencies: manifest.Dependencies,
	}, nil
}
