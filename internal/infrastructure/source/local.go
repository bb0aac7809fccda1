package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

const sourceNamePath = "path"

// copyExclusions are directory names never copied into the store: a nested
// plugin store from a previous install, and VCS metadata.
var copyExclusions = map[string]struct{}{
	".mortise": {},
	".git":     {},
}

// LocalSource installs packages from a directory on the local filesystem.
// Resolve reads the manifest straight from the directory, no network.
type LocalSource struct {
	logger *slog.Logger
}

var _ ports.PackageSource = (*LocalSource)(nil)

// NewLocalSource creates a local-directory package source.
func NewLocalSource(logger *slog.Logger) *LocalSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSource{logger: logger}
}

// Resolve reads and validates the manifest at the given directory path.
// The absolute source path rides along in ArchiveURL for Materialize.
func (s *LocalSource) Resolve(_ context.Context, identifier, _ string) (entities.PackageInfo, error) {
	abs, err := filepath.Abs(identifier)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier, err)
	}

	data, err := os.ReadFile(filepath.Join(abs, entities.ManifestFileName)) //nolint:gosec // caller-supplied install path
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier, err)
	}

	var manifest entities.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier,
			fmt.Errorf("invalid manifest: %w", err))
	}
	if err := manifest.Validate(); err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier, err)
	}

	name, err := values.NewPluginName(manifest.Name)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier, err)
	}
	version, err := semver.NewVersion(manifest.Version)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNamePath, identifier, err)
	}

	return entities.PackageInfo{
		Name:       name,
		Version:    version,
		Origin:     entities.OriginPath,
		ArchiveURL: abs,
	}, nil
}

// Materialize copies the source directory tree into destDir, skipping the
// excluded directories.
func (s *LocalSource) Materialize(_ context.Context, info entities.PackageInfo, destDir string) error {
	if err := copyTree(info.ArchiveURL, destDir); err != nil {
		return apperrors.NewMaterializeError(sourceNamePath, info.Name.String(), err)
	}
	return nil
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if _, excluded := copyExclusions[d.Name()]; excluded {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dest, rel), 0o755)
		}
		if !d.Type().IsRegular() {
			// Symlinks and specials are not copied into the store.
			return nil
		}
		return copyFile(path, filepath.Join(dest, rel))
	})
}

func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // path walked from caller-supplied install dir
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // dest is store-internal
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
