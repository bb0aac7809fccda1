package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

const sourceNameCode = "code"

// inlineSource installs caller-supplied code bytes under a given name.
// Resolve is pure synthesis, no I/O; an empty version means the unpinned
// sentinel, so re-installs always replace.
type inlineSource struct {
	name      string
	code      []byte
	version   string
	entryFile string
}

var _ ports.PackageSource = (*inlineSource)(nil)

// NewInlineFactory returns the factory the manager uses to build one
// inline source per InstallFromCode call. entryFile names the file the
// code is written to.
func NewInlineFactory(entryFile string) ports.InlineSourceFactory {
	return func(name string, code []byte, version string) ports.PackageSource {
		return &inlineSource{
			name:      name,
			code:      code,
			version:   version,
			entryFile: entryFile,
		}
	}
}

func (s *inlineSource) Resolve(_ context.Context, _, _ string) (entities.PackageInfo, error) {
	name, err := values.NewPluginName(s.name)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameCode, s.name, err)
	}

	raw := s.version
	if raw == "" {
		raw = values.UnpinnedVersion
	}
	version, err := semver.NewVersion(raw)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameCode, s.name, err)
	}

	return entities.PackageInfo{
		Name:    name,
		Version: version,
		Origin:  entities.OriginCode,
	}, nil
}

// Materialize writes the code verbatim as the entry file, plus a minimal
// manifest carrying only name and version.
func (s *inlineSource) Materialize(_ context.Context, info entities.PackageInfo, destDir string) error {
	entryPath := filepath.Join(destDir, s.entryFile)
	if err := os.WriteFile(entryPath, s.code, 0o644); err != nil { //nolint:gosec // plugin code is not sensitive
		return apperrors.NewMaterializeError(sourceNameCode, info.Name.String(), err)
	}

	// The manifest carries only name and version; the entry file is found
	// through the default entry rule.
	manifest := &entities.Manifest{
		Name:    info.Name.String(),
		Version: info.VersionString(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return apperrors.NewMaterializeError(sourceNameCode, info.Name.String(), err)
	}
	data = append(data, '\n')
	manifestPath := filepath.Join(destDir, entities.ManifestFileName)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return apperrors.NewMaterializeError(sourceNameCode, info.Name.String(), err)
	}
	return nil
}
