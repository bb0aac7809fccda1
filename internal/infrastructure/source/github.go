package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Masterminds/semver/v3"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

const sourceNameGithub = "github"

const (
	defaultRawBase     = "https://raw.githubusercontent.com"
	defaultArchiveBase = "https://codeload.github.com"
)

// GithubOptions configure a GithubSource.
type GithubOptions struct {
	// RawBase serves raw repository files; overridable for tests.
	RawBase string
	// ArchiveBase serves repository tarballs; overridable for tests.
	ArchiveBase string
	Client      *http.Client
	Logger      *slog.Logger
}

// GithubSource resolves owner/repo[#ref] references. The manifest is
// fetched straight from the raw file endpoint, no clone; materialization
// downloads the repository tarball, which wraps everything in a single
// top-level directory exactly like a registry artifact.
type GithubSource struct {
	rawBase     string
	archiveBase string
	fetch       *fetcher
	logger      *slog.Logger
}

var _ ports.PackageSource = (*GithubSource)(nil)

// NewGithubSource creates a GitHub-backed package source.
func NewGithubSource(opts GithubOptions) *GithubSource {
	rawBase := opts.RawBase
	if rawBase == "" {
		rawBase = defaultRawBase
	}
	archiveBase := opts.ArchiveBase
	if archiveBase == "" {
		archiveBase = defaultArchiveBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GithubSource{
		rawBase:     rawBase,
		archiveBase: archiveBase,
		fetch:       newFetcher(opts.Client, ""),
		logger:      logger,
	}
}

// Resolve fetches the manifest at the referenced ref and reports the
// package identity it declares. versionSpec is unused: a repository
// reference already pins its version through the ref.
func (s *GithubSource) Resolve(ctx context.Context, identifier, _ string) (entities.PackageInfo, error) {
	ref, err := values.ParseRepoRef(identifier)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}

	manifestURL := fmt.Sprintf("%s/%s/%s/%s/%s",
		s.rawBase, ref.Owner(), ref.Repo(), ref.Ref(), entities.ManifestFileName)
	body, err := s.fetch.get(ctx, manifestURL)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}

	var manifest entities.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier,
			fmt.Errorf("invalid manifest at %s: %w", manifestURL, err))
	}
	if err := manifest.Validate(); err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}

	name, err := values.NewPluginName(manifest.Name)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}
	version, err := semver.NewVersion(manifest.Version)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameGithub, identifier, err)
	}

	s.logger.Debug("repository package resolved",
		"reference", ref.String(), "package", name.String(), "version", version.String())

	return entities.PackageInfo{
		Name:    name,
		Version: version,
		Origin:  entities.OriginGithub,
		ArchiveURL: fmt.Sprintf("%s/%s/%s/tar.gz/%s",
			s.archiveBase, ref.Owner(), ref.Repo(), ref.Ref()),
	}, nil
}

// Materialize downloads the repository tarball and extracts it with the
// same one-level unwrap as a registry artifact.
func (s *GithubSource) Materialize(ctx context.Context, info entities.PackageInfo, destDir string) error {
	body, err := s.fetch.get(ctx, info.ArchiveURL)
	if err != nil {
		return apperrors.NewMaterializeError(sourceNameGithub, info.Name.String(), err)
	}
	defer func() { _ = body.Close() }()

	if err := extractTarGz(body, destDir, 1); err != nil {
		return apperrors.NewMaterializeError(sourceNameGithub, info.Name.String(), err)
	}
	return nil
}
