package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
	"github.com/mortise-dev/mortise/internal/application/ports"
	"github.com/mortise-dev/mortise/internal/domain/entities"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

const sourceNameRegistry = "registry"

// DefaultTag is the dist-tag used when an install names no version.
const DefaultTag = "latest"

// packument is the registry's per-package metadata document.
type packument struct {
	Name     string                      `json:"name"`
	DistTags map[string]string           `json:"dist-tags"`
	Versions map[string]packumentVersion `json:"versions"`
}

type packumentVersion struct {
	Version string `json:"version"`
	Dist    struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// RegistryOptions configure a RegistrySource.
type RegistryOptions struct {
	// Endpoint is the registry base URL, without a trailing slash.
	Endpoint string
	// Token, when set, is sent as a bearer token on every request.
	Token  string
	Client *http.Client
	Logger *slog.Logger
}

// RegistrySource resolves bare package names against a remote package index
// and materializes single-tarball artifacts.
type RegistrySource struct {
	endpoint string
	fetch    *fetcher
	logger   *slog.Logger
}

var _ ports.PackageSource = (*RegistrySource)(nil)

// NewRegistrySource creates a registry-backed package source.
func NewRegistrySource(opts RegistryOptions) *RegistrySource {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrySource{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		fetch:    newFetcher(opts.Client, opts.Token),
		logger:   logger,
	}
}

// Resolve queries the package index for identifier and picks the concrete
// version matching versionSpec: an exact version, a dist-tag, or the highest
// version satisfying a range. An empty spec means the "latest" tag.
func (s *RegistrySource) Resolve(ctx context.Context, identifier, versionSpec string) (entities.PackageInfo, error) {
	name, err := values.NewPluginName(identifier)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameRegistry, identifier, err)
	}

	var doc packument
	if err := s.fetch.getJSON(ctx, s.packageURL(name.String()), &doc); err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameRegistry, identifier, err)
	}

	picked, err := s.pickVersion(&doc, versionSpec)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameRegistry, identifier, err)
	}

	version, err := semver.NewVersion(picked.Version)
	if err != nil {
		return entities.PackageInfo{}, apperrors.NewResolutionError(sourceNameRegistry, identifier,
			fmt.Errorf("registry reported invalid version %q: %w", picked.Version, err))
	}

	s.logger.Debug("registry package resolved",
		"package", name.String(), "spec", versionSpec, "version", version.String())

	return entities.PackageInfo{
		Name:       name,
		Version:    version,
		Origin:     entities.OriginRegistry,
		ArchiveURL: picked.Dist.Tarball,
	}, nil
}

// Materialize downloads the resolved tarball and extracts it into destDir,
// discarding the single wrapping directory publishers put at the top.
func (s *RegistrySource) Materialize(ctx context.Context, info entities.PackageInfo, destDir string) error {
	if info.ArchiveURL == "" {
		return apperrors.NewMaterializeError(sourceNameRegistry, info.Name.String(),
			fmt.Errorf("resolved package carries no tarball URL"))
	}

	body, err := s.fetch.get(ctx, info.ArchiveURL)
	if err != nil {
		return apperrors.NewMaterializeError(sourceNameRegistry, info.Name.String(), err)
	}
	defer func() { _ = body.Close() }()

	if err := extractTarGz(body, destDir, 1); err != nil {
		return apperrors.NewMaterializeError(sourceNameRegistry, info.Name.String(), err)
	}
	return nil
}

// packageURL builds the packument URL. Scoped names keep their @ but encode
// the slash, per registry convention.
func (s *RegistrySource) packageURL(name string) string {
	escaped := url.PathEscape(name)
	escaped = strings.ReplaceAll(escaped, "%40", "@")
	return s.endpoint + "/" + escaped
}

func (s *RegistrySource) pickVersion(doc *packument, versionSpec string) (packumentVersion, error) {
	spec := strings.TrimSpace(versionSpec)
	if spec == "" {
		spec = DefaultTag
	}

	// Exact published version.
	if v, ok := doc.Versions[spec]; ok {
		return v, nil
	}

	// Dist-tag ("latest", "beta", ...).
	if concrete, ok := doc.DistTags[spec]; ok {
		v, ok := doc.Versions[concrete]
		if !ok {
			return packumentVersion{}, fmt.Errorf("tag %q points at unpublished version %q", spec, concrete)
		}
		return v, nil
	}

	// Version range: highest published version that satisfies it.
	vrange, err := values.NewVersionRange(spec)
	if err != nil {
		return packumentVersion{}, fmt.Errorf("no version or tag %q, and it is not a range: %w", spec, err)
	}
	available := make([]*semver.Version, 0, len(doc.Versions))
	for raw := range doc.Versions {
		if v, err := semver.NewVersion(raw); err == nil {
			available = append(available, v)
		}
	}
	sort.Sort(semver.Collection(available))

	best, err := vrange.BestMatch(available)
	if err != nil {
		return packumentVersion{}, fmt.Errorf("package %q: %w", doc.Name, err)
	}
	picked, ok := doc.Versions[best.Original()]
	if !ok {
		picked, ok = doc.Versions[best.String()]
	}
	if !ok {
		return packumentVersion{}, fmt.Errorf("matched version %q missing from packument", best)
	}
	return picked, nil
}
