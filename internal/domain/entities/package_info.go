package entities

import (
	"github.com/Masterminds/semver/v3"
	"github.com/mortise-dev/mortise/internal/domain/values"
)

// PackageOrigin tags which source resolved a package.
type PackageOrigin string

const (
	OriginRegistry PackageOrigin = "registry"
	OriginGithub   PackageOrigin = "github"
	OriginPath     PackageOrigin = "path"
	OriginCode     PackageOrigin = "code"
)

// PackageInfo is a source-reported package identity: resolved, not yet
// materialized. ArchiveURL is distribution metadata for sources that
// download an archive; path and inline sources leave it empty.
type PackageInfo struct {
	Name       values.PluginName
	Version    *semver.Version
	Origin     PackageOrigin
	ArchiveURL string
}

// VersionString returns the version, or "" for a nil version.
func (i PackageInfo) VersionString() string {
	if i.Version == nil {
		return ""
	}
	return i.Version.String()
}
