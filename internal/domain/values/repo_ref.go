package values

import (
	"fmt"
	"regexp"
)

// repoRefPattern matches "owner/repo" with an optional "#ref" suffix.
// The ref may be a branch, tag or commit hash.
var repoRefPattern = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)(?:#([\w./-]+))?$`)

// DefaultRepoRef is the ref used when a repository reference omits one.
const DefaultRepoRef = "master"

// RepoRef identifies a package inside a version-control repository,
// written as "owner/repo" or "owner/repo#ref".
type RepoRef struct {
	owner string
	repo  string
	ref   string
}

// ParseRepoRef parses a repository reference.
func ParseRepoRef(s string) (RepoRef, error) {
	m := repoRefPattern.FindStringSubmatch(s)
	if m == nil {
		return RepoRef{}, fmt.Errorf("invalid repository reference %q (want owner/repo[#ref])", s)
	}
	ref := m[3]
	if ref == "" {
		ref = DefaultRepoRef
	}
	return RepoRef{owner: m[1], repo: m[2], ref: ref}, nil
}

// IsRepoRef reports whether s looks like a repository reference.
// Used to dispatch install specs between the registry and VCS sources.
func IsRepoRef(s string) bool {
	return repoRefPattern.MatchString(s)
}

// Owner returns the repository owner.
func (r RepoRef) Owner() string { return r.owner }

// Repo returns the repository name.
func (r RepoRef) Repo() string { return r.repo }

// Ref returns the branch, tag or commit, never empty.
func (r RepoRef) Ref() string { return r.ref }

// String returns the canonical owner/repo#ref form.
func (r RepoRef) String() string {
	return fmt.Sprintf("%s/%s#%s", r.owner, r.repo, r.ref)
}
