package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mortise-dev/mortise/internal/application/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRegistry serves a packument for one package plus its tarballs.
type fakeRegistry struct {
	t        *testing.T
	name     string
	latest   string
	versions []string
	server   *httptest.Server
	requests []string
}

func newFakeRegistry(t *testing.T, name, latest string, versions ...string) *fakeRegistry {
	t.Helper()
	r := &fakeRegistry{t: t, name: name, latest: latest, versions: versions}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.server.Close)
	return r
}

func (r *fakeRegistry) handle(w http.ResponseWriter, req *http.Request) {
	r.requests = append(r.requests, req.URL.Path)

	if req.URL.Path == "/"+r.name {
		versions := ""
		for i, v := range r.versions {
			if i > 0 {
				versions += ","
			}
			versions += fmt.Sprintf(`%q:{"version":%q,"dist":{"tarball":"%s/tarballs/%s-%s.tgz"}}`,
				v, v, r.server.URL, r.name, v)
		}
		fmt.Fprintf(w, `{"name":%q,"dist-tags":{"latest":%q},"versions":{%s}}`,
			r.name, r.latest, versions)
		return
	}

	prefix := "/tarballs/" + r.name + "-"
	if strings.HasPrefix(req.URL.Path, prefix) && strings.HasSuffix(req.URL.Path, ".tgz") {
		version := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, prefix), ".tgz")
		archive := makeTarGz(r.t, map[string]string{
			"package/plugin.json": fmt.Sprintf(`{"name":%q,"version":%q}`, r.name, version),
			"package/main.wasm":   "wasm " + version,
		})
		_, _ = w.Write(archive)
		return
	}

	http.NotFound(w, req)
}

func (r *fakeRegistry) source() *RegistrySource {
	return NewRegistrySource(RegistryOptions{
		Endpoint: r.server.URL,
		Client:   r.server.Client(),
		Logger:   testLogger(),
	})
}

func TestRegistrySource_Resolve(t *testing.T) {
	reg := newFakeRegistry(t, "fetch", "2.0.0", "1.0.0", "1.5.0", "2.0.0")
	src := reg.source()
	ctx := context.Background()

	t.Run("empty spec uses the latest tag", func(t *testing.T) {
		info, err := src.Resolve(ctx, "fetch", "")
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", info.VersionString())
	})

	t.Run("exact version", func(t *testing.T) {
		info, err := src.Resolve(ctx, "fetch", "1.0.0")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", info.VersionString())
	})

	t.Run("range picks the highest satisfying version", func(t *testing.T) {
		info, err := src.Resolve(ctx, "fetch", "^1.0.0")
		require.NoError(t, err)
		assert.Equal(t, "1.5.0", info.VersionString())
	})

	t.Run("unsatisfiable range fails", func(t *testing.T) {
		_, err := src.Resolve(ctx, "fetch", "^9.0.0")
		var resErr *apperrors.ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("unknown package fails", func(t *testing.T) {
		_, err := src.Resolve(ctx, "no-such-package", "")
		var resErr *apperrors.ResolutionError
		require.ErrorAs(t, err, &resErr)
	})
}

func TestRegistrySource_Materialize(t *testing.T) {
	reg := newFakeRegistry(t, "fetch", "1.0.0", "1.0.0")
	src := reg.source()
	ctx := context.Background()

	info, err := src.Resolve(ctx, "fetch", "")
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, src.Materialize(ctx, info, dest))

	// The wrapping "package/" level is discarded.
	assert.FileExists(t, filepath.Join(dest, "plugin.json"))
	content, err := os.ReadFile(filepath.Join(dest, "main.wasm"))
	require.NoError(t, err)
	assert.Equal(t, "wasm 1.0.0", string(content))
}

func TestRegistrySource_Materialize_MissingTarball(t *testing.T) {
	reg := newFakeRegistry(t, "fetch", "1.0.0", "1.0.0")
	src := reg.source()
	ctx := context.Background()

	info, err := src.Resolve(ctx, "fetch", "")
	require.NoError(t, err)
	info.ArchiveURL = reg.server.URL + "/tarballs/gone.tgz"

	err = src.Materialize(ctx, info, t.TempDir())
	var matErr *apperrors.MaterializeError
	require.ErrorAs(t, err, &matErr)
}

func TestRegistrySource_BearerToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		auth = req.Header.Get("Authorization")
		fmt.Fprint(w, `{"name":"fetch","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"version":"1.0.0","dist":{"tarball":"unused"}}}}`)
	}))
	defer server.Close()

	src := NewRegistrySource(RegistryOptions{
		Endpoint: server.URL,
		Token:    "sekret",
		Client:   server.Client(),
		Logger:   testLogger(),
	})
	_, err := src.Resolve(context.Background(), "fetch", "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekret", auth)
}

func TestRegistrySource_ScopedNameURL(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.EscapedPath()
		http.NotFound(w, req)
	}))
	defer server.Close()

	src := NewRegistrySource(RegistryOptions{
		Endpoint: server.URL,
		Client:   server.Client(),
		Logger:   testLogger(),
	})
	_, _ = src.Resolve(context.Background(), "@team/fetch", "")
	assert.Equal(t, "/@team%2Ffetch", path)
}
