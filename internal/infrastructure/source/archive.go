package source

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize caps a single extracted file to guard against decompression
// bombs inside the locked critical section.
const maxFileSize = 512 << 20 // 512 MiB

// extractTarGz extracts a gzip'd tarball into destDir, discarding
// stripLevels leading path components. Published packages conventionally
// wrap their contents in one top-level directory, so installs extract with
// stripLevels=1. Entries that would escape destDir are rejected.
func extractTarGz(r io.Reader, destDir string, stripLevels int) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		name, ok := stripPath(header.Name, stripLevels)
		if !ok {
			continue
		}

		target, err := securePath(destDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			if err := writeFileFromTar(target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Symlinks and specials are not part of the package format.
			continue
		}
	}
}

// stripPath drops stripLevels leading components from an archive entry
// path. Entries shallower than the strip depth (the wrapping directory
// itself) are skipped.
func stripPath(name string, stripLevels int) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	parts := strings.Split(name, "/")
	if len(parts) <= stripLevels {
		return "", false
	}
	out := strings.Join(parts[stripLevels:], "/")
	if out == "" {
		return "", false
	}
	return out, true
}

// securePath joins name under destDir and rejects traversal outside it.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the destination directory", name)
	}
	return target, nil
}

func writeFileFromTar(target string, tr io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // target is traversal-checked
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	_, err = io.Copy(f, io.LimitReader(tr, maxFileSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
