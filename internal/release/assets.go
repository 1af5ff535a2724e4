package release

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// platformNames are the asset bundles a release ships. Build output
// directories are matched by case-insensitive prefix.
var platformNames = []string{"windows", "macos"}

// ZipAssets bundles the per-platform directories under buildDir into
// <assetsDir>/<platform>.zip archives. assetsDir is recreated from scratch.
func ZipAssets(buildDir, assetsDir string) ([]string, error) {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no assets found in %s", buildDir)
	}

	if err := os.RemoveAll(assetsDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return nil, err
	}

	var archives []string
	for _, platform := range platformNames {
		src := ""
		for _, entry := range entries {
			if entry.IsDir() && strings.HasPrefix(strings.ToLower(entry.Name()), platform) {
				src = filepath.Join(buildDir, entry.Name())
				break
			}
		}
		if src == "" {
			return nil, fmt.Errorf("no asset directory for %s in %s", platform, buildDir)
		}

		archive := filepath.Join(assetsDir, platform+".zip")
		if err := zipDir(src, archive); err != nil {
			return nil, fmt.Errorf("failed to zip %s: %w", src, err)
		}
		archives = append(archives, archive)
	}
	return archives, nil
}

// zipDir writes dir's contents into a zip archive at dest, paths relative
// to dir.
func zipDir(dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
