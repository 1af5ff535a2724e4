// Package buildpkg assembles a distributable integration tree: the
// integration sources plus their pinned Python dependencies, with the
// manifest stamped for self-update.
package buildpkg

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	cp "github.com/otiai10/copy"
	"github.com/rs/zerolog"

	"github.com/openfork/forksync/internal/manifest"
)

// pythonVersion is the interpreter ABI the integrations target.
const pythonVersion = "37"

// Options configures a build.
type Options struct {
	// SourceRoot is the fork checkout to build from.
	SourceRoot string

	// OutputDir receives the assembled tree. It is recreated from scratch
	// and must not live inside the integration source directory.
	OutputDir string

	// RepoFullName ("owner/repo") is used for the manifest update URL.
	RepoFullName string

	// BaseBranch is the branch the release file is served from.
	BaseBranch string

	// Platform overrides the pip platform tag derived from the build
	// host.
	Platform string
}

// Result reports what was built.
type Result struct {
	SourceDir string
	Manifest  *manifest.Manifest
}

// Builder assembles distributable trees.
type Builder struct {
	installer Installer
	logger    zerolog.Logger
}

// New creates a Builder using the given dependency installer.
func New(installer Installer, logger zerolog.Logger) *Builder {
	return &Builder{installer: installer, logger: logger}
}

// Build copies the integration code, installs pinned dependencies for the
// current platform and stamps the output manifest.
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	srcDir, err := manifest.Locate(opts.SourceRoot)
	if err != nil {
		return nil, err
	}

	outAbs, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	srcAbs, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, err
	}
	if rel, err := filepath.Rel(srcAbs, outAbs); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("output %s cannot be part of source %s", outAbs, srcAbs)
	}

	if err := os.RemoveAll(outAbs); err != nil {
		return nil, err
	}

	b.logger.Info().Str("src", srcAbs).Str("out", outAbs).Msg("copying integration code")
	if err := cp.Copy(srcAbs, outAbs, cp.Options{Skip: skipNonDistributable}); err != nil {
		return nil, fmt.Errorf("failed to copy integration code: %w", err)
	}

	if err := b.installDependencies(ctx, opts, outAbs); err != nil {
		return nil, err
	}

	if err := cleanArtifacts(outAbs); err != nil {
		return nil, err
	}

	m, err := b.stampManifest(srcAbs, outAbs, opts)
	if err != nil {
		return nil, err
	}

	return &Result{SourceDir: srcAbs, Manifest: m}, nil
}

// skipNonDistributable drops the release file, hidden files, tests and
// compiled Python artifacts from the copy.
func skipNonDistributable(srcinfo os.FileInfo, src, _ string) (bool, error) {
	name := filepath.Base(src)
	switch {
	case name == manifest.ReleaseFilename:
		return true, nil
	case strings.HasPrefix(name, "."):
		return true, nil
	case strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py"):
		return true, nil
	case strings.HasSuffix(name, "_test.py"):
		return true, nil
	case strings.HasSuffix(name, ".pyc"):
		return true, nil
	}
	_ = srcinfo
	return false, nil
}

// installDependencies pins the requirements and installs them into the
// output's dependencies directory for the current platform.
func (b *Builder) installDependencies(ctx context.Context, opts Options, outDir string) error {
	sourceRoot := opts.SourceRoot
	platform := opts.Platform
	if platform == "" {
		var err error
		platform, err = pipPlatform()
		if err != nil {
			return err
		}
	}

	reqPath, err := requirementsPath(sourceRoot)
	if err != nil {
		return err
	}

	localCfg, err := manifest.LoadSyncConfig(filepath.Join(sourceRoot, manifest.SyncConfigFilename))
	if err != nil {
		return err
	}
	target := filepath.Join(outDir, localCfg.DependenciesDir)

	pinned, err := os.CreateTemp("", "forksync-requirements-*.txt")
	if err != nil {
		return err
	}
	pinned.Close()
	defer os.Remove(pinned.Name())

	b.logger.Info().Str("requirements", reqPath).Msg("pinning dependencies")
	if err := b.installer.Compile(ctx, reqPath, pinned.Name()); err != nil {
		return err
	}

	b.logger.Info().Str("platform", platform).Str("target", target).Msg("installing dependencies")
	return b.installer.Install(ctx, InstallSpec{
		RequirementsPath: pinned.Name(),
		Platform:         platform,
		PythonVersion:    pythonVersion,
		TargetDir:        target,
	})
}

// pipPlatform maps the build host to the pip platform tag the launcher
// ships with.
func pipPlatform() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return "win32", nil
	case "darwin":
		return "macosx_10_13_x86_64", nil
	default:
		return "", fmt.Errorf("unsupported build platform %s", runtime.GOOS)
	}
}

// requirementsPath returns the integration's requirements file.
func requirementsPath(root string) (string, error) {
	for _, candidate := range []string{
		filepath.Join(root, "requirements", "app.txt"),
		filepath.Join(root, "requirements.txt"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no requirements file found under %s", root)
}

// cleanArtifacts strips pip metadata and stray tests from the output tree.
func cleanArtifacts(outDir string) error {
	return filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() && strings.HasSuffix(name, ".dist-info") {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py") {
			return os.Remove(path)
		}
		return nil
	})
}

// stampManifest writes the output manifest with the update URL installed
// integrations poll.
func (b *Builder) stampManifest(srcDir, outDir string, opts Options) (*manifest.Manifest, error) {
	m, err := manifest.Load(filepath.Join(srcDir, manifest.Filename))
	if err != nil {
		return nil, err
	}
	m.UpdateURL = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s",
		opts.RepoFullName, opts.BaseBranch, manifest.ReleaseFilename)

	if err := m.Save(filepath.Join(outDir, manifest.Filename)); err != nil {
		return nil, err
	}
	return m, nil
}
