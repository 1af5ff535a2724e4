package buildpkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfork/forksync/internal/manifest"
)

// fakeInstaller records installer calls and plants fake pip output.
type fakeInstaller struct {
	compiled  []string
	installed []InstallSpec
}

func (f *fakeInstaller) Compile(_ context.Context, requirementsPath, outputPath string) error {
	f.compiled = append(f.compiled, requirementsPath)
	return os.WriteFile(outputPath, []byte("aiohttp==3.8.0\n"), 0644)
}

func (f *fakeInstaller) Install(_ context.Context, spec InstallSpec) error {
	f.installed = append(f.installed, spec)
	// Simulate pip dropping package metadata into the target.
	distInfo := filepath.Join(spec.TargetDir, "aiohttp-3.8.0.dist-info")
	if err := os.MkdirAll(distInfo, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(distInfo, "METADATA"), []byte("x"), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(spec.TargetDir, "aiohttp.py"), []byte("# dep"), 0644)
}

// writeSourceTree lays out a minimal fork checkout.
func writeSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0755))

	files := map[string]string{
		"src/manifest.json":        `{"version": "1.2.0", "platform": "demo"}`,
		"src/plugin.py":            "print('hi')",
		"src/test_plugin.py":       "def test(): pass",
		"src/.hidden":              "secret",
		"src/current_version.json": `{"tag_name": "1.1.0"}`,
		"requirements.txt":         "aiohttp\n",
		"README.md":                "readme",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestBuild(t *testing.T) {
	root := writeSourceTree(t)
	out := filepath.Join(t.TempDir(), "dist")

	installer := &fakeInstaller{}
	result, err := New(installer, zerolog.Nop()).Build(context.Background(), Options{
		SourceRoot:   root,
		OutputDir:    out,
		RepoFullName: "forkowner/integration-demo",
		BaseBranch:   "master",
		Platform:     "win32",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "src"), result.SourceDir)

	// Integration code copied, excluded files dropped.
	assert.FileExists(t, filepath.Join(out, "plugin.py"))
	assert.NoFileExists(t, filepath.Join(out, "test_plugin.py"))
	assert.NoFileExists(t, filepath.Join(out, ".hidden"))
	assert.NoFileExists(t, filepath.Join(out, "current_version.json"))

	// Dependencies installed into the default dir, metadata stripped.
	require.Len(t, installer.installed, 1)
	assert.Equal(t, "win32", installer.installed[0].Platform)
	assert.Equal(t, "37", installer.installed[0].PythonVersion)
	assert.FileExists(t, filepath.Join(out, "aiohttp.py"))
	assert.NoDirExists(t, filepath.Join(out, "aiohttp-3.8.0.dist-info"))

	// Manifest stamped with the update URL.
	m, err := manifest.Load(filepath.Join(out, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t,
		"https://raw.githubusercontent.com/forkowner/integration-demo/master/current_version.json",
		m.UpdateURL)
}

func TestBuildRejectsOutputInsideSource(t *testing.T) {
	root := writeSourceTree(t)

	_, err := New(&fakeInstaller{}, zerolog.Nop()).Build(context.Background(), Options{
		SourceRoot: root,
		OutputDir:  filepath.Join(root, "src", "dist"),
		Platform:   "win32",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "cannot be part of source")
}

func TestBuildUsesDependenciesDirFromSyncConfig(t *testing.T) {
	root := writeSourceTree(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, manifest.SyncConfigFilename),
		[]byte(`{"dependencies_dir": "modules"}`), 0644))
	out := filepath.Join(t.TempDir(), "dist")

	installer := &fakeInstaller{}
	_, err := New(installer, zerolog.Nop()).Build(context.Background(), Options{
		SourceRoot: root,
		OutputDir:  out,
		Platform:   "win32",
	})
	require.NoError(t, err)

	require.Len(t, installer.installed, 1)
	assert.Equal(t, filepath.Join(out, "modules"), installer.installed[0].TargetDir)
}

func TestBuildFailsWithoutRequirements(t *testing.T) {
	root := writeSourceTree(t)
	require.NoError(t, os.Remove(filepath.Join(root, "requirements.txt")))

	_, err := New(&fakeInstaller{}, zerolog.Nop()).Build(context.Background(), Options{
		SourceRoot: root,
		OutputDir:  filepath.Join(t.TempDir(), "dist"),
		Platform:   "win32",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "no requirements file")
}
