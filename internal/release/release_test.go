package release

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfork/forksync/internal/hosting"
)

func writeBuildDir(t *testing.T, dirs ...string) string {
	t.Helper()
	buildDir := t.TempDir()
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(buildDir, dir, "sub"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(buildDir, dir, "plugin.py"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(buildDir, dir, "sub", "dep.py"), []byte("y"), 0644))
	}
	return buildDir
}

func TestZipAssets(t *testing.T) {
	buildDir := writeBuildDir(t, "Windows-build", "macos_output")
	assetsDir := filepath.Join(t.TempDir(), "assets")

	archives, err := ZipAssets(buildDir, assetsDir)
	require.NoError(t, err)

	sort.Strings(archives)
	assert.Equal(t, []string{
		filepath.Join(assetsDir, "macos.zip"),
		filepath.Join(assetsDir, "windows.zip"),
	}, archives)

	r, err := zip.OpenReader(filepath.Join(assetsDir, "windows.zip"))
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"plugin.py", "sub/dep.py"}, names)
}

func TestZipAssetsMissingPlatform(t *testing.T) {
	buildDir := writeBuildDir(t, "Windows-build")

	_, err := ZipAssets(buildDir, filepath.Join(t.TempDir(), "assets"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "no asset directory for macos")
}

func TestZipAssetsEmptyBuildDir(t *testing.T) {
	_, err := ZipAssets(t.TempDir(), filepath.Join(t.TempDir(), "assets"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "no assets found")
}

func TestPublish(t *testing.T) {
	host := hosting.NewMock()
	pub := NewPublisher(host, zerolog.Nop())

	err := pub.Publish(context.Background(), "1.2.0", "master",
		[]string{"/assets/windows.zip", "/assets/macos.zip"})
	require.NoError(t, err)

	require.Len(t, host.CreatedReleases, 1)
	rel := host.CreatedReleases[0]
	assert.Equal(t, "1.2.0", rel.TagName)
	assert.Equal(t, "Release version 1.2.0", rel.Name)
	assert.False(t, rel.Draft)

	uploaded := host.UploadedAssets[rel.ID]
	sort.Strings(uploaded)
	assert.Equal(t, []string{"/assets/macos.zip", "/assets/windows.zip"}, uploaded)
}

func TestPublishDeletesDraftOnUploadFailure(t *testing.T) {
	host := hosting.NewMock()
	host.UploadErr = errors.New("upload refused")
	pub := NewPublisher(host, zerolog.Nop())

	err := pub.Publish(context.Background(), "1.2.0", "master", []string{"/assets/windows.zip"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "upload refused")
	assert.Empty(t, host.CreatedReleases)
}

func TestPublishDeletesDraftOnPublishFailure(t *testing.T) {
	host := hosting.NewMock()
	host.PublishErr = errors.New("api down")
	pub := NewPublisher(host, zerolog.Nop())

	err := pub.Publish(context.Background(), "1.2.0", "master", []string{"/assets/windows.zip"})
	require.Error(t, err)
	assert.Empty(t, host.CreatedReleases)
}
