package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{
		"version": "1.2.0",
		"platform": "demo",
		"guid": "abc-123",
		"authors": ["someone"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "demo", m.Platform)
	assert.Empty(t, m.UpdateURL)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"version": `))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to parse manifest")
}

func TestSaveRoundTripsUnknownFields(t *testing.T) {
	m, err := Parse([]byte(`{"version": "1.2.0", "platform": "demo", "guid": "abc-123"}`))
	require.NoError(t, err)

	m.UpdateURL = "https://example.com/current_version.json"
	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"guid"`)
	assert.Contains(t, string(data), `"update_url"`)

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", back.Version)
	assert.Equal(t, "https://example.com/current_version.json", back.UpdateURL)
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "plugin")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755))

	// A manifest under .git must not win.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, ".git", "objects", Filename), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(nested, Filename), []byte(`{"version": "1.0.0"}`), 0644))

	dir, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, nested, dir)
}

func TestLocateNotFound(t *testing.T) {
	_, err := Locate(t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseSyncConfig(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantDir string
	}{
		{"explicit dir", `{"dependencies_dir": "modules"}`, "modules"},
		{"empty object", `{}`, DefaultDependenciesDir},
		{"empty value", `{"dependencies_dir": ""}`, DefaultDependenciesDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseSyncConfig([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, c.DependenciesDir)
		})
	}
}

func TestLoadSyncConfigMissingFile(t *testing.T) {
	c, err := LoadSyncConfig(filepath.Join(t.TempDir(), SyncConfigFilename))
	require.NoError(t, err)
	assert.Equal(t, DefaultDependenciesDir, c.DependenciesDir)
}

func TestReleaseFileRoundTrip(t *testing.T) {
	rf := &ReleaseFile{
		TagName: "1.2.0",
		Assets: []ReleaseAsset{
			{Name: "windows.zip", BrowserDownloadURL: "https://example.com/windows.zip"},
		},
	}
	path := filepath.Join(t.TempDir(), ReleaseFilename)
	require.NoError(t, rf.Save(path))

	back, err := LoadReleaseFile(path)
	require.NoError(t, err)
	assert.Equal(t, rf, back)
}
