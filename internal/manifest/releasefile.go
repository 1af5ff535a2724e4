package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReleaseAsset is one downloadable asset of a published release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// ReleaseFile is the generated current_version.json committed to the base
// branch after a release. Installed integrations poll it to discover
// updates.
type ReleaseFile struct {
	TagName string         `json:"tag_name"`
	Assets  []ReleaseAsset `json:"assets"`
}

// LoadReleaseFile reads a release file from path.
func LoadReleaseFile(path string) (*ReleaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf ReleaseFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse release file: %w", err)
	}
	return &rf, nil
}

// Save writes the release file to path.
func (rf *ReleaseFile) Save(path string) error {
	data, err := json.MarshalIndent(rf, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal release file: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
