// Package manifest reads and writes the JSON documents shared with the
// upstream integrations: the integration manifest, the optional upstream
// sync config and the generated release metadata file.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Locate when a tree carries no manifest.
var ErrNotFound = errors.New("manifest not found")

const (
	// Filename is the integration manifest, located anywhere in the tree.
	Filename = "manifest.json"

	// SyncConfigFilename is the optional upstream-provided sync config.
	SyncConfigFilename = ".sync_config.json"

	// ReleaseFilename records the latest published release on the base
	// branch.
	ReleaseFilename = "current_version.json"
)

// Manifest is the upstream integration manifest. Only the fields this tool
// consumes are modeled; unknown fields are preserved across a rewrite.
type Manifest struct {
	Version   string `json:"version"`
	Platform  string `json:"platform"`
	UpdateURL string `json:"update_url,omitempty"`

	// extra keeps fields we do not interpret so Save round-trips them.
	extra map[string]json.RawMessage
}

// UnmarshalJSON keeps unknown manifest fields alongside the typed ones.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type fields Manifest
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Manifest(f)

	delete(raw, "version")
	delete(raw, "platform")
	delete(raw, "update_url")
	m.extra = raw
	return nil
}

// MarshalJSON emits the typed fields plus any preserved unknown fields.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+3)
	for k, v := range m.extra {
		out[k] = v
	}
	out["version"] = m.Version
	out["platform"] = m.Platform
	if m.UpdateURL != "" {
		out["update_url"] = m.UpdateURL
	}
	return json.Marshal(out)
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save writes the manifest to path, indented the way upstream publishes it.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Locate walks the tree rooted at dir and returns the directory containing
// the first manifest.json found.
func Locate(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// The search is for fork content, not for vendored repos.
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == Filename {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w under %s", ErrNotFound, dir)
	}
	return found, nil
}
