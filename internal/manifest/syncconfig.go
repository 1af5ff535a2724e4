package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultDependenciesDir means dependencies are vendored next to the
// integration code and tracked like any other path.
const DefaultDependenciesDir = "."

// SyncConfig is the optional config an upstream repository may carry to
// influence how its forks are synchronized.
type SyncConfig struct {
	DependenciesDir string `json:"dependencies_dir,omitempty"`
}

// ParseSyncConfig decodes a sync config document, applying defaults for
// absent fields.
func ParseSyncConfig(data []byte) (*SyncConfig, error) {
	var c SyncConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse sync config: %w", err)
	}
	if c.DependenciesDir == "" {
		c.DependenciesDir = DefaultDependenciesDir
	}
	return &c, nil
}

// LoadSyncConfig reads the local sync config, returning defaults when the
// file does not exist.
func LoadSyncConfig(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &SyncConfig{DependenciesDir: DefaultDependenciesDir}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseSyncConfig(data)
}
