// Package config manages the forksync tool configuration. A forksync.toml
// next to the working tree overrides the defaults; everything works without
// one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the optional tool configuration file name.
const ConfigFile = "forksync.toml"

// Config represents the forksync configuration.
type Config struct {
	// Git identity used for commits made by the tool.
	BotName  string `toml:"bot_name"`
	BotEmail string `toml:"bot_email"`

	// Account that owns the forks and reviews autoupdate pull requests.
	Owner string `toml:"owner"`

	BaseBranch     string `toml:"base_branch"`
	UpdateBranch   string `toml:"update_branch"`
	ReleaseBranch  string `toml:"release_branch"`
	OriginRemote   string `toml:"origin_remote"`
	UpstreamRemote string `toml:"upstream_remote"`

	// ReservedPaths are fork-local paths an upstream merge must never
	// overwrite.
	ReservedPaths []string `toml:"reserved_paths"`

	// AllowedLicenses are upstream license keys sync will accept.
	AllowedLicenses []string `toml:"allowed_licenses"`

	// SyncedForks are the fork names registered for periodic syncing;
	// init appends here.
	SyncedForks []string `toml:"synced_forks"`

	// InvitationTimeout bounds the wait for the bot to receive a
	// collaborator invitation during init.
	InvitationTimeout time.Duration `toml:"invitation_timeout"`

	path string // directory the config was loaded from
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		BotName:        "forksync-bot",
		BotEmail:       "forksync-bot@users.noreply.github.com",
		BaseBranch:     "master",
		UpdateBranch:   "autoupdate",
		ReleaseBranch:  "release",
		OriginRemote:   "origin",
		UpstreamRemote: "upstream",
		ReservedPaths: []string{
			"README.md",
			".github/",
			"current_version.json",
		},
		AllowedLicenses:   []string{"mit", "gpl-3.0"},
		InvitationTimeout: 5 * time.Second,
	}
}

// Load reads forksync.toml from dir on top of the defaults. A missing file
// is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.path = dir

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back to its directory.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// AddSyncedFork registers a fork name for syncing. Returns false when the
// name was already registered.
func (c *Config) AddSyncedFork(name string) bool {
	for _, f := range c.SyncedForks {
		if f == name {
			return false
		}
	}
	c.SyncedForks = append(c.SyncedForks, name)
	return true
}

// JournalPath returns the path of the local run journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.path, ".forksync.db")
}
