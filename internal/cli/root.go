// Package cli implements the command-line interface for forksync.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/config"
	"github.com/openfork/forksync/internal/hosting"
	"github.com/openfork/forksync/internal/journal"
	"github.com/openfork/forksync/internal/logging"
	"github.com/openfork/forksync/internal/manifest"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Journal *journal.Journal
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Journal != nil {
		c.Journal.Close()
	}
}

// initContext loads the environment, config and logger
func initContext() *cmdContext {
	// A .env next to the checkout may carry the tokens; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		exitError("%v", err)
	}

	return &cmdContext{Config: cfg, Logger: logging.New(logging.DefaultConfig())}
}

// initContextWithJournal additionally opens the local run journal
func initContextWithJournal() *cmdContext {
	c := initContext()

	j, err := journal.Open(c.Config.JournalPath())
	if err != nil {
		exitError("failed to open journal: %v", err)
	}
	c.Journal = j

	return c
}

// record appends a run record; the journal is an observer, never a reason
// to fail the run.
func (c *cmdContext) record(rec *journal.Record) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Append(rec); err != nil {
		c.Logger.Warn().Err(err).Msg("failed to record run in journal")
	}
}

// service builds the hosting client for the given fork, retries included
func (c *cmdContext) service(ctx context.Context, fullName string) hosting.Service {
	gh, err := hosting.NewGitHub(ctx, githubToken(), fullName, c.Config.ReleaseBranch)
	if err != nil {
		exitError("%v", err)
	}
	return hosting.NewRetryService(gh, hosting.DefaultRetryConfig())
}

// githubToken returns the token used for API calls and pushes
func githubToken() string {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		exitError("GITHUB_TOKEN is not set")
	}
	return token
}

// repoFullName resolves the fork's owner/name pair: the --repo flag when
// given, else the configured owner plus the checkout directory name.
func repoFullName(cfg *config.Config) string {
	if repoFlag != "" {
		return repoFlag
	}
	if cfg.Owner == "" {
		exitError("repository not specified: pass --repo or set owner in %s", config.ConfigFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}
	return cfg.Owner + "/" + filepath.Base(cwd)
}

// localVersion reads the version from the checkout's manifest
func localVersion(dir string) string {
	srcDir, err := manifest.Locate(dir)
	if err != nil {
		exitError("%v", err)
	}
	m, err := manifest.Load(filepath.Join(srcDir, manifest.Filename))
	if err != nil {
		exitError("%v", err)
	}
	return m.Version
}

var repoFlag string

var rootCmd = &cobra.Command{
	Use:   "forksync",
	Short: "Fork maintenance automation",
	Long: `forksync keeps a fork in step with the repository it was forked from.
It detects upstream version bumps, merges upstream changes into an
autoupdate pull request, packages the integration and publishes
releases with platform asset bundles.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Fork repository as owner/name (default: configured owner + working directory name)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(releaseFileCmd)
	rootCmd.AddCommand(historyCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
