package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/journal"
	"github.com/openfork/forksync/internal/release"
)

var releaseDir string

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Publish built assets as a release",
	Long: `Zip the per-platform asset directories found in the build directory
(names starting with "windows" or "macos", case-insensitive) and publish
them as a release tagged with the local manifest version. The release is
created as a draft and undrafted only after every asset uploaded; a
failed upload removes the draft.`,
	Args: cobra.NoArgs,
	Run:  runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&releaseDir, "dir", "", "Build directory holding the per-platform assets (required)")
	releaseCmd.MarkFlagRequired("dir")
}

func runRelease(cmd *cobra.Command, args []string) {
	c := initContextWithJournal()
	defer c.Close()

	ctx := context.Background()

	archives, err := release.ZipAssets(releaseDir, filepath.Join(releaseDir, "..", "assets"))
	if err != nil {
		exitError("%v", err)
	}

	tag := localVersion(".")
	host := c.service(ctx, repoFullName(c.Config))

	pub := release.NewPublisher(host, c.Logger)
	if err := pub.Publish(ctx, tag, c.Config.BaseBranch, archives); err != nil {
		c.record(&journal.Record{Task: "release", LocalVersion: tag, Outcome: journal.OutcomeFailed, Detail: err.Error()})
		exitError("%v", err)
	}
	c.record(&journal.Record{Task: "release", LocalVersion: tag, Outcome: journal.OutcomeSynced})

	green := color.New(color.FgGreen)
	green.Printf("Released %s with %d asset(s)", tag, len(archives))
	fmt.Println()
}
