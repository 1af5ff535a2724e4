package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/git"
	"github.com/openfork/forksync/internal/release"
)

var releaseFileCmd = &cobra.Command{
	Use:   "update-release-file",
	Short: "Commit the latest release's metadata to the base branch",
	Long: `Fetch the fork's latest release, verify its tag matches the local
manifest version and commit current_version.json (tag plus asset
download URLs) to the base branch. Installed integrations poll that
file to discover updates.`,
	Args: cobra.NoArgs,
	Run:  runReleaseFile,
}

func runReleaseFile(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ctx := context.Background()
	host := c.service(ctx, repoFullName(c.Config))

	runner, err := git.NewRunner(".", c.Logger)
	if err != nil {
		exitError("%v", err)
	}
	identity, err := git.ConfigureIdentity(ctx, runner, c.Config.BotName, c.Config.BotEmail)
	if err != nil {
		exitError("failed to configure git identity: %v", err)
	}
	defer func() {
		if err := identity.Close(ctx); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to restore git identity")
		}
	}()

	u := release.NewFileUpdater(c.Config, host, release.NewGitWorkspace(runner), c.Logger)
	u.Token = githubToken()

	tag := localVersion(".")
	if err := u.Run(ctx, tag); err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Committed release file for %s", tag)
	fmt.Println()
}
