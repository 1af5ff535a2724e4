package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/hosting"
	"github.com/openfork/forksync/internal/initialize"
)

var initCmd = &cobra.Command{
	Use:   "init <owner/repo>",
	Short: "Fork an upstream repository and normalize the fork",
	Long: `Fork the given upstream repository (or reuse an existing fork), rename it
after the integration's platform, point its description and homepage at
the original, disable issues and squash merges, watch it and invite the
CI bot as a collaborator.

The bot accepts the invitation itself, so BOT_TOKEN must hold a token
for the bot account; without it bot setup is skipped.

With --purge, all releases, tags and non-default branches are deleted
from the fork so the first sync starts from a clean slate. This cannot
be undone.

Examples:
  forksync init author/galaxy-integration-demo
  forksync init --purge author/galaxy-integration-demo`,
	Args: cobra.ExactArgs(1),
	Run:  runInit,
}

var initPurge bool

func init() {
	initCmd.Flags().BoolVar(&initPurge, "purge", false, "Delete all releases, tags and non-default branches from the fork")
}

func runInit(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ctx := context.Background()
	token := githubToken()

	client := hosting.NewClient(ctx, token)
	forkFullName, err := hosting.ForkUpstream(ctx, client, args[0])
	if err != nil {
		exitError("failed to fork %s: %v", args[0], err)
	}
	fmt.Printf("Using fork %s\n", forkFullName)

	var inv hosting.Invitations
	if botToken := os.Getenv("BOT_TOKEN"); botToken != "" {
		inv = hosting.NewGitHubInvitations(ctx, botToken)
	} else {
		c.Logger.Warn().Msg("BOT_TOKEN not set, skipping bot collaborator setup")
	}

	host := c.service(ctx, forkFullName)
	initializer := initialize.New(c.Config, host, inv, c.Logger)
	result, err := initializer.Run(ctx)
	if err != nil {
		exitError("%v", err)
	}

	if c.Config.AddSyncedFork(result.Name) {
		if err := c.Config.Save(); err != nil {
			c.Logger.Warn().Err(err).Msg("failed to record fork in config")
		}
	}

	if initPurge {
		if err := initializer.Purge(ctx); err != nil {
			exitError("%v", err)
		}
	}

	green := color.New(color.FgGreen)
	green.Printf("Initialized fork %s", result.Name)
	fmt.Println()
	if result.Invited {
		fmt.Printf("Invited %s as collaborator\n", c.Config.BotName)
	}
}
