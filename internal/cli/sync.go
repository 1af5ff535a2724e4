package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/git"
	"github.com/openfork/forksync/internal/journal"
	"github.com/openfork/forksync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge upstream changes into the autoupdate pull request",
	Long: `Compare the upstream manifest version with the fork's and, when upstream
is ahead, merge upstream's release branch into the autoupdate branch and
open (or refresh) the autoupdate pull request. Reserved fork-local paths
survive the merge untouched. Running again with no upstream change is a
no-op.`,
	Args: cobra.NoArgs,
	Run:  runSync,
}

func runSync(cmd *cobra.Command, args []string) {
	c := initContextWithJournal()
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

	rec := sync.NewReconciler(c.Config, host, sync.NewGitWorkspace(git.NewRepo(runner)), c.Logger)
	rec.Token = githubToken()

	outcome, err := rec.Run(ctx)
	if err != nil {
		c.record(&journal.Record{Task: "sync", Outcome: journal.OutcomeFailed, Detail: err.Error()})
		exitError("%v", err)
	}

	record := &journal.Record{
		Task:            "sync",
		UpstreamVersion: outcome.State.UpstreamVersion.String(),
	}
	if outcome.State.HasLocal {
		record.LocalVersion = outcome.State.LocalVersion.String()
	}

	if !outcome.Updated {
		record.Outcome = journal.OutcomeNoUpdate
		record.Detail = outcome.Reason
		c.record(record)
		fmt.Println(outcome.Reason)
		return
	}

	record.Outcome = journal.OutcomeSynced
	c.record(record)

	// pull_request workflows do not run for forks; a dispatch event lets
	// the fork's own CI validate the update branch.
	if err := host.Dispatch(ctx, sync.DispatchEvent); err != nil {
		c.Logger.Warn().Err(err).Msg("failed to fire dispatch event")
	}

	green := color.New(color.FgGreen)
	green.Printf("Synced to upstream version %s", outcome.State.UpstreamVersion)
	fmt.Println()
}
