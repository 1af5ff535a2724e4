// Package initialize sets up a newly forked repository: metadata
// normalization, watching, and CI bot collaborator access.
package initialize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfork/forksync/internal/config"
	"github.com/openfork/forksync/internal/hosting"
)

// collaboratorPermission is what the CI bot needs to push sync commits.
const collaboratorPermission = "push"

// Result reports what initialization did.
type Result struct {
	// Name is the normalized fork repository name.
	Name string

	// Invited is true when the CI bot was invited this run.
	Invited bool
}

// Initializer normalizes a fork after creation.
type Initializer struct {
	cfg    *config.Config
	host   hosting.Service
	inv    hosting.Invitations
	logger zerolog.Logger
}

// New creates an Initializer. inv authenticates as the CI bot and may be
// nil when bot setup is skipped.
func New(cfg *config.Config, host hosting.Service, inv hosting.Invitations, logger zerolog.Logger) *Initializer {
	return &Initializer{cfg: cfg, host: host, inv: inv, logger: logger}
}

// Run normalizes fork metadata, subscribes the owner and ensures the CI
// bot has collaborator access.
func (i *Initializer) Run(ctx context.Context) (*Result, error) {
	fork, err := i.host.Fork(ctx)
	if err != nil {
		return nil, err
	}
	if fork.Parent == nil {
		return nil, fmt.Errorf("%s is not a fork", fork.FullName)
	}

	branch, err := i.host.UpstreamReleaseBranch(ctx)
	if err != nil {
		return nil, err
	}
	m, err := i.host.UpstreamManifest(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream manifest: %w", err)
	}

	name := "integration-" + m.Platform
	i.logger.Info().Str("name", name).Msg("normalizing fork metadata")
	err = i.host.EditRepository(ctx, hosting.RepositoryEdit{
		Name:             name,
		Description:      "In case of any issues please refer to the original repository:",
		Homepage:         fork.Parent.HTMLURL,
		HasIssues:        false,
		AllowSquashMerge: false,
	})
	if err != nil {
		return nil, err
	}

	if err := i.host.WatchFork(ctx); err != nil {
		return nil, err
	}

	invited, err := i.ensureBotAccess(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{Name: name, Invited: invited}, nil
}

// Purge strips the fork of upstream history artifacts so the first sync
// starts clean: every release, every branch except the default one, and
// every tag is deleted. Irreversible; callers gate it behind an explicit
// flag.
func (i *Initializer) Purge(ctx context.Context) error {
	rels, err := i.host.Releases(ctx)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		i.logger.Info().Str("tag", rel.TagName).Msg("deleting release")
		if err := i.host.DeleteRelease(ctx, rel.ID); err != nil {
			return fmt.Errorf("failed to delete release %s: %w", rel.TagName, err)
		}
	}

	fork, err := i.host.Fork(ctx)
	if err != nil {
		return err
	}
	branches, err := i.host.Branches(ctx)
	if err != nil {
		return err
	}
	for _, branch := range branches {
		if branch == fork.DefaultBranch {
			continue
		}
		i.logger.Info().Str("branch", branch).Msg("deleting branch")
		if err := i.host.DeleteRef(ctx, "heads/"+branch); err != nil {
			return fmt.Errorf("failed to delete branch %s: %w", branch, err)
		}
	}

	tags, err := i.host.Tags(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		i.logger.Info().Str("tag", tag).Msg("deleting tag")
		if err := i.host.DeleteRef(ctx, "tags/"+tag); err != nil {
			return fmt.Errorf("failed to delete tag %s: %w", tag, err)
		}
	}
	return nil
}

// ensureBotAccess invites the CI bot when it is not yet a collaborator and
// waits for the bot account to accept.
func (i *Initializer) ensureBotAccess(ctx context.Context) (bool, error) {
	if i.inv == nil {
		i.logger.Warn().Msg("no bot credentials, skipping collaborator setup")
		return false, nil
	}

	collabs, err := i.host.Collaborators(ctx)
	if err != nil {
		return false, err
	}
	for _, login := range collabs {
		if login == i.cfg.BotName {
			return false, nil
		}
	}

	i.logger.Info().Str("bot", i.cfg.BotName).Msg("inviting CI bot")
	if err := i.host.InviteCollaborator(ctx, i.cfg.BotName, collaboratorPermission); err != nil {
		return false, err
	}

	if err := i.waitForInvitation(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// waitForInvitation polls the bot's pending invitations until one can be
// accepted or the configured deadline passes.
func (i *Initializer) waitForInvitation(ctx context.Context) error {
	deadline := time.Now().Add(i.cfg.InvitationTimeout)
	for time.Now().Before(deadline) {
		ids, err := i.inv.ListInvitations(ctx)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := i.inv.AcceptInvitation(ctx, ids[0]); err != nil {
				return err
			}
			i.logger.Info().Int64("invitation", ids[0]).Msg("bot accepted invitation")
			return nil
		}

		i.logger.Debug().Msg("no invitations received by bot yet")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("no invitation received by bot in %s", i.cfg.InvitationTimeout)
}
