package hosting

import (
	"context"

	"github.com/google/go-github/v48/github"
)

// Invitations is the slice of the API an invited account needs to accept a
// collaborator invitation.
type Invitations interface {
	ListInvitations(ctx context.Context) ([]int64, error)
	AcceptInvitation(ctx context.Context, id int64) error
}

// GitHubInvitations implements Invitations for the account behind its
// token, normally the CI bot.
type GitHubInvitations struct {
	client *github.Client
}

// NewGitHubInvitations returns an invitation client for the given token.
func NewGitHubInvitations(ctx context.Context, token string) *GitHubInvitations {
	return &GitHubInvitations{client: NewClient(ctx, token)}
}

// ListInvitations returns the IDs of pending repository invitations.
func (g *GitHubInvitations) ListInvitations(ctx context.Context) ([]int64, error) {
	var ids []int64
	opts := &github.ListOptions{}
	for {
		invites, resp, err := g.client.Users.ListInvitations(ctx, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, inv := range invites {
			ids = append(ids, inv.GetID())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return ids, nil
}

// AcceptInvitation accepts a pending repository invitation.
func (g *GitHubInvitations) AcceptInvitation(ctx context.Context, id int64) error {
	_, err := g.client.Users.AcceptInvitation(ctx, id)
	return convertErr(err)
}

var _ Invitations = (*GitHubInvitations)(nil)
