package hosting

import (
	"context"
	"errors"

	"github.com/google/go-github/v48/github"
)

// ForkUpstream ensures the authenticated account has a fork of the
// repository named by upstreamFullName and returns the fork's full name.
func ForkUpstream(ctx context.Context, client *github.Client, upstreamFullName string) (string, error) {
	owner, repo, err := splitFullName(upstreamFullName)
	if err != nil {
		return "", err
	}

	viewer, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return "", convertErr(err)
	}
	login := viewer.GetLogin()

	opts := &github.RepositoryListForksOptions{}
	for {
		forks, resp, err := client.Repositories.ListForks(ctx, owner, repo, opts)
		if err != nil {
			return "", convertErr(err)
		}
		for _, f := range forks {
			if f.GetOwner().GetLogin() == login {
				return f.GetFullName(), nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	fork, _, err := client.Repositories.CreateFork(ctx, owner, repo, &github.RepositoryCreateForkOptions{})
	if err != nil {
		// Forking is asynchronous; 202 Accepted still carries the fork.
		var accepted *github.AcceptedError
		if !errors.As(err, &accepted) {
			return "", convertErr(err)
		}
	}
	if fork != nil && fork.GetFullName() != "" {
		return fork.GetFullName(), nil
	}
	return login + "/" + repo, nil
}
