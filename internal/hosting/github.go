package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"

	"github.com/openfork/forksync/internal/manifest"
)

// GitHub implements Service against the GitHub API.
type GitHub struct {
	client        *github.Client
	owner         string
	repo          string
	releaseBranch string

	fork *Repository // cached fork metadata
}

// NewClient returns an authenticated GitHub API client.
func NewClient(ctx context.Context, token string) *github.Client {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return github.NewClient(httpClient)
}

// NewGitHub returns a Service bound to the fork named by fullName
// ("owner/repo"). releaseBranch names the upstream branch releases are
// read from; empty means the stock "release".
func NewGitHub(ctx context.Context, token, fullName, releaseBranch string) (*GitHub, error) {
	owner, repo, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	if releaseBranch == "" {
		releaseBranch = defaultReleaseBranch
	}
	return &GitHub{
		client:        NewClient(ctx, token),
		owner:         owner,
		repo:          repo,
		releaseBranch: releaseBranch,
	}, nil
}

func splitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}

// convertErr maps go-github errors onto the package error taxonomy.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		return &APIError{Status: status, Message: ghErr.Message}
	}
	return err
}

func convertRepo(r *github.Repository) *Repository {
	if r == nil {
		return nil
	}
	return &Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		CloneURL:      r.GetCloneURL(),
		HTMLURL:       r.GetHTMLURL(),
		Parent:        convertRepo(r.GetParent()),
	}
}

// Fork returns the fork's metadata. The upstream parent is only populated
// on a full repository get, so the result is cached for the run.
func (g *GitHub) Fork(ctx context.Context) (*Repository, error) {
	if g.fork != nil {
		return g.fork, nil
	}
	r, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return nil, convertErr(err)
	}
	g.fork = convertRepo(r)
	return g.fork, nil
}

// parent returns the upstream repository coordinates.
func (g *GitHub) parent(ctx context.Context) (owner, repo string, err error) {
	fork, err := g.Fork(ctx)
	if err != nil {
		return "", "", err
	}
	if fork.Parent == nil {
		return "", "", fmt.Errorf("%s is not a fork", fork.FullName)
	}
	return fork.Parent.Owner, fork.Parent.Name, nil
}

// Viewer returns the authenticated account's login.
func (g *GitHub) Viewer(ctx context.Context) (string, error) {
	u, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return "", convertErr(err)
	}
	return u.GetLogin(), nil
}

// defaultReleaseBranch is the upstream branch used as the source of truth
// for versioned releases when no override is configured.
const defaultReleaseBranch = "release"

// UpstreamReleaseBranch returns upstream's designated release branch, or
// its default branch when the dedicated one does not exist.
func (g *GitHub) UpstreamReleaseBranch(ctx context.Context) (string, error) {
	owner, repo, err := g.parent(ctx)
	if err != nil {
		return "", err
	}
	b, _, err := g.client.Repositories.GetBranch(ctx, owner, repo, g.releaseBranch, true)
	if err != nil {
		if errors.Is(convertErr(err), ErrNotFound) {
			return g.fork.Parent.DefaultBranch, nil
		}
		return "", convertErr(err)
	}
	return b.GetName(), nil
}

// UpstreamManifest walks the upstream tree at ref breadth-first and returns
// the first manifest.json found.
func (g *GitHub) UpstreamManifest(ctx context.Context, ref string) (*manifest.Manifest, error) {
	owner, repo, err := g.parent(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryContentGetOptions{Ref: ref}
	queue := []string{"/"}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		_, entries, _, err := g.client.Repositories.GetContents(ctx, owner, repo, dir, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, it := range entries {
			switch {
			case it.GetType() == "dir":
				queue = append(queue, it.GetPath())
			case it.GetName() == manifest.Filename:
				return g.fetchManifest(ctx, owner, repo, it.GetPath(), opts)
			}
		}
	}
	return nil, fmt.Errorf("%s: %w in upstream repository", manifest.Filename, ErrNotFound)
}

func (g *GitHub) fetchManifest(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*manifest.Manifest, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, convertErr(err)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return manifest.Parse([]byte(content))
}

// UpstreamSyncConfig reads the upstream sync config from the default
// location. Returns nil (no error) when upstream has none.
func (g *GitHub) UpstreamSyncConfig(ctx context.Context) (*manifest.SyncConfig, error) {
	owner, repo, err := g.parent(ctx)
	if err != nil {
		return nil, err
	}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, manifest.SyncConfigFilename, nil)
	if err != nil {
		if errors.Is(convertErr(err), ErrNotFound) {
			return nil, nil
		}
		return nil, convertErr(err)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", manifest.SyncConfigFilename, err)
	}
	return manifest.ParseSyncConfig([]byte(content))
}

// UpstreamLicense returns the license key detected for the upstream
// repository.
func (g *GitHub) UpstreamLicense(ctx context.Context) (string, error) {
	owner, repo, err := g.parent(ctx)
	if err != nil {
		return "", err
	}
	lic, _, err := g.client.Repositories.License(ctx, owner, repo)
	if err != nil {
		return "", convertErr(err)
	}
	return lic.GetLicense().GetKey(), nil
}

// FindPullRequest returns the open PR for (base, head), or nil when none
// exists.
func (g *GitHub) FindPullRequest(ctx context.Context, base, head string) (*PullRequest, error) {
	prs, _, err := g.client.PullRequests.List(ctx, g.owner, g.repo, &github.PullRequestListOptions{
		State: "open",
		Base:  base,
		Head:  g.owner + ":" + head,
	})
	if err != nil {
		return nil, convertErr(err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	pr := prs[0]
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Base:   pr.GetBase().GetRef(),
		Head:   pr.GetHead().GetRef(),
	}, nil
}

// CreatePullRequest opens a PR on the fork and applies labels.
func (g *GitHub) CreatePullRequest(ctx context.Context, title, body, base, head string, labels []string) (*PullRequest, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Base:  github.String(base),
		Head:  github.String(head),
	})
	if err != nil {
		return nil, convertErr(err)
	}
	if len(labels) > 0 {
		if _, _, err := g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, pr.GetNumber(), labels); err != nil {
			return nil, convertErr(err)
		}
	}
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Base:   base,
		Head:   head,
	}, nil
}

// UpdatePullRequestTitle retitles an open PR.
func (g *GitHub) UpdatePullRequestTitle(ctx context.Context, number int, title string) error {
	_, _, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, number, &github.PullRequest{
		Title: github.String(title),
	})
	return convertErr(err)
}

// RequestReview asks the given logins for review.
func (g *GitHub) RequestReview(ctx context.Context, number int, reviewers []string) error {
	_, _, err := g.client.PullRequests.RequestReviewers(ctx, g.owner, g.repo, number, github.ReviewersRequest{
		Reviewers: reviewers,
	})
	return convertErr(err)
}

// DeleteRef deletes a ref on the fork. Missing refs map to ErrNotFound.
func (g *GitHub) DeleteRef(ctx context.Context, ref string) error {
	_, err := g.client.Git.DeleteRef(ctx, g.owner, g.repo, ref)
	return convertErr(err)
}

// Branches lists the fork's branch names.
func (g *GitHub) Branches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.BranchListOptions{}
	for {
		branches, resp, err := g.client.Repositories.ListBranches(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// Tags lists the fork's tag names.
func (g *GitHub) Tags(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.ListOptions{}
	for {
		tags, resp, err := g.client.Repositories.ListTags(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, t := range tags {
			names = append(names, t.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

func convertRelease(rel *github.RepositoryRelease) *Release {
	out := &Release{
		ID:      rel.GetID(),
		TagName: rel.GetTagName(),
		Name:    rel.GetName(),
		Draft:   rel.GetDraft(),
	}
	for _, a := range rel.Assets {
		out.Assets = append(out.Assets, manifest.ReleaseAsset{
			Name:               a.GetName(),
			BrowserDownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return out
}

// Releases lists all releases on the fork, drafts included.
func (g *GitHub) Releases(ctx context.Context) ([]*Release, error) {
	var out []*Release
	opts := &github.ListOptions{}
	for {
		rels, resp, err := g.client.Repositories.ListReleases(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, rel := range rels {
			out = append(out, convertRelease(rel))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// CreateRelease creates a release tagging target.
func (g *GitHub) CreateRelease(ctx context.Context, tag, target, name, body string, draft bool) (*Release, error) {
	rel, _, err := g.client.Repositories.CreateRelease(ctx, g.owner, g.repo, &github.RepositoryRelease{
		TagName:         github.String(tag),
		TargetCommitish: github.String(target),
		Name:            github.String(name),
		Body:            github.String(body),
		Draft:           github.Bool(draft),
	})
	if err != nil {
		return nil, convertErr(err)
	}
	return convertRelease(rel), nil
}

// UploadReleaseAsset attaches the file at path to a release.
func (g *GitHub) UploadReleaseAsset(ctx context.Context, releaseID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = g.client.Repositories.UploadReleaseAsset(ctx, g.owner, g.repo, releaseID, &github.UploadOptions{
		Name: filepath.Base(path),
	}, f)
	return convertErr(err)
}

// PublishRelease clears the draft flag on a release.
func (g *GitHub) PublishRelease(ctx context.Context, releaseID int64, name, body string) error {
	_, _, err := g.client.Repositories.EditRelease(ctx, g.owner, g.repo, releaseID, &github.RepositoryRelease{
		Name:  github.String(name),
		Body:  github.String(body),
		Draft: github.Bool(false),
	})
	return convertErr(err)
}

// DeleteRelease removes a release.
func (g *GitHub) DeleteRelease(ctx context.Context, releaseID int64) error {
	_, err := g.client.Repositories.DeleteRelease(ctx, g.owner, g.repo, releaseID)
	return convertErr(err)
}

// LatestRelease returns the fork's latest published release.
func (g *GitHub) LatestRelease(ctx context.Context) (*Release, error) {
	rel, _, err := g.client.Repositories.GetLatestRelease(ctx, g.owner, g.repo)
	if err != nil {
		return nil, convertErr(err)
	}
	return convertRelease(rel), nil
}

// EditRepository normalizes the fork's metadata. A rename updates the
// bound repository name for subsequent calls.
func (g *GitHub) EditRepository(ctx context.Context, edit RepositoryEdit) error {
	r, _, err := g.client.Repositories.Edit(ctx, g.owner, g.repo, &github.Repository{
		Name:             github.String(edit.Name),
		Description:      github.String(edit.Description),
		Homepage:         github.String(edit.Homepage),
		HasIssues:        github.Bool(edit.HasIssues),
		AllowSquashMerge: github.Bool(edit.AllowSquashMerge),
	})
	if err != nil {
		return convertErr(err)
	}
	g.repo = r.GetName()
	g.fork = nil
	return nil
}

// WatchFork subscribes the authenticated account to the fork.
func (g *GitHub) WatchFork(ctx context.Context) error {
	_, _, err := g.client.Activity.SetRepositorySubscription(ctx, g.owner, g.repo, &github.Subscription{
		Subscribed: github.Bool(true),
	})
	return convertErr(err)
}

// Collaborators lists the fork's collaborator logins.
func (g *GitHub) Collaborators(ctx context.Context) ([]string, error) {
	var logins []string
	opts := &github.ListCollaboratorsOptions{}
	for {
		users, resp, err := g.client.Repositories.ListCollaborators(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, convertErr(err)
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

// InviteCollaborator invites login with the given permission.
func (g *GitHub) InviteCollaborator(ctx context.Context, login, permission string) error {
	_, _, err := g.client.Repositories.AddCollaborator(ctx, g.owner, g.repo, login, &github.RepositoryAddCollaboratorOptions{
		Permission: permission,
	})
	return convertErr(err)
}

// Dispatch fires a repository dispatch event on the fork. Forked repos do
// not trigger pull_request workflows, so sync notifies CI this way.
func (g *GitHub) Dispatch(ctx context.Context, eventType string) error {
	_, _, err := g.client.Repositories.Dispatch(ctx, g.owner, g.repo, github.DispatchRequestOptions{
		EventType: eventType,
	})
	return convertErr(err)
}

// Verify that *GitHub implements Service at compile time.
var _ Service = (*GitHub)(nil)
