// Package hosting abstracts the repository hosting service a fork lives on.
// The Service interface is what the sync, init and release flows program
// against; the GitHub type implements it against the real API.
package hosting

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfork/forksync/internal/manifest"
)

// ErrNotFound is returned when a remote object does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a non-404 failure reported by the hosting service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hosting API error (status %d): %s", e.Status, e.Message)
}

// Repository is hosting-service repository metadata.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
	CloneURL      string
	HTMLURL       string

	// Parent is the upstream repository this one was forked from. Nil for
	// repositories that are not forks.
	Parent *Repository
}

// PullRequest is an open pull request on the fork.
type PullRequest struct {
	Number int
	Title  string
	Base   string
	Head   string
}

// Release is a published or draft release on the fork.
type Release struct {
	ID      int64
	TagName string
	Name    string
	Draft   bool
	Assets  []manifest.ReleaseAsset
}

// RepositoryEdit is the metadata normalization applied to a fork.
type RepositoryEdit struct {
	Name             string
	Description      string
	Homepage         string
	HasIssues        bool
	AllowSquashMerge bool
}

// Service is the hosting-service surface the tool depends on. It is bound
// to one fork and its upstream parent.
type Service interface {
	// Fork returns the fork's repository metadata, parent included.
	Fork(ctx context.Context) (*Repository, error)

	// Viewer returns the login of the authenticated account.
	Viewer(ctx context.Context) (string, error)

	// Upstream reads. These form the read-only data source the sync
	// reconciler consumes.
	UpstreamReleaseBranch(ctx context.Context) (string, error)
	UpstreamManifest(ctx context.Context, ref string) (*manifest.Manifest, error)
	UpstreamSyncConfig(ctx context.Context) (*manifest.SyncConfig, error)
	UpstreamLicense(ctx context.Context) (string, error)

	// Pull requests on the fork.
	FindPullRequest(ctx context.Context, base, head string) (*PullRequest, error)
	CreatePullRequest(ctx context.Context, title, body, base, head string, labels []string) (*PullRequest, error)
	UpdatePullRequestTitle(ctx context.Context, number int, title string) error
	RequestReview(ctx context.Context, number int, reviewers []string) error

	// Refs on the fork, in the form "heads/<branch>" or "tags/<tag>".
	DeleteRef(ctx context.Context, ref string) error

	// Branch and tag names on the fork.
	Branches(ctx context.Context) ([]string, error)
	Tags(ctx context.Context) ([]string, error)

	// Releases on the fork.
	Releases(ctx context.Context) ([]*Release, error)
	CreateRelease(ctx context.Context, tag, target, name, body string, draft bool) (*Release, error)
	UploadReleaseAsset(ctx context.Context, releaseID int64, path string) error
	PublishRelease(ctx context.Context, releaseID int64, name, body string) error
	DeleteRelease(ctx context.Context, releaseID int64) error
	LatestRelease(ctx context.Context) (*Release, error)

	// Fork administration, used by init.
	EditRepository(ctx context.Context, edit RepositoryEdit) error
	WatchFork(ctx context.Context) error
	Collaborators(ctx context.Context) ([]string, error)
	InviteCollaborator(ctx context.Context, login, permission string) error

	// Dispatch fires a repository dispatch event on the fork.
	Dispatch(ctx context.Context, eventType string) error
}
