package hosting

import (
	"context"
	"sync"

	"github.com/openfork/forksync/internal/manifest"
)

// Mock is an in-memory implementation of Service for testing. Fields are
// exported so tests can seed state and inspect recorded calls.
type Mock struct {
	ForkRepo      *Repository
	ViewerLogin   string
	ReleaseBranch string

	Manifest    *manifest.Manifest
	ManifestErr error

	SyncConfig *manifest.SyncConfig

	License    string
	LicenseErr error

	// OpenPR is the currently open autoupdate PR, nil when none.
	OpenPR     *PullRequest
	nextPRNum  int
	CreatedPRs []*PullRequest

	UpdatedTitles  map[int]string
	ReviewRequests map[int][]string
	ReviewErr      error

	DeletedRefs  []string
	DeleteRefErr error

	CreatedReleases []*Release
	nextReleaseID   int64

	ForkBranches []string
	ForkTags     []string

	// UploadedAssets is guarded by mu; uploads may run concurrently.
	mu             sync.Mutex
	UploadedAssets map[int64][]string
	UploadErr      error
	PublishErr     error
	Latest         *Release
	LatestErr      error

	Edits         []RepositoryEdit
	Watched       bool
	Collabs       []string
	Invited       map[string]string
	DispatchedEvs []string
}

// NewMock creates a Mock with a plausible fork/upstream pair.
func NewMock() *Mock {
	return &Mock{
		ForkRepo: &Repository{
			Owner:         "forkowner",
			Name:          "integration-demo",
			FullName:      "forkowner/integration-demo",
			DefaultBranch: "master",
			CloneURL:      "https://github.com/forkowner/integration-demo.git",
			Parent: &Repository{
				Owner:         "author",
				Name:          "integration-demo",
				FullName:      "author/integration-demo",
				DefaultBranch: "main",
				CloneURL:      "https://github.com/author/integration-demo.git",
				HTMLURL:       "https://github.com/author/integration-demo",
			},
		},
		ViewerLogin:    "forkowner",
		ReleaseBranch:  "release",
		License:        "mit",
		nextPRNum:      1,
		nextReleaseID:  1,
		UpdatedTitles:  make(map[int]string),
		ReviewRequests: make(map[int][]string),
		UploadedAssets: make(map[int64][]string),
		Invited:        make(map[string]string),
	}
}

func (m *Mock) Fork(context.Context) (*Repository, error) {
	return m.ForkRepo, nil
}

func (m *Mock) Viewer(context.Context) (string, error) {
	return m.ViewerLogin, nil
}

func (m *Mock) UpstreamReleaseBranch(context.Context) (string, error) {
	if m.ReleaseBranch == "" {
		return m.ForkRepo.Parent.DefaultBranch, nil
	}
	return m.ReleaseBranch, nil
}

func (m *Mock) UpstreamManifest(context.Context, string) (*manifest.Manifest, error) {
	if m.ManifestErr != nil {
		return nil, m.ManifestErr
	}
	if m.Manifest == nil {
		return nil, ErrNotFound
	}
	return m.Manifest, nil
}

func (m *Mock) UpstreamSyncConfig(context.Context) (*manifest.SyncConfig, error) {
	return m.SyncConfig, nil
}

func (m *Mock) UpstreamLicense(context.Context) (string, error) {
	if m.LicenseErr != nil {
		return "", m.LicenseErr
	}
	if m.License == "" {
		return "", ErrNotFound
	}
	return m.License, nil
}

func (m *Mock) FindPullRequest(context.Context, string, string) (*PullRequest, error) {
	return m.OpenPR, nil
}

func (m *Mock) CreatePullRequest(_ context.Context, title, body, base, head string, _ []string) (*PullRequest, error) {
	pr := &PullRequest{Number: m.nextPRNum, Title: title, Base: base, Head: head}
	m.nextPRNum++
	m.CreatedPRs = append(m.CreatedPRs, pr)
	m.OpenPR = pr
	return pr, nil
}

func (m *Mock) UpdatePullRequestTitle(_ context.Context, number int, title string) error {
	m.UpdatedTitles[number] = title
	if m.OpenPR != nil && m.OpenPR.Number == number {
		m.OpenPR.Title = title
	}
	return nil
}

func (m *Mock) RequestReview(_ context.Context, number int, reviewers []string) error {
	if m.ReviewErr != nil {
		return m.ReviewErr
	}
	m.ReviewRequests[number] = append(m.ReviewRequests[number], reviewers...)
	return nil
}

func (m *Mock) DeleteRef(_ context.Context, ref string) error {
	if m.DeleteRefErr != nil {
		return m.DeleteRefErr
	}
	m.DeletedRefs = append(m.DeletedRefs, ref)
	return nil
}

func (m *Mock) Branches(context.Context) ([]string, error) {
	return m.ForkBranches, nil
}

func (m *Mock) Tags(context.Context) ([]string, error) {
	return m.ForkTags, nil
}

func (m *Mock) Releases(context.Context) ([]*Release, error) {
	return append([]*Release(nil), m.CreatedReleases...), nil
}

func (m *Mock) CreateRelease(_ context.Context, tag, _, name, _ string, draft bool) (*Release, error) {
	rel := &Release{ID: m.nextReleaseID, TagName: tag, Name: name, Draft: draft}
	m.nextReleaseID++
	m.CreatedReleases = append(m.CreatedReleases, rel)
	return rel, nil
}

func (m *Mock) UploadReleaseAsset(_ context.Context, releaseID int64, path string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadedAssets[releaseID] = append(m.UploadedAssets[releaseID], path)
	return nil
}

func (m *Mock) PublishRelease(_ context.Context, releaseID int64, _, _ string) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	for _, rel := range m.CreatedReleases {
		if rel.ID == releaseID {
			rel.Draft = false
		}
	}
	return nil
}

func (m *Mock) DeleteRelease(_ context.Context, releaseID int64) error {
	for i, rel := range m.CreatedReleases {
		if rel.ID == releaseID {
			m.CreatedReleases = append(m.CreatedReleases[:i], m.CreatedReleases[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Mock) LatestRelease(context.Context) (*Release, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	if m.Latest == nil {
		return nil, ErrNotFound
	}
	return m.Latest, nil
}

func (m *Mock) EditRepository(_ context.Context, edit RepositoryEdit) error {
	m.Edits = append(m.Edits, edit)
	m.ForkRepo.Name = edit.Name
	m.ForkRepo.FullName = m.ForkRepo.Owner + "/" + edit.Name
	return nil
}

func (m *Mock) WatchFork(context.Context) error {
	m.Watched = true
	return nil
}

func (m *Mock) Collaborators(context.Context) ([]string, error) {
	return m.Collabs, nil
}

func (m *Mock) InviteCollaborator(_ context.Context, login, permission string) error {
	m.Invited[login] = permission
	return nil
}

func (m *Mock) Dispatch(_ context.Context, eventType string) error {
	m.DispatchedEvs = append(m.DispatchedEvs, eventType)
	return nil
}

var _ Service = (*Mock)(nil)
