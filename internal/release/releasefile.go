package release

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/openfork/forksync/internal/config"
	"github.com/openfork/forksync/internal/git"
	"github.com/openfork/forksync/internal/hosting"
	"github.com/openfork/forksync/internal/manifest"
)

// ReleaseFileCommitMessage is the commit message for release metadata updates.
const ReleaseFileCommitMessage = "Updated current_version.json"

// Workspace is the local checkout surface the release-file update needs.
type Workspace interface {
	Dir() string
	SetRemoteURL(ctx context.Context, remote, url string) error
	AddPath(ctx context.Context, path string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, refspec string) error
}

// GitWorkspace adapts a git repo handle to Workspace.
type GitWorkspace struct {
	*git.Repo
	runner *git.Runner
}

// NewGitWorkspace returns a Workspace over the checkout run operates on.
func NewGitWorkspace(run *git.Runner) *GitWorkspace {
	return &GitWorkspace{Repo: git.NewRepo(run), runner: run}
}

func (w *GitWorkspace) Dir() string { return w.runner.Dir() }

var _ Workspace = (*GitWorkspace)(nil)

// FileUpdater commits the latest release's metadata back to the base branch.
type FileUpdater struct {
	cfg    *config.Config
	host   hosting.Service
	ws     Workspace
	logger zerolog.Logger

	// Token authenticates the push to the fork.
	Token string
}

// NewFileUpdater returns a FileUpdater over the given collaborators.
func NewFileUpdater(cfg *config.Config, host hosting.Service, ws Workspace, logger zerolog.Logger) *FileUpdater {
	return &FileUpdater{cfg: cfg, host: host, ws: ws, logger: logger}
}

// Run fetches the latest release, verifies its tag matches localVersion and
// commits current_version.json to the base branch. A tag mismatch means the
// release step has not caught up with the checkout and is fatal.
func (u *FileUpdater) Run(ctx context.Context, localVersion string) error {
	rel, err := u.host.LatestRelease(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest release: %w", err)
	}
	if rel.TagName != localVersion {
		return fmt.Errorf("remote tag %q does not match the local version %q", rel.TagName, localVersion)
	}

	rf := &manifest.ReleaseFile{TagName: rel.TagName, Assets: rel.Assets}
	path := filepath.Join(u.ws.Dir(), manifest.ReleaseFilename)
	if err := rf.Save(path); err != nil {
		return fmt.Errorf("failed to write release file: %w", err)
	}
	u.logger.Info().Str("tag", rel.TagName).Int("assets", len(rel.Assets)).Msg("release file written")

	fork, err := u.host.Fork(ctx)
	if err != nil {
		return err
	}
	viewer, err := u.host.Viewer(ctx)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://%s:%s@github.com/%s.git", viewer, u.Token, fork.FullName)
	if err := u.ws.SetRemoteURL(ctx, u.cfg.OriginRemote, url); err != nil {
		return err
	}

	if err := u.ws.AddPath(ctx, manifest.ReleaseFilename); err != nil {
		return err
	}
	if err := u.ws.Commit(ctx, ReleaseFileCommitMessage); err != nil {
		return err
	}
	if err := u.ws.Push(ctx, u.cfg.OriginRemote, "HEAD:"+u.cfg.BaseBranch); err != nil {
		return fmt.Errorf("failed to push release file: %w", err)
	}
	return nil
}
