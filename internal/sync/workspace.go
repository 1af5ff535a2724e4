package sync

import (
	"context"
	"os"
	"path/filepath"

	"github.com/openfork/forksync/internal/git"
	"github.com/openfork/forksync/internal/manifest"
)

// Workspace is the local working tree surface the reconciler drives. It
// mirrors the operations of git.Repo plus the two filesystem reads the
// algorithm needs, so tests can substitute a fake.
type Workspace interface {
	EnsureBranch(ctx context.Context, remote, branch string) error
	Fetch(ctx context.Context, remote string) error
	SetRemoteURL(ctx context.Context, remote, url string) error
	AddRemote(ctx context.Context, remote, url string) error
	Merge(ctx context.Context, opts git.MergeOptions) error
	TakeTheirs(ctx context.Context) error
	RestorePathFrom(ctx context.Context, ref, path string) error
	UnstagePath(ctx context.Context, path string) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, refspec string) error

	// ReadManifest loads the manifest from the working tree. A tree
	// without one returns manifest.ErrNotFound.
	ReadManifest() (*manifest.Manifest, error)

	// RemovePaths deletes files or whole directory trees from the working
	// tree. Missing paths are not an error.
	RemovePaths(paths []string) error
}

// GitWorkspace implements Workspace on a real git working tree.
type GitWorkspace struct {
	*git.Repo
}

// NewGitWorkspace wraps a git repo handle as a Workspace.
func NewGitWorkspace(repo *git.Repo) *GitWorkspace {
	return &GitWorkspace{Repo: repo}
}

// ReadManifest locates and loads the manifest in the working tree.
func (w *GitWorkspace) ReadManifest() (*manifest.Manifest, error) {
	dir, err := manifest.Locate(w.Runner().Dir())
	if err != nil {
		return nil, err
	}
	return manifest.Load(filepath.Join(dir, manifest.Filename))
}

// RemovePaths silently removes files or whole directory trees.
func (w *GitWorkspace) RemovePaths(paths []string) error {
	root := w.Runner().Dir()
	for _, p := range paths {
		if err := os.RemoveAll(filepath.Join(root, p)); err != nil {
			return err
		}
	}
	return nil
}

var _ Workspace = (*GitWorkspace)(nil)
