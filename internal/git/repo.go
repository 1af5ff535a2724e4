package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedConflict marks a merge the git binary could not resolve on
// its own even with a conflict-favoring strategy, typically a rename or
// delete conflict. Callers may recover by taking the incoming tree
// wholesale.
var ErrUnresolvedConflict = errors.New("merge left unresolved conflicts")

// Repo exposes the git operations the sync flow needs on top of a Runner.
type Repo struct {
	run *Runner
}

// NewRepo returns a Repo driving the given runner's working tree.
func NewRepo(run *Runner) *Repo {
	return &Repo{run: run}
}

// Runner returns the underlying command runner.
func (r *Repo) Runner() *Runner {
	return r.run
}

// CurrentBranch returns the name of the checked-out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// EnsureBranch checks out branch tracking remote/branch. When the branch
// does not exist on the remote it is created fresh from the current HEAD
// and published. This makes the branch shape deterministic on every run
// regardless of what a previous, possibly interrupted, run left behind.
func (r *Repo) EnsureBranch(ctx context.Context, remote, branch string) error {
	current, err := r.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == branch {
		return nil
	}

	if _, err := r.run.Run(ctx, "checkout", "--track", remote+"/"+branch); err == nil {
		return nil
	}

	// No such branch on the remote.
	if _, err := r.run.Run(ctx, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	if _, err := r.run.Run(ctx, "push", "-u", remote, branch); err != nil {
		return fmt.Errorf("failed to publish branch %s: %w", branch, err)
	}
	return nil
}

// Fetch fetches a remote.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	_, err := r.run.Run(ctx, "fetch", remote)
	return err
}

// SetRemoteURL points an existing remote at url.
func (r *Repo) SetRemoteURL(ctx context.Context, remote, url string) error {
	_, err := r.run.Run(ctx, "remote", "set-url", remote, url)
	return err
}

// AddRemote adds a remote, updating its URL when it already exists so a
// retried run does not fail on its own leftovers.
func (r *Repo) AddRemote(ctx context.Context, remote, url string) error {
	if _, err := r.run.Run(ctx, "remote", "add", remote, url); err == nil {
		return nil
	}
	return r.SetRemoteURL(ctx, remote, url)
}

// MergeOptions configures a Merge.
type MergeOptions struct {
	// Ref is the commit-ish to merge, e.g. "upstream/release".
	Ref string

	// AllowUnrelated permits merging histories with no common ancestor.
	// Only the first-ever sync of a purged fork needs this.
	AllowUnrelated bool
}

// Merge merges opts.Ref into the current branch without committing,
// favoring the incoming side of any content conflict. A failure git itself
// reports as CONFLICT is returned as ErrUnresolvedConflict; any other
// failure is returned as-is.
func (r *Repo) Merge(ctx context.Context, opts MergeOptions) error {
	args := []string{"merge"}
	if opts.AllowUnrelated {
		args = append(args, "--allow-unrelated-histories")
	}
	args = append(args, "--no-commit", "--no-ff", "-s", "recursive", "-X", "theirs", opts.Ref)

	_, err := r.run.Run(ctx, args...)
	if err == nil {
		return nil
	}

	var execErr *ExecError
	if errors.As(err, &execErr) && strings.Contains(execErr.Stdout+execErr.Stderr, "CONFLICT") {
		return fmt.Errorf("%w: %s", ErrUnresolvedConflict, execErr.Error())
	}
	return err
}

// TakeTheirs resolves every path in favor of the merged-in side and stages
// the whole tree. Used as the fallback for rename/delete conflicts Merge
// cannot settle.
func (r *Repo) TakeTheirs(ctx context.Context) error {
	if _, err := r.run.Run(ctx, "checkout", "--theirs", "."); err != nil {
		return err
	}
	return r.AddAll(ctx)
}

// AddAll stages the entire working tree.
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.run.Run(ctx, "add", ".")
	return err
}

// AddPath stages a single path.
func (r *Repo) AddPath(ctx context.Context, path string) error {
	_, err := r.run.Run(ctx, "add", path)
	return err
}

// RestorePathFrom checks out path from ref, overwriting the working tree
// and the index.
func (r *Repo) RestorePathFrom(ctx context.Context, ref, path string) error {
	_, err := r.run.Run(ctx, "checkout", ref, "--", path)
	return err
}

// UnstagePath removes path from the index, leaving the working tree alone.
func (r *Repo) UnstagePath(ctx context.Context, path string) error {
	_, err := r.run.Run(ctx, "reset", path)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := r.run.Run(ctx, "diff-index", "--quiet", "--cached", "HEAD")
	if err == nil {
		return false, nil
	}
	if ExitCode(err) == 1 {
		return true, nil
	}
	return false, err
}

// Commit commits the staged changes.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run.Run(ctx, "commit", "-m", message)
	return err
}

// Push pushes a branch to a remote.
func (r *Repo) Push(ctx context.Context, remote, refspec string) error {
	_, err := r.run.Run(ctx, "push", remote, refspec)
	return err
}
