// Package sync implements the upstream-sync reconciliation: deciding
// whether a fork needs an update, preparing the autoupdate branch, merging
// upstream content while keeping fork-local paths intact, and creating or
// updating the autoupdate pull request.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfork/forksync/internal/config"
	"github.com/openfork/forksync/internal/git"
	"github.com/openfork/forksync/internal/hosting"
	"github.com/openfork/forksync/internal/manifest"
	"github.com/openfork/forksync/internal/version"
)

const (
	// CommitMessage is the fixed message of every sync commit.
	CommitMessage = "Merge upstream"

	// PullRequestBody is the fixed body of the autoupdate pull request.
	PullRequestBody = "Sync with the original repository"

	// PullRequestLabel marks the autoupdate pull request.
	PullRequestLabel = "autoupdate"

	// DispatchEvent is fired on the fork after a successful sync so CI can
	// validate the update branch (pull_request workflows do not run for
	// forks).
	DispatchEvent = "validation"
)

// ErrLicenseNotAllowed is returned when the upstream license key is not in
// the allow-list, or no license could be detected at all.
var ErrLicenseNotAllowed = errors.New("upstream license not allowed")

// State is the transient input of one reconciliation, computed fresh on
// every run.
type State struct {
	UpstreamVersion version.Version
	LocalVersion    version.Version
	HasLocal        bool
	InitialSync     bool
	ReleaseBranch   string
}

// Outcome reports what a reconciliation did.
type Outcome struct {
	// Updated is true when a commit was pushed and the PR created or
	// retitled.
	Updated bool

	// Reason explains a no-op outcome.
	Reason string

	State State
}

// Reconciler drives one fork's synchronization with its upstream.
type Reconciler struct {
	cfg    *config.Config
	host   hosting.Service
	ws     Workspace
	logger zerolog.Logger

	// Token authenticates pushes to the fork remote.
	Token string
}

// NewReconciler creates a Reconciler operating on the given workspace.
func NewReconciler(cfg *config.Config, host hosting.Service, ws Workspace, logger zerolog.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, host: host, ws: ws, logger: logger}
}

// Run performs one reconciliation. Re-running with no upstream change is a
// no-op; re-running after a partial failure is safe because the update
// branch is re-derived from fork state every time.
func (r *Reconciler) Run(ctx context.Context) (*Outcome, error) {
	// License and upstream version checks come first: nothing may be
	// mutated when they fail.
	if err := r.checkLicense(ctx); err != nil {
		return nil, err
	}

	state, err := r.readVersions(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.configureRemotes(ctx); err != nil {
		return nil, err
	}

	if outcome, done, err := r.compareVersions(ctx, state); done || err != nil {
		return outcome, err
	}

	if err := r.prepareUpdateBranch(ctx); err != nil {
		return nil, err
	}

	if err := r.mergeUpstream(ctx, state); err != nil {
		return nil, err
	}

	staged, err := r.ws.HasStagedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if !staged {
		r.logger.Info().Msg("no changes found, ending")
		return &Outcome{Reason: "no changes after merge", State: *state}, nil
	}

	if err := r.ws.Commit(ctx, CommitMessage); err != nil {
		return nil, err
	}
	if err := r.ws.Push(ctx, r.cfg.OriginRemote, r.cfg.UpdateBranch); err != nil {
		return nil, fmt.Errorf("push rejected: %w", err)
	}

	if err := r.ensurePullRequest(ctx, state); err != nil {
		return nil, err
	}

	return &Outcome{Updated: true, State: *state}, nil
}

// checkLicense verifies the upstream license against the allow-list.
func (r *Reconciler) checkLicense(ctx context.Context) error {
	key, err := r.host.UpstreamLicense(ctx)
	if err != nil {
		if errors.Is(err, hosting.ErrNotFound) {
			return fmt.Errorf("%w: no license detected", ErrLicenseNotAllowed)
		}
		return fmt.Errorf("failed to get upstream license: %w", err)
	}
	for _, allowed := range r.cfg.AllowedLicenses {
		if key == allowed {
			r.logger.Debug().Str("license", key).Msg("upstream license allowed")
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrLicenseNotAllowed, key)
}

// readVersions parses the upstream manifest version and the fork's local
// one. A missing local manifest flags the initial sync.
func (r *Reconciler) readVersions(ctx context.Context) (*State, error) {
	releaseBranch, err := r.host.UpstreamReleaseBranch(ctx)
	if err != nil {
		return nil, err
	}

	m, err := r.host.UpstreamManifest(ctx, releaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream manifest: %w", err)
	}
	upstream, err := version.Parse(m.Version)
	if err != nil {
		return nil, fmt.Errorf("upstream manifest: %w", err)
	}

	return &State{
		UpstreamVersion: upstream,
		ReleaseBranch:   releaseBranch,
	}, nil
}

// configureRemotes points origin at the fork with push credentials and adds
// the upstream remote.
func (r *Reconciler) configureRemotes(ctx context.Context) error {
	fork, err := r.host.Fork(ctx)
	if err != nil {
		return err
	}
	if fork.Parent == nil {
		return fmt.Errorf("%s is not a fork", fork.FullName)
	}

	originURL := fmt.Sprintf("https://%s:%s@github.com/%s.git", fork.Owner, r.Token, fork.FullName)
	if err := r.ws.SetRemoteURL(ctx, r.cfg.OriginRemote, originURL); err != nil {
		return err
	}
	return r.ws.AddRemote(ctx, r.cfg.UpstreamRemote, fork.Parent.CloneURL)
}

// compareVersions checks out the base branch and decides whether an update
// is due. done is true when the run should stop with the returned outcome.
func (r *Reconciler) compareVersions(ctx context.Context, state *State) (outcome *Outcome, done bool, err error) {
	if err := r.ws.EnsureBranch(ctx, r.cfg.OriginRemote, r.cfg.BaseBranch); err != nil {
		return nil, false, err
	}

	m, err := r.ws.ReadManifest()
	if errors.Is(err, manifest.ErrNotFound) {
		r.logger.Info().Msg("no local version, assuming initial sync")
		state.InitialSync = true
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	local, err := version.Parse(m.Version)
	if err != nil {
		return nil, false, fmt.Errorf("local manifest: %w", err)
	}
	state.LocalVersion = local
	state.HasLocal = true

	if state.UpstreamVersion.LessOrEqual(local) {
		r.logger.Info().
			Stringer("upstream", state.UpstreamVersion).
			Stringer("local", local).
			Msg("no new version to sync")
		return &Outcome{
			Reason: fmt.Sprintf("upstream %s not newer than local %s", state.UpstreamVersion, local),
			State:  *state,
		}, true, nil
	}
	return nil, false, nil
}

// prepareUpdateBranch deterministically re-derives the update branch. When
// no autoupdate PR is open any stale branch ref is deleted first, so a
// previously closed or merged PR never leaks old content into this run.
func (r *Reconciler) prepareUpdateBranch(ctx context.Context) error {
	pr, err := r.host.FindPullRequest(ctx, r.cfg.BaseBranch, r.cfg.UpdateBranch)
	if err != nil {
		return err
	}
	if pr == nil {
		r.logger.Info().Str("branch", r.cfg.UpdateBranch).Msg("removing stale update branch, no PR is open")
		if err := r.host.DeleteRef(ctx, "heads/"+r.cfg.UpdateBranch); err != nil && !errors.Is(err, hosting.ErrNotFound) {
			return err
		}
	}
	return r.ws.EnsureBranch(ctx, r.cfg.OriginRemote, r.cfg.UpdateBranch)
}

// mergeUpstream merges the upstream release branch into the update branch,
// keeps reserved paths at their base-branch content and unstages an
// upstream-declared dependencies directory.
func (r *Reconciler) mergeUpstream(ctx context.Context, state *State) error {
	if err := r.ws.Fetch(ctx, r.cfg.UpstreamRemote); err != nil {
		return err
	}

	// Reserved paths must not participate in conflict resolution.
	r.logger.Debug().Strs("paths", r.cfg.ReservedPaths).Msg("removing reserved paths")
	if err := r.ws.RemovePaths(r.cfg.ReservedPaths); err != nil {
		return err
	}

	ref := r.cfg.UpstreamRemote + "/" + state.ReleaseBranch
	r.logger.Info().Str("ref", ref).Msg("merging latest release")
	err := r.ws.Merge(ctx, git.MergeOptions{Ref: ref, AllowUnrelated: state.InitialSync})
	if errors.Is(err, git.ErrUnresolvedConflict) {
		// Rename/delete conflicts the theirs strategy cannot settle:
		// accept upstream's tree wholesale.
		r.logger.Warn().Err(err).Msg("merge conflict, taking upstream tree")
		err = r.ws.TakeTheirs(ctx)
	}
	if err != nil {
		return err
	}

	baseRef := r.cfg.OriginRemote + "/" + r.cfg.BaseBranch
	for _, path := range r.cfg.ReservedPaths {
		if err := r.ws.RestorePathFrom(ctx, baseRef, path); err != nil {
			// Upstream may never have carried this path; the fork adds it
			// on first release.
			r.logger.Warn().Str("path", path).Err(err).Msg("cannot checkout reserved path")
		}
	}

	return r.excludeDependencies(ctx)
}

// excludeDependencies unstages the upstream-declared dependencies dir so
// vendored third-party code stays out of the sync commit.
func (r *Reconciler) excludeDependencies(ctx context.Context) error {
	cfg, err := r.host.UpstreamSyncConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || cfg.DependenciesDir == manifest.DefaultDependenciesDir {
		r.logger.Debug().Msg("no dependencies_dir in upstream config")
		return nil
	}

	r.logger.Info().Str("dir", cfg.DependenciesDir).Msg("unstaging dependencies directory")
	if err := r.ws.UnstagePath(ctx, cfg.DependenciesDir); err != nil {
		r.logger.Warn().Err(err).Msg("cannot unstage dependencies directory")
	}
	return nil
}

// ensurePullRequest creates the autoupdate PR or retitles the open one, and
// requests review. At most one open autoupdate PR exists per fork.
func (r *Reconciler) ensurePullRequest(ctx context.Context, state *State) error {
	title := "Version " + state.UpstreamVersion.String()

	pr, err := r.host.FindPullRequest(ctx, r.cfg.BaseBranch, r.cfg.UpdateBranch)
	if err != nil {
		return err
	}
	if pr == nil {
		r.logger.Info().Str("title", title).Msg("creating pull request")
		pr, err = r.host.CreatePullRequest(ctx, title, PullRequestBody, r.cfg.BaseBranch, r.cfg.UpdateBranch, []string{PullRequestLabel})
		if err != nil {
			return err
		}
	} else {
		r.logger.Info().Str("title", title).Msg("updating pull request title")
		if err := r.host.UpdatePullRequestTitle(ctx, pr.Number, title); err != nil {
			return err
		}
	}

	reviewer := r.cfg.Owner
	if reviewer == "" {
		reviewer, err = r.host.Viewer(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("cannot resolve reviewer")
			return nil
		}
	}
	// A failed review request must not invalidate a successful sync.
	if err := r.host.RequestReview(ctx, pr.Number, []string{reviewer}); err != nil {
		r.logger.Warn().Err(err).Msg("failed to request review")
	}
	return nil
}
