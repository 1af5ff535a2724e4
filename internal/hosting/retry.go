package hosting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/openfork/forksync/internal/manifest"
)

// RetryConfig configures retry behavior for transient API errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryService wraps a Service with automatic retry on transient errors.
// Reads are retried; mutations are not, because a timed-out create may have
// succeeded server-side and a repeat would duplicate it.
type RetryService struct {
	inner  Service
	config *RetryConfig
}

// NewRetryService creates a RetryService wrapping the given Service.
func NewRetryService(inner Service, cfg *RetryConfig) *RetryService {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryService{inner: inner, config: cfg}
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (rs *RetryService) backoff(attempt int) time.Duration {
	base := float64(rs.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rs.config.MaxBackoff) {
		base = float64(rs.config.MaxBackoff)
	}
	jitter := base * rs.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rs *RetryService) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rs.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rs.config.MaxRetries {
			d := rs.backoff(attempt)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rs.config.MaxRetries)
}

// --- Delegate all Service methods, retrying the read-only ones ---

func (rs *RetryService) Fork(ctx context.Context) (r *Repository, err error) {
	err = rs.retry(ctx, "get fork", func() error {
		r, err = rs.inner.Fork(ctx)
		return err
	})
	return
}

func (rs *RetryService) Viewer(ctx context.Context) (login string, err error) {
	err = rs.retry(ctx, "get viewer", func() error {
		login, err = rs.inner.Viewer(ctx)
		return err
	})
	return
}

func (rs *RetryService) UpstreamReleaseBranch(ctx context.Context) (branch string, err error) {
	err = rs.retry(ctx, "get release branch", func() error {
		branch, err = rs.inner.UpstreamReleaseBranch(ctx)
		return err
	})
	return
}

func (rs *RetryService) UpstreamManifest(ctx context.Context, ref string) (m *manifest.Manifest, err error) {
	err = rs.retry(ctx, "get upstream manifest", func() error {
		m, err = rs.inner.UpstreamManifest(ctx, ref)
		return err
	})
	return
}

func (rs *RetryService) UpstreamSyncConfig(ctx context.Context) (c *manifest.SyncConfig, err error) {
	err = rs.retry(ctx, "get upstream sync config", func() error {
		c, err = rs.inner.UpstreamSyncConfig(ctx)
		return err
	})
	return
}

func (rs *RetryService) UpstreamLicense(ctx context.Context) (key string, err error) {
	err = rs.retry(ctx, "get upstream license", func() error {
		key, err = rs.inner.UpstreamLicense(ctx)
		return err
	})
	return
}

func (rs *RetryService) FindPullRequest(ctx context.Context, base, head string) (pr *PullRequest, err error) {
	err = rs.retry(ctx, "find pull request", func() error {
		pr, err = rs.inner.FindPullRequest(ctx, base, head)
		return err
	})
	return
}

func (rs *RetryService) CreatePullRequest(ctx context.Context, title, body, base, head string, labels []string) (*PullRequest, error) {
	return rs.inner.CreatePullRequest(ctx, title, body, base, head, labels)
}

func (rs *RetryService) UpdatePullRequestTitle(ctx context.Context, number int, title string) error {
	// Retitling is idempotent.
	return rs.retry(ctx, "update pull request title", func() error {
		return rs.inner.UpdatePullRequestTitle(ctx, number, title)
	})
}

func (rs *RetryService) RequestReview(ctx context.Context, number int, reviewers []string) error {
	return rs.inner.RequestReview(ctx, number, reviewers)
}

func (rs *RetryService) DeleteRef(ctx context.Context, ref string) error {
	return rs.retry(ctx, "delete ref", func() error {
		return rs.inner.DeleteRef(ctx, ref)
	})
}

func (rs *RetryService) Branches(ctx context.Context) (names []string, err error) {
	err = rs.retry(ctx, "list branches", func() error {
		names, err = rs.inner.Branches(ctx)
		return err
	})
	return
}

func (rs *RetryService) Tags(ctx context.Context) (names []string, err error) {
	err = rs.retry(ctx, "list tags", func() error {
		names, err = rs.inner.Tags(ctx)
		return err
	})
	return
}

func (rs *RetryService) Releases(ctx context.Context) (rels []*Release, err error) {
	err = rs.retry(ctx, "list releases", func() error {
		rels, err = rs.inner.Releases(ctx)
		return err
	})
	return
}

func (rs *RetryService) CreateRelease(ctx context.Context, tag, target, name, body string, draft bool) (*Release, error) {
	return rs.inner.CreateRelease(ctx, tag, target, name, body, draft)
}

func (rs *RetryService) UploadReleaseAsset(ctx context.Context, releaseID int64, path string) error {
	return rs.inner.UploadReleaseAsset(ctx, releaseID, path)
}

func (rs *RetryService) PublishRelease(ctx context.Context, releaseID int64, name, body string) error {
	return rs.inner.PublishRelease(ctx, releaseID, name, body)
}

func (rs *RetryService) DeleteRelease(ctx context.Context, releaseID int64) error {
	return rs.retry(ctx, "delete release", func() error {
		return rs.inner.DeleteRelease(ctx, releaseID)
	})
}

func (rs *RetryService) LatestRelease(ctx context.Context) (rel *Release, err error) {
	err = rs.retry(ctx, "get latest release", func() error {
		rel, err = rs.inner.LatestRelease(ctx)
		return err
	})
	return
}

func (rs *RetryService) EditRepository(ctx context.Context, edit RepositoryEdit) error {
	return rs.retry(ctx, "edit repository", func() error {
		return rs.inner.EditRepository(ctx, edit)
	})
}

func (rs *RetryService) WatchFork(ctx context.Context) error {
	return rs.retry(ctx, "watch fork", func() error {
		return rs.inner.WatchFork(ctx)
	})
}

func (rs *RetryService) Collaborators(ctx context.Context) (logins []string, err error) {
	err = rs.retry(ctx, "list collaborators", func() error {
		logins, err = rs.inner.Collaborators(ctx)
		return err
	})
	return
}

func (rs *RetryService) InviteCollaborator(ctx context.Context, login, permission string) error {
	return rs.inner.InviteCollaborator(ctx, login, permission)
}

func (rs *RetryService) Dispatch(ctx context.Context, eventType string) error {
	return rs.inner.Dispatch(ctx, eventType)
}

var _ Service = (*RetryService)(nil)
