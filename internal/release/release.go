// Package release publishes packaged build artifacts as hosting-service
// releases and maintains the committed release metadata file.
package release

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openfork/forksync/internal/hosting"
)

const (
	releaseNameFormat = "Release version %s"
	releaseBodyFormat = "Version %s"
)

// Publisher creates releases on the fork.
type Publisher struct {
	host   hosting.Service
	logger zerolog.Logger
}

// NewPublisher returns a Publisher backed by host.
func NewPublisher(host hosting.Service, logger zerolog.Logger) *Publisher {
	return &Publisher{host: host, logger: logger}
}

// Publish creates a draft release tagged tag from target, uploads the given
// asset archives and undrafts it. The draft is deleted when any upload or
// the final publish fails, so a half-published release never survives.
func (p *Publisher) Publish(ctx context.Context, tag, target string, assetPaths []string) error {
	name := fmt.Sprintf(releaseNameFormat, tag)
	body := fmt.Sprintf(releaseBodyFormat, tag)

	p.logger.Info().Str("tag", tag).Strs("assets", assetPaths).Msg("creating draft release")
	rel, err := p.host.CreateRelease(ctx, tag, target, name, body, true)
	if err != nil {
		return fmt.Errorf("failed to create release %s: %w", tag, err)
	}

	if err := p.finalize(ctx, rel.ID, name, body, assetPaths); err != nil {
		p.logger.Error().Err(err).Msg("failed to finalize release, removing draft")
		if delErr := p.host.DeleteRelease(ctx, rel.ID); delErr != nil {
			p.logger.Error().Err(delErr).Msg("failed to remove draft release")
		}
		return err
	}

	p.logger.Info().Str("tag", tag).Msg("release published")
	return nil
}

func (p *Publisher) finalize(ctx context.Context, releaseID int64, name, body string, assetPaths []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range assetPaths {
		path := path
		g.Go(func() error {
			p.logger.Debug().Str("asset", path).Msg("uploading asset")
			if err := p.host.UploadReleaseAsset(gctx, releaseID, path); err != nil {
				return fmt.Errorf("failed to upload %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return p.host.PublishRelease(ctx, releaseID, name, body)
}
