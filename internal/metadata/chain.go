package metadata

import (
	"context"
	"errors"
	"fmt"

	"mp3tag/internal/logger"
)

// ErrNoProvider is returned when a record names a source the chain does not hold.
var ErrNoProvider = errors.New("no provider for source")

// ChainProvider tries multiple providers in order, returning results from
// the first one that succeeds with non-empty results. Detail and artwork
// requests go to the provider that produced the record.
type ChainProvider struct {
	providers []Provider
	logger    *logger.Logger
}

// NewChainProvider creates a ChainProvider that queries providers in order.
func NewChainProvider(providers []Provider, log *logger.Logger) *ChainProvider {
	return &ChainProvider{providers: providers, logger: log}
}

func (c *ChainProvider) Name() string { return "chain" }

// Providers returns the providers in search order.
func (c *ChainProvider) Providers() []Provider { return c.providers }

func (c *ChainProvider) Search(ctx context.Context, query string) ([]TrackInfo, error) {
	var errs []error
	for _, p := range c.providers {
		results, err := p.Search(ctx, query)
		if err != nil {
			c.logger.Debug("provider %s failed: %v", p.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	// An error is only reported when no provider could answer at all.
	if len(errs) > 0 && len(errs) == len(c.providers) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (c *ChainProvider) FetchAlbumArt(ctx context.Context, track TrackInfo) ([]byte, error) {
	p, err := c.route(track)
	if err != nil {
		return nil, err
	}
	return p.FetchAlbumArt(ctx, track)
}

func (c *ChainProvider) FetchDetail(ctx context.Context, track TrackInfo) (TrackInfo, error) {
	p, err := c.route(track)
	if err != nil {
		return TrackInfo{}, err
	}
	return p.FetchDetail(ctx, track)
}

func (c *ChainProvider) route(track TrackInfo) (Provider, error) {
	for _, p := range c.providers {
		if p.Name() == string(track.Source) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrNoProvider, track.Source)
}
