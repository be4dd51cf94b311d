// Package provider builds the configured metadata catalogs.
//
// The Provider interface is defined in internal/metadata (metadata.Provider),
// following the Go convention of defining interfaces where they are consumed.
// Each sub-package here implements that interface for a specific service.
package provider

import (
	"context"
	"fmt"
	"time"

	"mp3tag/internal/config"
	"mp3tag/internal/httpclient"
	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
	"mp3tag/internal/provider/melon"
	"mp3tag/internal/provider/spotify"
)

// detailMaxStale lets FetchAlbumArt reuse the page FetchDetail just loaded.
const detailMaxStale = 5 * time.Minute

// New builds every source in cfg.Sources, in order, and chains them.
// Authentication happens here, so bad credentials fail before any work starts.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*metadata.ChainProvider, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no metadata sources configured")
	}

	providers := make([]metadata.Provider, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		p, err := newSource(ctx, name, cfg, log)
		if err != nil {
			return nil, err
		}
		log.Debug("source %s ready", p.Name())
		providers = append(providers, p)
	}
	return metadata.NewChainProvider(providers, log), nil
}

func newSource(ctx context.Context, name string, cfg config.Config, log *logger.Logger) (metadata.Provider, error) {
	switch name {
	case config.SourceSpotify:
		client := httpclient.New(httpclient.Options{Logger: log})
		p, err := spotify.New(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, client, log)
		if err != nil {
			return nil, fmt.Errorf("spotify: %w", err)
		}
		return p, nil
	case config.SourceMelon:
		userAgent := cfg.Melon.UserAgent
		if userAgent == "" {
			userAgent = melon.DefaultUserAgent
		}
		client := httpclient.New(httpclient.Options{
			UserAgent: userAgent,
			RateLimit: cfg.Melon.RateLimit,
			Cache:     true,
			MaxStale:  detailMaxStale,
			Logger:    log,
		})
		return melon.New(client, log), nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
