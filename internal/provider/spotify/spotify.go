// Package spotify implements metadata.Provider on top of the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
)

// ErrMissingCredentials is returned by New when the client id or secret is empty.
var ErrMissingCredentials = errors.New("spotify client_id and client_secret are required")

const (
	defaultAPIURL = "https://api.spotify.com/v1"
	searchLimit   = 10
)

// Client is a Spotify Web API client that implements the metadata.Provider interface.
type Client struct {
	api        *spotify.Client
	httpClient *http.Client
	logger     *logger.Logger

	cacheMu    sync.Mutex
	genreCache map[spotify.ID][]string
}

// New exchanges the client credentials for an access token and returns a
// ready client. Token requests, API calls and image downloads all go
// through httpClient.
func New(ctx context.Context, clientID, clientSecret string, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	return newClient(ctx, clientID, clientSecret, httpClient, log, spotifyauth.TokenURL, defaultAPIURL)
}

func newClient(ctx context.Context, clientID, clientSecret string, httpClient *http.Client, log *logger.Logger, tokenURL, apiURL string) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, ErrMissingCredentials
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.Discard()
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	// The token source keeps this context for refreshes, so it must not be
	// tied to a single request.
	authCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, httpClient)
	token, err := cfg.Token(authCtx)
	if err != nil {
		return nil, fmt.Errorf("spotify auth failed: %w", err)
	}
	log.Debug("spotify: token acquired, expires %s", token.Expiry.Format("15:04:05"))

	authed := oauth2.NewClient(authCtx, oauth2.ReuseTokenSource(token, cfg.TokenSource(authCtx)))
	return &Client{
		api:        spotify.New(authed, spotify.WithBaseURL(strings.TrimSuffix(apiURL, "/")+"/")),
		httpClient: httpClient,
		logger:     log,
		genreCache: make(map[spotify.ID][]string),
	}, nil
}

func (c *Client) Name() string { return string(metadata.SourceSpotify) }

// Search queries the Spotify search API and returns matching tracks.
func (c *Client) Search(ctx context.Context, query string) ([]metadata.TrackInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	res, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(searchLimit))
	if err != nil {
		return nil, fmt.Errorf("spotify search request failed: %w", err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	results := make([]metadata.TrackInfo, 0, len(res.Tracks.Tracks))
	for _, item := range res.Tracks.Tracks {
		results = append(results, convertTrack(item))
	}
	c.logger.Debug("spotify: %d results for %q", len(results), query)
	return results, nil
}

// FetchAlbumArt downloads the image stored in the record's AlbumArtURL.
func (c *Client) FetchAlbumArt(ctx context.Context, track metadata.TrackInfo) ([]byte, error) {
	if track.AlbumArtURL == "" {
		return nil, metadata.ErrNoArtworkURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.AlbumArtURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create artwork request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork data: %w", err)
	}
	return data, nil
}

// FetchDetail attaches the album art and, when the primary artist lists
// genres, fills in Genre.
func (c *Client) FetchDetail(ctx context.Context, track metadata.TrackInfo) (metadata.TrackInfo, error) {
	detailed, err := metadata.FetchDetailWithArt(ctx, c, track)
	if err != nil {
		return metadata.TrackInfo{}, err
	}
	if detailed.Genre != nil {
		return detailed, nil
	}

	if track.ArtistRef == "" {
		return detailed, nil
	}
	artistID := spotify.ID(track.ArtistRef)

	genres, err := c.getArtistGenres(ctx, artistID)
	if err != nil {
		c.logger.Debug("spotify: genres for %s: %v", artistID, err)
		return detailed, nil
	}
	if len(genres) > 0 {
		detailed.Genre = metadata.String(formatGenres(genres))
	}
	return detailed, nil
}

// getArtistGenres returns genres for an artist, using cache when available.
func (c *Client) getArtistGenres(ctx context.Context, artistID spotify.ID) ([]string, error) {
	c.cacheMu.Lock()
	if genres, ok := c.genreCache[artistID]; ok {
		c.cacheMu.Unlock()
		return genres, nil
	}
	c.cacheMu.Unlock()

	artist, err := c.api.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.genreCache[artistID] = artist.Genres
	c.cacheMu.Unlock()

	return artist.Genres, nil
}

func convertTrack(item spotify.FullTrack) metadata.TrackInfo {
	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	info := metadata.TrackInfo{
		Title:       metadata.String(item.Name),
		Artist:      metadata.String(strings.Join(artists, ", ")),
		Album:       metadata.String(item.Album.Name),
		TrackNumber: metadata.Int(int(item.TrackNumber)),
		Year:        metadata.ParseYear(item.Album.ReleaseDate),
		AlbumArtURL: largestImage(item.Album.Images),
		Source:      metadata.SourceSpotify,
	}
	if len(item.Artists) > 0 {
		info.AlbumArtist = metadata.String(item.Artists[0].Name)
		info.ArtistRef = string(item.Artists[0].ID)
	}
	return info
}

// largestImage returns the URL of the widest image, preferring later entries on ties.
func largestImage(images []spotify.Image) string {
	var (
		url   string
		width = -1
	)
	for _, img := range images {
		if w := int(img.Width); w >= width {
			url, width = img.URL, w
		}
	}
	return url
}

// formatGenres title-cases and joins genres (max 3).
func formatGenres(genres []string) string {
	limit := min(len(genres), 3)
	formatted := make([]string, limit)
	for i := 0; i < limit; i++ {
		formatted[i] = titleCase(genres[i])
	}
	return strings.Join(formatted, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
