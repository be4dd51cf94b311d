// Package melon implements metadata.Provider by scraping melon.com pages.
package melon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
)

const (
	defaultBaseURL   = "https://www.melon.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	resizeSegment = "/melon/resize/"

	labelReleaseDate = "발매일"
	labelGenre       = "장르"
	labelAlbum       = "앨범"
)

var (
	selectRow       = cascadia.MustCompile(`tr`)
	selectSongID    = cascadia.MustCompile(`input.input_check`)
	selectTitle     = cascadia.MustCompile(`a.fc_gray`)
	selectArtist    = cascadia.MustCompile(`div#artistName a.fc_mgray`)
	selectRowLinks  = cascadia.MustCompile(`a.fc_mgray`)
	selectMetaLabel = cascadia.MustCompile(`div.meta dl.list dt`)
	selectMetaValue = cascadia.MustCompile(`div.meta dl.list dd`)
	selectCover     = cascadia.MustCompile(`div#d_song_org img`)
)

// Client scrapes the Melon search and song detail pages. It needs no credentials.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	baseURL    string
}

// New creates a Melon client. The http client should send a browser user agent.
func New(httpClient *http.Client, log *logger.Logger) *Client {
	return newClient(httpClient, log, defaultBaseURL)
}

func newClient(httpClient *http.Client, log *logger.Logger, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{httpClient: httpClient, logger: log, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (c *Client) Name() string { return string(metadata.SourceMelon) }

// Search fetches the song search page. Each result carries the song's detail
// page URL as its AlbumArtURL; art and release data need FetchDetail.
func (c *Client) Search(ctx context.Context, query string) ([]metadata.TrackInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{
		"q":           {query},
		"section":     {""},
		"searchGnbYn": {"Y"},
		"kkoSpl":      {"N"},
		"kkoDpType":   {""},
	}
	doc, err := c.getDocument(ctx, c.baseURL+"/search/song/index.htm?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("melon search failed: %w", err)
	}

	var results []metadata.TrackInfo
	for _, row := range selectRow.MatchAll(doc) {
		info, ok := c.parseRow(row)
		if ok {
			results = append(results, info)
		}
	}
	c.logger.Debug("melon: %d results for %q", len(results), query)
	return results, nil
}

func (c *Client) parseRow(row *html.Node) (metadata.TrackInfo, bool) {
	input := selectSongID.MatchFirst(row)
	if input == nil {
		return metadata.TrackInfo{}, false
	}
	songID, ok := attr(input, "value")
	if !ok {
		return metadata.TrackInfo{}, false
	}

	titleLink := selectTitle.MatchFirst(row)
	if titleLink == nil {
		return metadata.TrackInfo{}, false
	}
	title, _ := attr(titleLink, "title")
	if title == "" {
		return metadata.TrackInfo{}, false
	}

	info := metadata.TrackInfo{
		Title:       metadata.String(title),
		AlbumArtURL: c.detailURL(songID),
		Source:      metadata.SourceMelon,
	}
	if a := selectArtist.MatchFirst(row); a != nil {
		if artist := strings.TrimSpace(textOf(a)); artist != "" {
			info.Artist = metadata.String(artist)
		}
	}
	for _, link := range selectRowLinks.MatchAll(row) {
		href, _ := attr(link, "href")
		if !strings.Contains(strings.ToLower(href), "album") {
			continue
		}
		if album := strings.TrimSpace(textOf(link)); album != "" {
			info.Album = metadata.String(album)
		}
		break
	}
	return info, true
}

func (c *Client) detailURL(songID string) string {
	return c.baseURL + "/song/detail.htm?" + url.Values{"songId": {songID}}.Encode()
}

// FetchDetail loads the song detail page referenced by AlbumArtURL and fills
// in year, genre, album and the original-size cover. A failed cover download
// leaves AlbumArt empty without error.
func (c *Client) FetchDetail(ctx context.Context, track metadata.TrackInfo) (metadata.TrackInfo, error) {
	if track.AlbumArtURL == "" {
		return metadata.TrackInfo{}, metadata.ErrNoArtworkURL
	}

	doc, err := c.getDocument(ctx, track.AlbumArtURL)
	if err != nil {
		return metadata.TrackInfo{}, fmt.Errorf("melon detail page failed: %w", err)
	}

	detailed := track.Clone()
	labels := selectMetaLabel.MatchAll(doc)
	values := selectMetaValue.MatchAll(doc)
	for i := 0; i < len(labels) && i < len(values); i++ {
		value := cleanText(textOf(values[i]))
		switch cleanText(textOf(labels[i])) {
		case labelReleaseDate:
			if year := metadata.ParseYear(value); year != nil {
				detailed.Year = year
			}
		case labelGenre:
			if value != "" {
				detailed.Genre = metadata.String(value)
			}
		case labelAlbum:
			if value != "" {
				detailed.Album = metadata.String(value)
			}
		}
	}

	if img := selectCover.MatchFirst(doc); img != nil {
		if src, ok := attr(img, "src"); ok && src != "" {
			art, err := c.download(ctx, track.AlbumArtURL, originalImageURL(src))
			if err != nil {
				c.logger.Debug("melon: cover download failed: %v", err)
			} else {
				detailed.AlbumArt = art
			}
		}
	}
	return detailed, nil
}

// FetchAlbumArt runs FetchDetail and returns only the cover.
func (c *Client) FetchAlbumArt(ctx context.Context, track metadata.TrackInfo) ([]byte, error) {
	detailed, err := c.FetchDetail(ctx, track)
	if err != nil {
		return nil, err
	}
	if len(detailed.AlbumArt) == 0 {
		return nil, metadata.ErrNoArtwork
	}
	return detailed.AlbumArt, nil
}

func (c *Client) getDocument(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("req page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("page returned %d", resp.StatusCode)
	}

	node, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return node, nil
}

func (c *Client) download(ctx context.Context, pageURL, src string) ([]byte, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// originalImageURL drops the thumbnail resize suffix from a cover URL.
func originalImageURL(src string) string {
	if i := strings.Index(src, resizeSegment); i >= 0 {
		return src[:i]
	}
	return src
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

func textOf(n *html.Node) string {
	var b strings.Builder
	iterText(n, func(s string) { b.WriteString(s) })
	return b.String()
}

func iterText(n *html.Node, f func(string)) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		f(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		iterText(c, f)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
