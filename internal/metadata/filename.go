package metadata

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const artistTitleSep = " - "

// ParseFilename guesses artist and title from a file name. The extension is
// stripped before parsing; see ParseStem for the supported patterns.
func ParseFilename(path string) TrackInfo {
	base := filepath.Base(path)
	return ParseStem(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ParseStem guesses artist and title from a file name without extension.
// Patterns are tried in order and the first full match wins:
//
//	"01 Artist - Title", "01. Artist - Title"
//	"Artist - Title"
//	"01. Title", "01 Title"
//	"Title"
//
// A stem made only of digits ends up as the title.
func ParseStem(stem string) TrackInfo {
	stem = strings.TrimSpace(norm.NFC.String(stem))

	if rest, ok := stripTrackNumber(stem); ok {
		if info, ok := parseArtistTitle(rest); ok {
			return info
		}
	}
	if info, ok := parseArtistTitle(stem); ok {
		return info
	}
	if rest, ok := stripTrackNumber(stem); ok {
		if title := strings.TrimSpace(rest); title != "" {
			return TrackInfo{Title: String(title), Source: SourceFilename}
		}
	}
	return TrackInfo{Title: String(stem), Source: SourceFilename}
}

// BuildSearchQuery joins the known artist and title with a space. An empty
// result means there is nothing to search for.
func BuildSearchQuery(info TrackInfo) string {
	var parts []string
	if info.Artist != nil {
		parts = append(parts, *info.Artist)
	}
	if info.Title != nil {
		parts = append(parts, *info.Title)
	}
	return strings.Join(parts, " ")
}

func parseArtistTitle(s string) (TrackInfo, bool) {
	artist, title, ok := strings.Cut(s, artistTitleSep)
	if !ok {
		return TrackInfo{}, false
	}
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if artist == "" || title == "" {
		return TrackInfo{}, false
	}
	return TrackInfo{
		Title:  String(title),
		Artist: String(artist),
		Source: SourceFilename,
	}, true
}

// stripTrackNumber removes a leading run of digits, one optional '.' and any
// following whitespace. It fails when there are no digits or nothing is left.
func stripTrackNumber(s string) (string, bool) {
	if len([]rune(s)) < 2 {
		return "", false
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", false
	}
	rest := strings.TrimPrefix(s[i:], ".")
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return "", false
	}
	return rest, true
}
