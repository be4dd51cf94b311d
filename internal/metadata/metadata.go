package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Extension is the only audio file extension handled by mp3tag.
const Extension = ".mp3"

// Source records which mechanism produced a TrackInfo.
type Source string

const (
	SourceEmbedded Source = "id3"
	SourceFilename Source = "filename"
	SourceManual   Source = "manual"
	SourceSpotify  Source = "spotify"
	SourceMelon    Source = "melon"
)

// Valid reports whether s is one of the known provenances.
func (s Source) Valid() bool {
	switch s {
	case SourceEmbedded, SourceFilename, SourceManual, SourceSpotify, SourceMelon:
		return true
	}
	return false
}

var (
	ErrNoArtwork    = errors.New("no album art found")
	ErrNoArtworkURL = errors.New("no album art reference")
)

const unknown = "Unknown"

// TrackInfo contains metadata for a single audio track. Every field except
// Source is optional: a nil pointer, nil AlbumArt or empty AlbumArtURL means
// the value is not known.
type TrackInfo struct {
	Title       *string
	Artist      *string
	Album       *string
	AlbumArtist *string
	TrackNumber *int
	Year        *int
	Genre       *string
	AlbumArt    []byte
	AlbumArtURL string // image URL or detail page reference, depending on Source
	ArtistRef   string // catalog id of the primary artist
	Source      Source
}

// String returns a pointer to s, for building TrackInfo literals.
func String(s string) *string { return &s }

// Int returns a pointer to i, for building TrackInfo literals.
func Int(i int) *int { return &i }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func display(s *string) string {
	if s == nil {
		return unknown
	}
	return *s
}

func (t TrackInfo) DisplayTitle() string  { return display(t.Title) }
func (t TrackInfo) DisplayArtist() string { return display(t.Artist) }
func (t TrackInfo) DisplayAlbum() string  { return display(t.Album) }

// Summary formats the record as "artist - title [album]".
func (t TrackInfo) Summary() string {
	return fmt.Sprintf("%s - %s [%s]", t.DisplayArtist(), t.DisplayTitle(), t.DisplayAlbum())
}

// HasUsableTags reports whether title, artist or album is non-empty.
func (t TrackInfo) HasUsableTags() bool {
	return deref(t.Title) != "" || deref(t.Artist) != "" || deref(t.Album) != ""
}

// Clone returns a deep copy so callers can hand records to other goroutines.
func (t TrackInfo) Clone() TrackInfo {
	c := t
	c.Title = clonePtr(t.Title)
	c.Artist = clonePtr(t.Artist)
	c.Album = clonePtr(t.Album)
	c.AlbumArtist = clonePtr(t.AlbumArtist)
	c.TrackNumber = clonePtr(t.TrackNumber)
	c.Year = clonePtr(t.Year)
	c.Genre = clonePtr(t.Genre)
	if t.AlbumArt != nil {
		c.AlbumArt = append([]byte(nil), t.AlbumArt...)
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AudioFile is a snapshot of one file on disk and the tags read from it.
type AudioFile struct {
	Path    string
	Tags    *TrackInfo
	HasTags bool
	TagErr  error // why the embedded tag could not be read, nil otherwise
}

// Filename returns the base name of the file.
func (f AudioFile) Filename() string {
	if f.Path == "" {
		return unknown
	}
	return filepath.Base(f.Path)
}

// Apply updates the snapshot after a successful write (and optional rename).
func (f *AudioFile) Apply(path string, tags TrackInfo) {
	f.Path = path
	f.Tags = &tags
	f.HasTags = tags.HasUsableTags()
	f.TagErr = nil
}

// HasExtension reports whether path carries the audio extension, ignoring case.
func HasExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// Provider is the interface that music catalogs must implement.
//
// Search results carry an AlbumArtURL but no AlbumArt; FetchDetail turns a
// search result into a complete record.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]TrackInfo, error)
	FetchAlbumArt(ctx context.Context, track TrackInfo) ([]byte, error)
	FetchDetail(ctx context.Context, track TrackInfo) (TrackInfo, error)
}

// ArtFetcher is the part of Provider needed by FetchDetailWithArt.
type ArtFetcher interface {
	FetchAlbumArt(ctx context.Context, track TrackInfo) ([]byte, error)
}

// FetchDetailWithArt is the default FetchDetail: it downloads the album art
// and attaches it, leaving every other field as given.
func FetchDetailWithArt(ctx context.Context, p ArtFetcher, track TrackInfo) (TrackInfo, error) {
	art, err := p.FetchAlbumArt(ctx, track)
	if err != nil {
		return TrackInfo{}, err
	}
	detailed := track.Clone()
	detailed.AlbumArt = art
	return detailed, nil
}
