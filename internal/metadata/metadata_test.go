package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Source{SourceEmbedded, SourceFilename, SourceManual, SourceSpotify, SourceMelon} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Source("").Valid())
	assert.False(t, Source("deezer").Valid())
}

func TestSummary(t *testing.T) {
	t.Parallel()

	info := TrackInfo{Title: String("Blueming"), Artist: String("IU")}
	assert.Equal(t, "IU - Blueming [Unknown]", info.Summary())
}

func TestHasUsableTags(t *testing.T) {
	t.Parallel()

	assert.False(t, TrackInfo{}.HasUsableTags())
	assert.False(t, TrackInfo{Title: String(""), Genre: String("Pop")}.HasUsableTags())
	assert.True(t, TrackInfo{Album: String("Love poem")}.HasUsableTags())
}

func TestAudioFileApply(t *testing.T) {
	t.Parallel()

	f := AudioFile{Path: "/m/01.mp3"}
	f.Apply("/m/IU - Blueming.mp3", TrackInfo{Title: String("Blueming"), Source: SourceSpotify})
	assert.Equal(t, "IU - Blueming.mp3", f.Filename())
	assert.True(t, f.HasTags)
	require.NotNil(t, f.Tags)
	assert.Equal(t, SourceSpotify, f.Tags.Source)
}

func TestHasExtension(t *testing.T) {
	t.Parallel()

	assert.True(t, HasExtension("a.mp3"))
	assert.True(t, HasExtension("a.MP3"))
	assert.False(t, HasExtension("a.flac"))
	assert.False(t, HasExtension("mp3"))
}

type artFunc func(context.Context, TrackInfo) ([]byte, error)

func (f artFunc) FetchAlbumArt(ctx context.Context, t TrackInfo) ([]byte, error) { return f(ctx, t) }

func TestFetchDetailWithArt(t *testing.T) {
	t.Parallel()

	track := TrackInfo{Title: String("Blueming"), AlbumArtURL: "https://img", Source: SourceSpotify}
	got, err := FetchDetailWithArt(context.Background(), artFunc(func(_ context.Context, t TrackInfo) ([]byte, error) {
		return []byte(t.AlbumArtURL), nil
	}), track)
	require.NoError(t, err)
	assert.Equal(t, []byte("https://img"), got.AlbumArt)
	assert.Equal(t, "Blueming", *got.Title)
	assert.Nil(t, track.AlbumArt)

	_, err = FetchDetailWithArt(context.Background(), artFunc(func(context.Context, TrackInfo) ([]byte, error) {
		return nil, ErrNoArtwork
	}), track)
	assert.True(t, errors.Is(err, ErrNoArtwork))
}
