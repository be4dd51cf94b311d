package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp3tag/internal/metadata"
)

type fakeSpotify struct {
	*httptest.Server
	tokenCalls  atomic.Int32
	artistCalls atomic.Int32
	lastQuery   atomic.Value
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("token: expected POST, got %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-id" || pass != "test-secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		f.lastQuery.Store(q.Get("q") + "|" + q.Get("type") + "|" + q.Get("limit"))
		if q.Get("q") == "fail" {
			http.Error(w, `{"error":{"status":500,"message":"boom"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tracks": {
				"items": [{
					"name": "Eight",
					"track_number": 1,
					"artists": [
						{"id": "iu", "name": "IU"},
						{"id": "suga", "name": "SUGA"}
					],
					"album": {
						"name": "eight",
						"release_date": "2020-05-06",
						"images": [
							{"url": "` + f.URL + `/img/300", "width": 300, "height": 300},
							{"url": "` + f.URL + `/img/640", "width": 640, "height": 640},
							{"url": "` + f.URL + `/img/64", "width": 64, "height": 64}
						]
					}
				}, {
					"name": "Untitled",
					"track_number": 2,
					"artists": [],
					"album": {"name": "", "release_date": "", "images": []}
				}]
			}
		}`))
	})

	mux.HandleFunc("/v1/artists/iu", func(w http.ResponseWriter, r *http.Request) {
		f.artistCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"iu","name":"IU","genres":["k-pop","k-pop ballad","korean r&b","soundtrack"]}`))
	})

	mux.HandleFunc("/img/640", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSpotify) client(t *testing.T) *Client {
	t.Helper()
	c, err := newClient(context.Background(), "test-id", "test-secret", f.Client(), nil, f.URL+"/api/token", f.URL+"/v1")
	require.NoError(t, err)
	return c
}

func TestSearch(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client(t)

	results, err := c.Search(context.Background(), "IU Eight")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "IU Eight|track|10", f.lastQuery.Load())

	r := results[0]
	assert.Equal(t, "Eight", *r.Title)
	assert.Equal(t, "IU, SUGA", *r.Artist)
	assert.Equal(t, "IU", *r.AlbumArtist)
	assert.Equal(t, "eight", *r.Album)
	assert.Equal(t, 1, *r.TrackNumber)
	assert.Equal(t, 2020, *r.Year)
	assert.Equal(t, f.URL+"/img/640", r.AlbumArtURL)
	assert.Nil(t, r.AlbumArt)
	assert.Equal(t, metadata.SourceSpotify, r.Source)

	empty := results[1]
	assert.Equal(t, "", *empty.Artist)
	assert.Nil(t, empty.AlbumArtist)
	assert.Nil(t, empty.Year)
	assert.Empty(t, empty.AlbumArtURL)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFakeSpotify(t)
	results, err := f.client(t).Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchFailure(t *testing.T) {
	f := newFakeSpotify(t)
	_, err := f.client(t).Search(context.Background(), "fail")
	assert.Error(t, err)
}

func TestTokenReused(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client(t)

	for range 3 {
		_, err := c.Search(context.Background(), "IU Eight")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestNewMissingCredentials(t *testing.T) {
	for _, creds := range [][2]string{{"", "secret"}, {"id", ""}, {" ", " "}} {
		_, err := New(context.Background(), creds[0], creds[1], nil, nil)
		assert.True(t, errors.Is(err, ErrMissingCredentials))
	}
}

func TestNewRejectedCredentials(t *testing.T) {
	f := newFakeSpotify(t)
	_, err := newClient(context.Background(), "test-id", "wrong", f.Client(), nil, f.URL+"/api/token", f.URL+"/v1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingCredentials))
}

func TestFetchAlbumArt(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client(t)

	art, err := c.FetchAlbumArt(context.Background(), metadata.TrackInfo{AlbumArtURL: f.URL + "/img/640"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, art)

	_, err = c.FetchAlbumArt(context.Background(), metadata.TrackInfo{})
	assert.True(t, errors.Is(err, metadata.ErrNoArtworkURL))

	_, err = c.FetchAlbumArt(context.Background(), metadata.TrackInfo{AlbumArtURL: f.URL + "/img/missing"})
	assert.Error(t, err)
}

func TestFetchDetailAddsGenres(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client(t)

	results, err := c.Search(context.Background(), "IU Eight")
	require.NoError(t, err)

	detailed, err := c.FetchDetail(context.Background(), results[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, detailed.AlbumArt)
	require.NotNil(t, detailed.Genre)
	assert.Equal(t, "K-pop, K-pop Ballad, Korean R&b", *detailed.Genre)
	assert.Equal(t, "Eight", *detailed.Title)

	_, err = c.FetchDetail(context.Background(), results[0])
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.artistCalls.Load())
}

func TestFormatGenres(t *testing.T) {
	assert.Equal(t, "Pop", formatGenres([]string{"pop"}))
	assert.Equal(t, "", formatGenres(nil))
}

func TestFetchDetailSharedArtwork(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		cover := `{"name": "Compilation", "images": [{"url": "` + srv.URL + `/img/comp", "width": 640}]}`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tracks": {"items": [
			{"name": "Rock Song", "artists": [{"id": "rocker", "name": "Rocker"}], "album": ` + cover + `},
			{"name": "Jazz Song", "artists": [{"id": "jazzer", "name": "Jazzer"}], "album": ` + cover + `}
		]}}`))
	})
	mux.HandleFunc("/v1/artists/rocker", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"rocker","name":"Rocker","genres":["rock"]}`))
	})
	mux.HandleFunc("/v1/artists/jazzer", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"jazzer","name":"Jazzer","genres":["jazz"]}`))
	})
	mux.HandleFunc("/img/comp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	})

	c, err := newClient(context.Background(), "test-id", "test-secret", srv.Client(), nil, srv.URL+"/api/token", srv.URL+"/v1")
	require.NoError(t, err)

	results, err := c.Search(context.Background(), "compilation")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].AlbumArtURL, results[1].AlbumArtURL)
	assert.Equal(t, "rocker", results[0].ArtistRef)

	rock, err := c.FetchDetail(context.Background(), results[0])
	require.NoError(t, err)
	require.NotNil(t, rock.Genre)
	assert.Equal(t, "Rock", *rock.Genre)

	jazz, err := c.FetchDetail(context.Background(), results[1])
	require.NoError(t, err)
	require.NotNil(t, jazz.Genre)
	assert.Equal(t, "Jazz", *jazz.Genre)
}

func TestFetchDetailWithoutArtist(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client(t)

	detailed, err := c.FetchDetail(context.Background(), metadata.TrackInfo{
		Title: metadata.String("Eight"), AlbumArtURL: f.URL + "/img/640", Source: metadata.SourceSpotify,
	})
	require.NoError(t, err)
	assert.Nil(t, detailed.Genre)
	assert.Equal(t, int32(0), f.artistCalls.Load())
}
