package web

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
	"mp3tag/internal/session"
)

var silence = bytes.Repeat(append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...), 2)

type stubProvider struct {
	results []metadata.TrackInfo
}

func (p *stubProvider) Name() string { return "spotify" }

func (p *stubProvider) Search(context.Context, string) ([]metadata.TrackInfo, error) {
	return p.results, nil
}

func (p *stubProvider) FetchAlbumArt(_ context.Context, track metadata.TrackInfo) ([]byte, error) {
	if track.AlbumArtURL == "" {
		return nil, metadata.ErrNoArtworkURL
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func (p *stubProvider) FetchDetail(ctx context.Context, track metadata.TrackInfo) (metadata.TrackInfo, error) {
	return metadata.FetchDetailWithArt(ctx, p, track)
}

func newTestHub(t *testing.T, rename bool) (*Hub, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"01 IU - Blueming.mp3", "Other.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), silence, 0644); err != nil {
			t.Fatal(err)
		}
	}

	p := &stubProvider{results: []metadata.TrackInfo{{
		Title:       metadata.String("Blueming"),
		Artist:      metadata.String("IU"),
		Album:       metadata.String("Love poem"),
		AlbumArtURL: "https://img/blueming",
		Source:      metadata.SourceSpotify,
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(session.NewWorker(p, logger.Discard()), logger.Discard(), rename)
	go hub.Run(ctx)
	return hub, dir
}

// waitFor blocks until the hub state satisfies cond.
func waitFor(t *testing.T, hub *Hub, cond func(session.State) bool) session.State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := hub.State(); cond(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out, last state: %+v", hub.State())
	return session.State{}
}

func TestHubFullSession(t *testing.T) {
	hub, dir := newTestHub(t, true)
	ctx := context.Background()

	if err := hub.Scan(ctx, dir); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	st := waitFor(t, hub, func(s session.State) bool { return len(s.Files) == 2 })
	if st.Files[0].Filename() != "01 IU - Blueming.mp3" {
		t.Errorf("files not sorted: %v", st.Files)
	}

	if err := hub.Select(ctx, 0); err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if got := hub.State().Query; got != "IU Blueming" {
		t.Errorf("prefilled query = %q, want %q", got, "IU Blueming")
	}

	if err := hub.Search(ctx, ""); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	st = waitFor(t, hub, func(s session.State) bool { return len(s.Results) == 1 && s.Results[0].Art != nil })
	if st.Best != 0 {
		t.Errorf("Best = %d, want 0", st.Best)
	}

	if err := hub.Apply(ctx, 0, nil); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	st = waitFor(t, hub, func(s session.State) bool { return s.Status == session.StatusIdle && s.Files[0].HasTags })

	want := filepath.Join(dir, "IU - Blueming.mp3")
	if st.Files[0].Path != want {
		t.Errorf("renamed path = %q, want %q", st.Files[0].Path, want)
	}
	tags, err := metadata.ReadTags(want)
	if err != nil || tags == nil {
		t.Fatalf("ReadTags() = %v, %v", tags, err)
	}
	if tags.AlbumArt == nil {
		t.Error("album art was not written")
	}
}

func TestHubValidation(t *testing.T) {
	hub, dir := newTestHub(t, false)
	ctx := context.Background()

	if err := hub.Select(ctx, 0); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("Select() before scan = %v, want ErrInvalidFile", err)
	}
	if err := hub.Search(ctx, ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Search(\"\") = %v, want ErrEmptyQuery", err)
	}
	if err := hub.Apply(ctx, 0, nil); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Apply() without selection = %v, want ErrNoSelection", err)
	}

	hub.Scan(ctx, dir)
	waitFor(t, hub, func(s session.State) bool { return len(s.Files) == 2 })
	hub.Select(ctx, 1)
	if err := hub.Apply(ctx, 3, nil); !errors.Is(err, ErrInvalidResult) {
		t.Errorf("Apply(3) = %v, want ErrInvalidResult", err)
	}
}

func TestHubScanFailure(t *testing.T) {
	hub, dir := newTestHub(t, false)

	if err := hub.Scan(context.Background(), filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	st := waitFor(t, hub, func(s session.State) bool { return s.Err != "" })
	if st.Status != session.StatusIdle {
		t.Errorf("Status = %s, want idle", st.Status)
	}
}

func TestHubSubscribeLatestWins(t *testing.T) {
	hub, dir := newTestHub(t, false)
	updates := hub.Subscribe()

	hub.Scan(context.Background(), dir)
	waitFor(t, hub, func(s session.State) bool { return len(s.Files) == 2 })

	select {
	case st := <-updates:
		if len(st.Files) != 2 {
			t.Errorf("latest snapshot has %d files, want 2", len(st.Files))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	hub.Unsubscribe(updates)
	if _, ok := <-updates; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestHubDoCancelled(t *testing.T) {
	hub := NewHub(session.NewWorker(&stubProvider{}, logger.Discard()), logger.Discard(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := hub.Scan(ctx, "/music"); !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() on a stopped hub = %v, want context.Canceled", err)
	}
}
