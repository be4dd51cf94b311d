package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
	"mp3tag/internal/renamer"
	"mp3tag/internal/scanner"
)

// Outcome is the result of one piece of background work.
type Outcome interface {
	outcome()
}

// ScanDone carries the files found under Dir.
type ScanDone struct {
	Dir   string
	Files []metadata.AudioFile
}

// SearchDone carries search results for generation Gen. Best is the index of
// the highest scoring result.
type SearchDone struct {
	Gen     uint64
	Query   string
	Results []metadata.TrackInfo
	Best    int
}

// ArtDone carries the thumbnail of result Index of generation Gen.
type ArtDone struct {
	Gen   uint64
	Index int
	Art   []byte
}

// Applied reports a successful write. File is the updated snapshot, which
// lives at a new path when it was renamed.
type Applied struct {
	OldPath   string
	File      metadata.AudioFile
	RenameErr string
}

// Failed reports an operation that did not complete. Gen is zero for
// operations that are not tied to a search.
type Failed struct {
	Gen uint64
	Op  string
	Err string
}

func (ScanDone) outcome()   {}
func (SearchDone) outcome() {}
func (ArtDone) outcome()    {}
func (Applied) outcome()    {}
func (Failed) outcome()     {}

const (
	outcomeBuffer = 64
	artWorkers    = 4
)

// Worker runs scans, searches, art fetches and writes on their own
// goroutines. Every result is delivered on a single channel; nothing else is
// shared with the caller.
type Worker struct {
	provider metadata.Provider
	logger   *logger.Logger
	outcomes chan Outcome
}

func NewWorker(p metadata.Provider, log *logger.Logger) *Worker {
	return &Worker{
		provider: p,
		logger:   log,
		outcomes: make(chan Outcome, outcomeBuffer),
	}
}

// Outcomes returns the channel all results are delivered on.
func (w *Worker) Outcomes() <-chan Outcome {
	return w.outcomes
}

// Poll returns every outcome that is ready without blocking.
func (w *Worker) Poll() []Outcome {
	var out []Outcome
	for {
		select {
		case o := <-w.outcomes:
			out = append(out, o)
		default:
			return out
		}
	}
}

// Scan lists the audio files under dir.
func (w *Worker) Scan(ctx context.Context, dir string) {
	go func() {
		files, err := scanner.ScanPath(dir)
		if err != nil {
			w.send(ctx, Failed{Op: "scan", Err: err.Error()})
			return
		}
		w.logger.Debug("Scanned %s: %d files", dir, len(files))
		w.send(ctx, ScanDone{Dir: dir, Files: files})
	}()
}

// Search queries the provider for generation gen, then fetches the art of
// every result concurrently. hint scores the results.
func (w *Worker) Search(ctx context.Context, gen uint64, query string, hint metadata.TrackInfo) {
	go func() {
		results, err := w.provider.Search(ctx, query)
		if err != nil {
			w.send(ctx, Failed{Gen: gen, Op: "search", Err: err.Error()})
			return
		}
		best, _ := metadata.BestMatch(hint, results)
		w.send(ctx, SearchDone{Gen: gen, Query: query, Results: results, Best: best})
		w.fetchArt(ctx, gen, results)
	}()
}

func (w *Worker) fetchArt(ctx context.Context, gen uint64, results []metadata.TrackInfo) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(artWorkers)
	for i, r := range results {
		g.Go(func() error {
			art, err := w.provider.FetchAlbumArt(ctx, r)
			if err != nil {
				if !errors.Is(err, metadata.ErrNoArtworkURL) && !errors.Is(err, metadata.ErrNoArtwork) {
					w.logger.Debug("Art for result %d: %v", i, err)
				}
				return nil
			}
			w.send(ctx, ArtDone{Gen: gen, Index: i, Art: art})
			return nil
		})
	}
	_ = g.Wait()
}

// Apply fetches the detail of track, merges it into file's tags, writes them
// and optionally renames the file. Art already attached to track is kept when
// the detail comes without any.
func (w *Worker) Apply(ctx context.Context, file metadata.AudioFile, track metadata.TrackInfo, rename bool) {
	go func() {
		applied, err := w.apply(ctx, file, track, rename)
		if err != nil {
			w.send(ctx, Failed{Op: "apply", Err: err.Error()})
			return
		}
		w.send(ctx, applied)
	}()
}

func (w *Worker) apply(ctx context.Context, file metadata.AudioFile, track metadata.TrackInfo, rename bool) (Applied, error) {
	detailed, err := w.provider.FetchDetail(ctx, track)
	if err != nil {
		w.logger.Warn("%s: album art download failed: %v", file.Filename(), err)
		detailed = track
	} else if detailed.AlbumArt == nil {
		detailed.AlbumArt = track.AlbumArt
	}

	merged := metadata.Merge(file.Tags, detailed)
	if err := metadata.WriteTags(file.Path, merged); err != nil {
		return Applied{}, err
	}
	w.logger.Info("%s: applied %s", file.Filename(), merged.Summary())

	result := Applied{OldPath: file.Path, File: file}
	path := file.Path
	if rename {
		newPath, err := renamer.Rename(file.Path, merged)
		if err != nil {
			w.logger.Warn("%s: rename failed: %v", file.Filename(), err)
			result.RenameErr = fmt.Sprintf("rename: %v", err)
		} else {
			path = newPath
		}
	}
	result.File.Apply(path, merged)
	return result, nil
}

func (w *Worker) send(ctx context.Context, o Outcome) {
	select {
	case w.outcomes <- o:
	case <-ctx.Done():
	}
}
