// Package pipeline runs the batch fetch: for every file it builds a query,
// searches the catalog, picks a result, fetches its detail, merges it with the
// current tags, writes them and optionally renames the file.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
	"mp3tag/internal/renamer"
)

// Skip is returned by a Chooser to leave a file untouched.
const Skip = -1

// Chooser picks one of results for file, or returns Skip. best is the index
// of the highest scoring result.
type Chooser func(ctx context.Context, file metadata.AudioFile, query string, results []metadata.TrackInfo, best int) (int, error)

type Hooks struct {
	OnFilesFound func(total int)
	OnProgress   func()
	OnWarning    func(msg string)
	OnApplied    func(file metadata.AudioFile, applied metadata.TrackInfo)
}

type Options struct {
	// Auto accepts the best match when it scores at least Threshold and
	// skips the file otherwise. Without Auto the Chooser decides.
	Auto      bool
	Threshold float64
	Rename    bool
	// IncludeTagged also processes files that already have usable tags.
	IncludeTagged bool
}

// Stats summarizes a run.
type Stats struct {
	Total   int
	Applied int
	Renamed int
	Skipped int
	Failed  int
}

// Targets returns the files a run should process.
func Targets(files []metadata.AudioFile, includeTagged bool) []metadata.AudioFile {
	if includeTagged {
		return files
	}
	var out []metadata.AudioFile
	for _, f := range files {
		if !f.HasTags {
			out = append(out, f)
		}
	}
	return out
}

type outcome int

const (
	applied outcome = iota
	skipped
	failed
)

// Run processes files one at a time. Per-file failures are logged and
// counted; Run only returns an error when it is cancelled, when the chooser
// fails, or when every file failed.
func Run(ctx context.Context, files []metadata.AudioFile, p metadata.Provider, choose Chooser, log *logger.Logger, opts Options, hooks Hooks) (Stats, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = metadata.DefaultConfidenceThreshold
	}
	if !opts.Auto && choose == nil {
		return Stats{}, errors.New("a chooser is required without auto mode")
	}

	targets := Targets(files, opts.IncludeTagged)
	stats := Stats{Total: len(targets)}
	if hooks.OnFilesFound != nil {
		hooks.OnFilesFound(len(targets))
	}
	log.Info("=== Fetching metadata for %d files ===", len(targets))

	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		log.Warn("%s", msg)
		if hooks.OnWarning != nil {
			hooks.OnWarning(msg)
		}
	}

	for i, file := range targets {
		select {
		case <-ctx.Done():
			return stats, fmt.Errorf("fetch cancelled")
		default:
		}

		log.Debug("[%d/%d] Processing: %s", i+1, len(targets), file.Path)
		if file.TagErr != nil {
			log.Info("%s: existing tag is unreadable and will be replaced (%v)", file.Filename(), file.TagErr)
		}
		result, renamed, err := processFile(ctx, file, p, choose, log, opts, warn, hooks)
		if err != nil {
			return stats, err
		}
		switch result {
		case applied:
			stats.Applied++
			if renamed {
				stats.Renamed++
			}
		case skipped:
			stats.Skipped++
		case failed:
			stats.Failed++
		}
		if hooks.OnProgress != nil {
			hooks.OnProgress()
		}
	}

	if stats.Total > 0 && stats.Failed == stats.Total {
		return stats, fmt.Errorf("all %d files failed metadata resolution", stats.Total)
	}
	if stats.Failed > 0 {
		log.Warn("%d of %d files failed metadata resolution", stats.Failed, stats.Total)
	}
	log.Info("Done: %d applied, %d skipped, %d failed", stats.Applied, stats.Skipped, stats.Failed)
	return stats, nil
}

func processFile(ctx context.Context, file metadata.AudioFile, p metadata.Provider, choose Chooser, log *logger.Logger, opts Options, warn func(string, ...interface{}), hooks Hooks) (outcome, bool, error) {
	hint := metadata.ParseFilename(file.Path)
	if file.HasTags && file.Tags != nil {
		hint = *file.Tags
	}

	query := metadata.BuildSearchQuery(hint)
	if query == "" {
		log.Info("%s: no search query could be built, skipping", file.Filename())
		return skipped, false, nil
	}

	results, query, err := search(ctx, p, hint, query, log)
	if err != nil {
		warn("%s: search failed: %v", file.Filename(), err)
		return failed, false, nil
	}
	if len(results) == 0 {
		log.Info("%s: no results for %q, skipping", file.Filename(), query)
		return skipped, false, nil
	}

	best, score := metadata.BestMatch(hint, results)
	choice := best
	if opts.Auto {
		if score < opts.Threshold {
			log.Info("%s: best match %s scored %.2f, below %.2f, skipping", file.Filename(), results[best].Summary(), score, opts.Threshold)
			return skipped, false, nil
		}
	} else {
		choice, err = choose(ctx, file, query, results, best)
		if err != nil {
			return skipped, false, fmt.Errorf("choose result: %w", err)
		}
		if choice == Skip || choice < 0 || choice >= len(results) {
			log.Info("%s: skipped", file.Filename())
			return skipped, false, nil
		}
	}

	chosen := results[choice]
	detailed, err := p.FetchDetail(ctx, chosen)
	if err != nil {
		warn("%s: album art download failed: %v", file.Filename(), err)
		detailed = chosen
	}

	merged := metadata.Merge(file.Tags, detailed)
	if err := metadata.WriteTags(file.Path, merged); err != nil {
		warn("%s: %v", file.Filename(), err)
		return failed, false, nil
	}
	log.Info("%s: applied %s", file.Filename(), merged.Summary())

	path := file.Path
	renamed := false
	if opts.Rename {
		newPath, err := renamer.Rename(file.Path, merged)
		switch {
		case err != nil:
			warn("%s: rename failed: %v", file.Filename(), err)
		case newPath != file.Path:
			log.Info("%s: renamed to %s", file.Filename(), newPath)
			path, renamed = newPath, true
		}
	}

	if hooks.OnApplied != nil {
		updated := file
		updated.Apply(path, merged)
		hooks.OnApplied(updated, merged)
	}
	return applied, renamed, nil
}

// search runs query and, when it finds nothing, retries once with noise such
// as "(Official Video)" stripped from the hint.
func search(ctx context.Context, p metadata.Provider, hint metadata.TrackInfo, query string, log *logger.Logger) ([]metadata.TrackInfo, string, error) {
	log.Debug("  Searching %s: %q", p.Name(), query)
	results, err := p.Search(ctx, query)
	if err != nil || len(results) > 0 {
		return results, query, err
	}

	cleaned := metadata.CleanQuery(hint)
	if cleaned == "" || cleaned == query {
		return nil, query, nil
	}
	log.Debug("  Retrying with cleaned query: %q", cleaned)
	results, err = p.Search(ctx, cleaned)
	return results, cleaned, err
}
