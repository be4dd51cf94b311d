// Package session holds the interactive tagging session: an explicit State,
// pure transitions over it, and a Worker that performs the I/O on background
// goroutines and reports back with Outcome values.
package session

import (
	"fmt"

	"mp3tag/internal/metadata"
)

// NoSelection is the Selected value when no file is selected.
const NoSelection = -1

// Status describes what the session is waiting for.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusScanning  Status = "scanning"
	StatusSearching Status = "searching"
	StatusApplying  Status = "applying"
)

// Result is one search result together with its thumbnail, once fetched.
type Result struct {
	Track metadata.TrackInfo
	Art   []byte
}

// State is the whole interactive session. Transitions never mutate the
// State they are given: slices are replaced, never written through.
type State struct {
	Dir      string
	Files    []metadata.AudioFile
	Selected int
	Query    string
	Results  []Result
	Best     int
	Status   Status
	Message  string
	Err      string
	// Gen identifies the current search. Search and art outcomes from an
	// older generation are dropped.
	Gen uint64
}

// New returns an empty session.
func New() State {
	return State{Selected: NoSelection, Best: NoSelection, Status: StatusIdle}
}

// SelectedFile returns the selected file, if any.
func (s State) SelectedFile() (metadata.AudioFile, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Files) {
		return metadata.AudioFile{}, false
	}
	return s.Files[s.Selected], true
}

// BeginScan starts scanning dir. The previous file list stays visible until
// the scan completes.
func BeginScan(s State, dir string) State {
	next := s
	next.Dir = dir
	next.Status = StatusScanning
	next.Message = "Scanning " + dir
	next.Err = ""
	return next
}

// Select makes file i the selection, clears previous results and prefills
// the query from its tags, or from its file name when it has none.
func Select(s State, i int) State {
	if i < 0 || i >= len(s.Files) {
		return s
	}
	next := s
	next.Selected = i
	next.Results = nil
	next.Best = NoSelection
	next.Err = ""
	next.Gen++
	if next.Status == StatusSearching {
		next.Status = StatusIdle
	}

	file := s.Files[i]
	hint := metadata.ParseFilename(file.Path)
	if file.HasTags && file.Tags != nil {
		hint = *file.Tags
	}
	next.Query = metadata.BuildSearchQuery(hint)
	next.Message = file.Filename()
	return next
}

// BeginSearch starts a new search generation for query.
func BeginSearch(s State, query string) State {
	next := s
	next.Query = query
	next.Results = nil
	next.Best = NoSelection
	next.Status = StatusSearching
	next.Message = "Searching " + query
	next.Err = ""
	next.Gen++
	return next
}

// BeginApply marks the session busy writing the selected file.
func BeginApply(s State) State {
	next := s
	next.Status = StatusApplying
	next.Message = "Writing tags"
	next.Err = ""
	return next
}

// Reduce applies a worker outcome and returns the next state.
func Reduce(s State, o Outcome) State {
	switch o := o.(type) {
	case ScanDone:
		next := s
		next.Dir = o.Dir
		next.Files = o.Files
		next.Selected = NoSelection
		next.Results = nil
		next.Best = NoSelection
		next.Query = ""
		next.Status = StatusIdle
		next.Message = scanMessage(o.Files)
		next.Gen++
		return next

	case SearchDone:
		if o.Gen != s.Gen {
			return s
		}
		next := s
		next.Results = make([]Result, len(o.Results))
		for i, r := range o.Results {
			next.Results[i] = Result{Track: r}
		}
		next.Best = o.Best
		if len(o.Results) == 0 {
			next.Best = NoSelection
		}
		next.Status = StatusIdle
		next.Message = resultsMessage(len(o.Results))
		return next

	case ArtDone:
		if o.Gen != s.Gen || o.Index < 0 || o.Index >= len(s.Results) {
			return s
		}
		next := s
		next.Results = append([]Result(nil), s.Results...)
		next.Results[o.Index].Art = o.Art
		return next

	case Applied:
		next := s
		next.Files = append([]metadata.AudioFile(nil), s.Files...)
		for i := range next.Files {
			if next.Files[i].Path == o.OldPath {
				next.Files[i] = o.File
			}
		}
		next.Status = StatusIdle
		next.Message = "Saved " + o.File.Filename()
		if o.RenameErr != "" {
			next.Err = o.RenameErr
		}
		return next

	case Failed:
		if o.Gen != 0 && o.Gen != s.Gen {
			return s
		}
		next := s
		next.Status = StatusIdle
		next.Err = o.Op + ": " + o.Err
		return next
	}
	return s
}

func scanMessage(files []metadata.AudioFile) string {
	untagged := 0
	for _, f := range files {
		if !f.HasTags {
			untagged++
		}
	}
	return fmt.Sprintf("%d files, %d untagged", len(files), untagged)
}

func resultsMessage(n int) string {
	if n == 0 {
		return "No results"
	}
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}
