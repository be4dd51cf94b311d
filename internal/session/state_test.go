package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp3tag/internal/metadata"
)

func scanned() State {
	return Reduce(New(), ScanDone{Dir: "/music", Files: []metadata.AudioFile{
		{Path: "/music/01 IU - Blueming.mp3"},
		{
			Path:    "/music/tagged.mp3",
			HasTags: true,
			Tags:    &metadata.TrackInfo{Title: metadata.String("Eight"), Artist: metadata.String("IU"), Source: metadata.SourceEmbedded},
		},
	}})
}

func TestReduceScanDone(t *testing.T) {
	s := scanned()
	assert.Equal(t, "/music", s.Dir)
	assert.Len(t, s.Files, 2)
	assert.Equal(t, NoSelection, s.Selected)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, "2 files, 1 untagged", s.Message)
}

func TestSelectPrefillsQuery(t *testing.T) {
	s := scanned()

	fromName := Select(s, 0)
	assert.Equal(t, 0, fromName.Selected)
	assert.Equal(t, "IU Blueming", fromName.Query)
	assert.Equal(t, s.Gen+1, fromName.Gen)

	fromTags := Select(fromName, 1)
	assert.Equal(t, "IU Eight", fromTags.Query)

	f, ok := fromTags.SelectedFile()
	require.True(t, ok)
	assert.Equal(t, "/music/tagged.mp3", f.Path)

	assert.Equal(t, fromTags, Select(fromTags, 5))
}

func TestSearchFlow(t *testing.T) {
	s := BeginSearch(Select(scanned(), 0), "IU Blueming")
	assert.Equal(t, StatusSearching, s.Status)

	results := []metadata.TrackInfo{
		{Title: metadata.String("Blueming"), Source: metadata.SourceSpotify},
		{Title: metadata.String("Blueming (Inst.)"), Source: metadata.SourceSpotify},
	}
	s = Reduce(s, SearchDone{Gen: s.Gen, Query: "IU Blueming", Results: results, Best: 0})
	require.Len(t, s.Results, 2)
	assert.Equal(t, 0, s.Best)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, "2 results", s.Message)

	before := s
	s = Reduce(s, ArtDone{Gen: s.Gen, Index: 1, Art: []byte{1}})
	assert.Equal(t, []byte{1}, s.Results[1].Art)
	assert.Nil(t, before.Results[1].Art, "previous state must not change")

	assert.Equal(t, s, Reduce(s, ArtDone{Gen: s.Gen, Index: 9, Art: []byte{1}}))
}

func TestReduceDropsStaleOutcomes(t *testing.T) {
	s := BeginSearch(Select(scanned(), 0), "first")
	oldGen := s.Gen
	s = BeginSearch(s, "second")

	assert.Equal(t, s, Reduce(s, SearchDone{Gen: oldGen, Results: []metadata.TrackInfo{{}}}))
	assert.Equal(t, s, Reduce(s, ArtDone{Gen: oldGen, Index: 0, Art: []byte{1}}))
	assert.Equal(t, s, Reduce(s, Failed{Gen: oldGen, Op: "search", Err: "late"}))
}

func TestReduceSearchEmpty(t *testing.T) {
	s := BeginSearch(New(), "nothing")
	s = Reduce(s, SearchDone{Gen: s.Gen, Best: -1})
	assert.Empty(t, s.Results)
	assert.Equal(t, NoSelection, s.Best)
	assert.Equal(t, "No results", s.Message)
}

func TestReduceApplied(t *testing.T) {
	s := BeginApply(Select(scanned(), 0))
	assert.Equal(t, StatusApplying, s.Status)

	tags := metadata.TrackInfo{Title: metadata.String("Blueming"), Artist: metadata.String("IU"), Source: metadata.SourceSpotify}
	updated := metadata.AudioFile{Path: "/music/IU - Blueming.mp3", Tags: &tags, HasTags: true}

	next := Reduce(s, Applied{OldPath: "/music/01 IU - Blueming.mp3", File: updated})
	assert.Equal(t, updated, next.Files[0])
	assert.Equal(t, "/music/01 IU - Blueming.mp3", s.Files[0].Path, "previous state must not change")
	assert.Equal(t, StatusIdle, next.Status)
	assert.Equal(t, "Saved IU - Blueming.mp3", next.Message)
	assert.Empty(t, next.Err)

	withRenameErr := Reduce(s, Applied{OldPath: "/music/01 IU - Blueming.mp3", File: updated, RenameErr: "rename: exists"})
	assert.Equal(t, "rename: exists", withRenameErr.Err)
}

func TestReduceFailed(t *testing.T) {
	s := BeginScan(New(), "/missing")
	assert.Equal(t, StatusScanning, s.Status)

	s = Reduce(s, Failed{Op: "scan", Err: "path not found"})
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, "scan: path not found", s.Err)
}
