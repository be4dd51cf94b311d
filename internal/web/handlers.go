package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"mp3tag/internal/metadata"
	"mp3tag/internal/session"
)

type ScanRequest struct {
	Path string `json:"path"`
}

type SelectRequest struct {
	Index int `json:"index"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type ApplyRequest struct {
	Index  int   `json:"index"`
	Rename *bool `json:"rename,omitempty"`
}

type FileResponse struct {
	Index    int    `json:"index"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
	HasTags  bool   `json:"has_tags"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	TagError string `json:"tag_error,omitempty"`
}

type ResultResponse struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Year    *int   `json:"year,omitempty"`
	Source  string `json:"source"`
	Art     []byte `json:"art,omitempty"`
	ArtMIME string `json:"art_mime,omitempty"`
}

type StateResponse struct {
	Dir      string           `json:"dir"`
	Files    []FileResponse   `json:"files"`
	Selected int              `json:"selected"`
	Query    string           `json:"query"`
	Results  []ResultResponse `json:"results"`
	Best     int              `json:"best"`
	Status   session.Status   `json:"status"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	s.respond(w, s.hub.Scan(r.Context(), req.Path))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.hub.Select(r.Context(), req.Index))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.hub.Search(r.Context(), req.Query))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.hub.Apply(r.Context(), req.Index, req.Rename))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, stateToResponse(s.hub.State()))
}

// respond maps a hub error to a status code, or writes the new snapshot.
func (s *Server) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, stateToResponse(s.hub.State()))
	case errors.Is(err, ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrInvalidFile),
		errors.Is(err, ErrInvalidResult), errors.Is(err, ErrEmptyQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("Request failed: %v", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func stateToResponse(st session.State) *StateResponse {
	resp := &StateResponse{
		Dir:      st.Dir,
		Files:    make([]FileResponse, len(st.Files)),
		Selected: st.Selected,
		Query:    st.Query,
		Results:  make([]ResultResponse, len(st.Results)),
		Best:     st.Best,
		Status:   st.Status,
		Message:  st.Message,
		Error:    st.Err,
	}

	for i, f := range st.Files {
		fr := FileResponse{Index: i, Path: f.Path, Filename: f.Filename(), HasTags: f.HasTags}
		if f.TagErr != nil {
			fr.TagError = f.TagErr.Error()
		}
		if f.Tags != nil {
			fr.Title = f.Tags.DisplayTitle()
			fr.Artist = f.Tags.DisplayArtist()
			fr.Album = f.Tags.DisplayAlbum()
		}
		resp.Files[i] = fr
	}

	for i, r := range st.Results {
		rr := ResultResponse{
			Index:  i,
			Title:  r.Track.DisplayTitle(),
			Artist: r.Track.DisplayArtist(),
			Album:  r.Track.DisplayAlbum(),
			Year:   r.Track.Year,
			Source: string(r.Track.Source),
			Art:    r.Art,
		}
		if r.Art != nil {
			rr.ArtMIME = metadata.DetectMIMEType(r.Art)
		}
		resp.Results[i] = rr
	}

	return resp
}
