package web

import (
	"context"
	"errors"
	"sync"

	"mp3tag/internal/logger"
	"mp3tag/internal/metadata"
	"mp3tag/internal/session"
)

var (
	ErrNoSelection   = errors.New("no file selected")
	ErrInvalidFile   = errors.New("file index out of range")
	ErrInvalidResult = errors.New("result index out of range")
	ErrBusy          = errors.New("another operation is in progress")
	ErrEmptyQuery    = errors.New("query is empty")
)

type command struct {
	apply func(ctx context.Context, s session.State) (session.State, error)
	done  chan error
}

// Hub owns the session state. Commands from HTTP handlers and outcomes from
// the worker are applied one at a time on the goroutine running Run, so file
// writes for the session are serialised there.
type Hub struct {
	worker   *session.Worker
	logger   *logger.Logger
	rename   bool
	commands chan command

	mu        sync.RWMutex
	state     session.State
	listeners []chan session.State
}

// NewHub creates a hub. rename is the default for Apply.
func NewHub(worker *session.Worker, log *logger.Logger, rename bool) *Hub {
	return &Hub{
		worker:   worker,
		logger:   log,
		rename:   rename,
		commands: make(chan command),
		state:    session.New(),
	}
}

// Run applies commands and worker outcomes until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			next, err := cmd.apply(ctx, h.State())
			if err == nil {
				h.commit(next)
			}
			cmd.done <- err
		case o := <-h.worker.Outcomes():
			h.commit(session.Reduce(h.State(), o))
		}
	}
}

// State returns the current snapshot.
func (h *Hub) State() session.State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Scan starts scanning dir.
func (h *Hub) Scan(ctx context.Context, dir string) error {
	return h.do(ctx, func(runCtx context.Context, s session.State) (session.State, error) {
		if s.Status == session.StatusScanning || s.Status == session.StatusApplying {
			return s, ErrBusy
		}
		h.logger.Info("Scanning %s", dir)
		h.worker.Scan(runCtx, dir)
		return session.BeginScan(s, dir), nil
	})
}

// Select selects file i and prefills the query.
func (h *Hub) Select(ctx context.Context, i int) error {
	return h.do(ctx, func(_ context.Context, s session.State) (session.State, error) {
		if i < 0 || i >= len(s.Files) {
			return s, ErrInvalidFile
		}
		if s.Status == session.StatusApplying {
			return s, ErrBusy
		}
		return session.Select(s, i), nil
	})
}

// Search searches for query, or for the prefilled query when it is empty.
// Results and their thumbnails arrive later through the worker.
func (h *Hub) Search(ctx context.Context, query string) error {
	return h.do(ctx, func(runCtx context.Context, s session.State) (session.State, error) {
		if query == "" {
			query = s.Query
		}
		if query == "" {
			return s, ErrEmptyQuery
		}
		if s.Status == session.StatusApplying {
			return s, ErrBusy
		}

		hint := metadata.ParseStem(query)
		if f, ok := s.SelectedFile(); ok {
			hint = metadata.ParseFilename(f.Path)
			if f.HasTags && f.Tags != nil {
				hint = *f.Tags
			}
		}

		next := session.BeginSearch(s, query)
		h.logger.Debug("Searching %q (generation %d)", query, next.Gen)
		h.worker.Search(runCtx, next.Gen, query, hint)
		return next, nil
	})
}

// Apply writes result i to the selected file. rename overrides the default
// when not nil.
func (h *Hub) Apply(ctx context.Context, i int, rename *bool) error {
	return h.do(ctx, func(runCtx context.Context, s session.State) (session.State, error) {
		file, ok := s.SelectedFile()
		if !ok {
			return s, ErrNoSelection
		}
		if i < 0 || i >= len(s.Results) {
			return s, ErrInvalidResult
		}
		if s.Status == session.StatusApplying || s.Status == session.StatusScanning {
			return s, ErrBusy
		}

		doRename := h.rename
		if rename != nil {
			doRename = *rename
		}
		track := s.Results[i].Track.Clone()
		track.AlbumArt = s.Results[i].Art
		h.worker.Apply(runCtx, file, track, doRename)
		return session.BeginApply(s), nil
	})
}

func (h *Hub) do(ctx context.Context, fn func(context.Context, session.State) (session.State, error)) error {
	cmd := command{apply: fn, done: make(chan error, 1)}
	select {
	case h.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) commit(s session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
	h.notifyListeners(s)
}

// Subscribe returns a channel receiving every new snapshot. A slow reader
// only ever sees the latest one.
func (h *Hub) Subscribe() <-chan session.State {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan session.State, 1)
	h.listeners = append(h.listeners, ch)
	return ch
}

// Unsubscribe removes a listener
func (h *Hub) Unsubscribe(ch <-chan session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(listener)
			break
		}
	}
}

// notifyListeners replaces any undelivered snapshot with s. Callers hold mu.
func (h *Hub) notifyListeners(s session.State) {
	for _, ch := range h.listeners {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
