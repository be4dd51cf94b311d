package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a root context on SIGINT or SIGTERM and runs registered
// cleanups, most recent first.
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	cleanupFns []func()
	mu         sync.Mutex
	stop       func()
}

// New creates a new shutdown handler
func New() *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
		stop:   func() {},
	}
}

// Context is cancelled once shutdown starts.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers fn to run on shutdown.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Listen triggers Shutdown on the first interrupt. A second interrupt gets
// the default behaviour and kills the process.
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	h.mu.Lock()
	h.stop = func() {
		signal.Stop(sigChan)
		close(done)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-sigChan:
			signal.Stop(sigChan)
			h.Shutdown()
		case <-done:
		}
	}()
}

// Shutdown cancels the context and runs cleanups. Only the first call has
// any effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}

// Close stops listening for signals and releases the context without
// running cleanups.
func (h *Handler) Close() {
	h.mu.Lock()
	stop := h.stop
	h.stop = func() {}
	h.mu.Unlock()

	stop()
	h.cancel()
}

// Wait waits for all work registered with Add to complete.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Add increments the work counter
func (h *Handler) Add(delta int) {
	h.wg.Add(delta)
}

// Done decrements the work counter
func (h *Handler) Done() {
	h.wg.Done()
}
