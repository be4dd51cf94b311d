package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"mp3tag/internal/config"
	"mp3tag/internal/logger"
)

//go:embed static
var staticFiles embed.FS

type Server struct {
	ctx    context.Context
	hub    *Hub
	config config.Config
	logger *logger.Logger
}

func NewServer(ctx context.Context, hub *Hub, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		hub:    hub,
		config: cfg,
		logger: log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Static files
	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(static)))

	// API endpoints
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/select", s.handleSelect)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/apply", s.handleApply)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
