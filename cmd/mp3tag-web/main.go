package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"mp3tag/internal/config"
	"mp3tag/internal/logger"
	"mp3tag/internal/provider"
	"mp3tag/internal/session"
	"mp3tag/internal/shutdown"
	"mp3tag/internal/web"
)

func main() {
	var (
		addr       string
		configPath string
		verbose    bool
	)

	flag.StringVar(&addr, "addr", "127.0.0.1:8080", "HTTP listen address")
	flag.StringVar(&configPath, "config", "", "Config file path")
	flag.BoolVar(&verbose, "verbose", false, "Show debug output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Config error: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		cfg.Verbose = true
	}

	l := logger.New(cfg.Verbose)
	if path, err := l.OpenLogDir(cfg.LogDir); err != nil {
		l.Warn("Failed to setup file logging: %v", err)
	} else {
		l.Debug("Logging to file: %s", path)
	}
	defer l.Close()

	if err := run(cfg, addr, l); err != nil {
		l.Error("%v", err)
		l.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, addr string, l *logger.Logger) error {
	sh := shutdown.New()
	sh.Listen()
	defer sh.Close()
	ctx := sh.Context()

	// Sources authenticate here so bad credentials stop the server from starting.
	p, err := provider.New(ctx, cfg, l)
	if err != nil {
		return err
	}

	hub := web.NewHub(session.NewWorker(p, l), l, cfg.Rename)
	sh.Add(1)
	go func() {
		defer sh.Done()
		hub.Run(ctx)
	}()

	server := web.NewServer(ctx, hub, cfg, l)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	sh.AddCleanup(func() {
		l.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			l.Error("Server shutdown error: %v", err)
		}
	})

	serveErr := make(chan error, 1)
	go func() {
		l.Info("Starting web server on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	sh.Shutdown()
	sh.Wait()

	l.Info("Server stopped")
	return nil
}
