// Package server implements the preview server: it renders templates over
// HTTP, shows compile errors in an overlay and reloads open pages when a
// template changes on disk.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/anhnt/edge/internal/config"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/internal/watcher"
	"github.com/anhnt/edge/pkg/edge"
)

// shutdownTimeout bounds the graceful shutdown after the context ends.
const shutdownTimeout = 5 * time.Second

// PreviewServer serves templates with live reload.
type PreviewServer struct {
	config  *config.Config
	edge    *edge.Edge
	logger  logging.Logger
	hub     *Hub
	watcher *watcher.FileWatcher
	errors  *errors.ErrorCollector

	httpServer  *http.Server
	baseCtx     context.Context
	serverMutex sync.RWMutex
}

// New creates a preview server for e.
func New(cfg *config.Config, e *edge.Edge, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")
	return &PreviewServer{
		config: cfg,
		edge:   e,
		logger: logger,
		hub:    NewHub(logger),
		errors: errors.NewErrorCollector(),
	}
}

// Start serves HTTP on the configured address until ctx is cancelled.
func (s *PreviewServer) Start(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = server
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "shutdown failed")
		}
	}()

	s.logger.Info(ctx, "preview server listening", "address", "http://"+server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.NewIOError(errors.ErrCodeInternal, "server error", err)
	}
	return nil
}

// run starts the websocket hub and, when enabled, the file watcher.
func (s *PreviewServer) run(ctx context.Context) error {
	s.serverMutex.Lock()
	s.baseCtx = ctx
	s.serverMutex.Unlock()

	go s.hub.Run(ctx)

	if !s.config.Watch.Enabled {
		return nil
	}
	return s.setupFileWatcher(ctx)
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce, s.logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.TemplateFilter)
	fw.AddFilter(watcher.NoTempFilter)
	if len(s.config.Watch.Ignore) > 0 {
		fw.AddFilter(watcher.IgnoreFilter(s.config.Watch.Ignore...))
	}
	fw.AddHandler(watcher.InvalidateHandler(s.edge, s.logger, s.Reload))

	dirs := []string{s.config.Views.Root}
	for _, name := range s.config.DiskNames() {
		dirs = append(dirs, s.config.Views.Disks[name])
	}
	for _, dir := range dirs {
		if err := fw.AddRecursive(dir); err != nil {
			s.logger.Warn(ctx, err, "cannot watch directory", "dir", dir)
		}
	}

	fw.Start(ctx)
	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()
	return nil
}

// Reload tells open preview pages that templates changed. Their recorded
// errors are cleared since the next render compiles them again.
func (s *PreviewServer) Reload(ctx context.Context, names []string) {
	for _, name := range names {
		s.errors.RemoveTemplate(name)
	}
	s.hub.Broadcast(ctx, UpdateMessage{Type: "reload", Templates: names})
}

// Shutdown stops the HTTP server and the watcher.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	s.serverMutex.Lock()
	server, fw := s.httpServer, s.watcher
	s.httpServer, s.watcher = nil, nil
	s.serverMutex.Unlock()

	if fw != nil {
		if err := fw.Stop(); err != nil {
			s.logger.Warn(ctx, err, "cannot stop file watcher")
		}
	}
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// ctx is the lifetime of long-lived connections.
func (s *PreviewServer) ctx() context.Context {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

// Handler returns the HTTP routes wrapped in the middleware chain.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/errors", s.handleErrors)
	mux.HandleFunc("GET /api/cache", s.handleCacheStats)
	mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)
	mux.HandleFunc("GET /render/{name...}", s.handleRender)
	mux.HandleFunc("POST /render/{name...}", s.handleRender)

	return s.recoverer(s.requestLogger(s.cors(mux)))
}
