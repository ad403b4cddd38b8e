// Package server exposes the blog over HTTP: rendered pages, feeds,
// search, health, and a live-reload channel for development.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/quillhost/quill/internal/analytics"
	"github.com/quillhost/quill/internal/config"
	"github.com/quillhost/quill/internal/content"
	"github.com/quillhost/quill/internal/health"
	"github.com/quillhost/quill/internal/logging"
	"github.com/quillhost/quill/internal/watcher"
)

// Server wires the content service, analytics, health checks, and the
// live-reload hub behind one HTTP listener.
type Server struct {
	cfg        *config.Config
	posts      *content.Service
	views      analytics.ViewCounter
	checker    *health.Service
	requests   *health.RequestCounter
	hub        *reloadHub
	fileWatch  *watcher.FileWatcher
	templates  map[string]*template.Template
	logger     logging.Logger
	httpServer *http.Server
	mutex      sync.RWMutex
	shutdown   sync.Once
}

// New assembles a server. views may be nil when analytics are disabled;
// fileWatch may be nil when watching is disabled.
func New(cfg *config.Config, posts *content.Service, views analytics.ViewCounter, checker *health.Service, fileWatch *watcher.FileWatcher, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	logger = logger.WithComponent("server")

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	hosts := []string{
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}

	return &Server{
		cfg:       cfg,
		posts:     posts,
		views:     views,
		checker:   checker,
		requests:  &health.RequestCounter{},
		hub:       newReloadHub(hosts, logger),
		fileWatch: fileWatch,
		templates: templates,
		logger:    logger,
	}, nil
}

// RequestCounter exposes the server's request counter so the health
// service can report it.
func (s *Server) RequestCounter() *health.RequestCounter {
	return s.requests
}

// SetHealthChecker attaches the health service. The checker is built after
// the server because it reports the server's own request counter.
func (s *Server) SetHealthChecker(checker *health.Service) {
	s.checker = checker
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start(ctx context.Context) error {
	if s.fileWatch != nil {
		s.setupWatcher(ctx)
	}

	if s.cfg.Content.WarmOnStart {
		go func() {
			if s.posts.Warm(ctx) {
				s.logger.Info(ctx, "cache warmed")
			}
		}()
	}

	mux := http.NewServeMux()
	s.routes(mux)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.mutex.Lock()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	srv := s.httpServer
	s.mutex.Unlock()

	s.logger.Info(ctx, "listening", "addr", addr, "environment", s.cfg.Server.Environment)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /posts/{slug}", s.handlePost)
	mux.HandleFunc("GET /tags", s.handleTags)
	mux.HandleFunc("GET /tags/{tag}", s.handleTag)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /feed.xml", s.handleRSS)
	mux.HandleFunc("GET /atom.xml", s.handleAtom)
	mux.HandleFunc("GET /sitemap.xml", s.handleSitemap)
	mux.HandleFunc("GET /robots.txt", s.handleRobots)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /.well-known/atproto-did", s.handleAtprotoDID)
	mux.HandleFunc("/", s.handleNotFound)

	assets, err := fs.Sub(staticFS, "static")
	if err == nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(assets))))
	}

	if s.cfg.Server.LiveReload {
		mux.HandleFunc("GET /ws", s.hub.handleWS)
	}
}

// setupWatcher invalidates caches and notifies browsers when post files
// change on disk.
func (s *Server) setupWatcher(ctx context.Context) {
	s.fileWatch.AddFilter(watcher.MarkdownFilter)
	s.fileWatch.AddFilter(watcher.NoHiddenFilter)

	s.fileWatch.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, event := range events {
			s.logger.Info(ctx, "content changed", "path", event.Path, "type", event.Type.String())
		}

		s.posts.InvalidateAll()

		// Rewarm in the background; an in-flight warm already covers us.
		go func() {
			if !s.posts.Warm(ctx) {
				s.logger.Debug(ctx, "warm already in flight, dropped")
			}
		}()

		if s.cfg.Server.LiveReload {
			s.hub.broadcast(ctx, ReloadMessage{Type: "reload", Timestamp: time.Now()})
		}

		return nil
	})

	if err := s.fileWatch.AddPath(s.cfg.Content.PostsDir); err != nil {
		s.logger.Warn(ctx, err, "cannot watch posts directory", "dir", s.cfg.Content.PostsDir)
		return
	}
	if err := s.fileWatch.Start(ctx); err != nil {
		s.logger.Warn(ctx, err, "file watcher failed to start")
	}
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), fmt.Errorf("panic: %v", p), "handler panicked",
					"method", r.Method, "path", r.URL.Path)
				http.Error(rec, "internal server error", http.StatusInternalServerError)
			}

			s.requests.Record(rec.status >= 500)
			s.logger.Debug(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start).String())
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Shutdown stops the listener, the watcher, and the reload hub. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error

	s.shutdown.Do(func() {
		s.logger.Info(ctx, "shutting down")

		s.hub.closeAll()

		if s.fileWatch != nil {
			if werr := s.fileWatch.Stop(); werr != nil {
				s.logger.Warn(ctx, werr, "watcher stop failed")
			}
		}

		s.mutex.RLock()
		srv := s.httpServer
		s.mutex.RUnlock()

		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})

	return err
}
