// Package web serves the dataset editing dashboard: a session-backed
// JSON API over the dataset pipeline, plus health, metrics, and a
// canned-response chat endpoint.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/edp-labs/dataops/internal/auth"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/state"
)

const sessionName = "dataops_session"

// Config holds configuration for the dashboard server.
type Config struct {
	Datasets      *dataset.Service
	Auth          *auth.Authenticator
	Audit         state.Store
	Port          int
	SessionSecret string
	// SecureCookies marks the session cookie Secure-only. Leave false
	// unless the server sits behind TLS; the cookie store defaults to
	// Secure and a plain-HTTP client would drop it.
	SecureCookies bool
	ConfigPath    string
	Watch         bool
	Reload        func() error
	Logger        *slog.Logger
}

// Server is the dashboard server.
type Server struct {
	datasets     *dataset.Service
	auth         *auth.Authenticator
	audit        state.Store
	sessionStore *sessions.CookieStore
	edits        *editStates
	metrics      *metrics
	port         int
	configPath   string
	watch        bool
	reload       func() error
	logger       *slog.Logger
}

// NewServer creates a dashboard server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400) // 1 day
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.SecureCookies
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		datasets:     cfg.Datasets,
		auth:         cfg.Auth,
		audit:        cfg.Audit,
		sessionStore: sessionStore,
		edits:        newEditStates(),
		metrics:      newMetrics(),
		port:         cfg.Port,
		configPath:   cfg.ConfigPath,
		watch:        cfg.Watch,
		reload:       cfg.Reload,
		logger:       logger,
	}
}

// Handler builds the route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/logout", s.handleLogout)
	r.Post("/api/chat", s.handleChat)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/datasets", s.handleListDatasets)
		r.Post("/api/datasets/{name}/load", s.handleLoad)
		r.Post("/api/datasets/{name}/edit", s.handleEdit)
		r.Get("/api/datasets/{name}/review", s.handleReview)
		r.Post("/api/datasets/{name}/save", s.handleSave)
		r.Get("/api/datasets/{name}/history", s.handleHistory)
	})
	return r
}

// requestLogger logs one line per request through the server's slog
// logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dashboard server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.configPath != "" && s.reload != nil {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchConfig re-runs the reload hook when the config file changes.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors replace the file on save, which
	// would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.configPath)); err != nil {
		s.logger.Error("failed to watch config directory", "error", err)
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.configPath) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Info("config changed, reloading", "file", event.Name)
				if err := s.reload(); err != nil {
					s.logger.Error("config reload failed", "error", err)
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
