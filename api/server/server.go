// Package server wires the dashboard API, the embedded page and the health
// endpoints into one HTTP server.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/malbeclabs/salesdash/api/handlers"
	"github.com/malbeclabs/salesdash/api/metrics"
)

//go:embed ui
var uiFiles embed.FS

type Config struct {
	Logger            *slog.Logger
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       handlers.VersionInfo
	Dataset           handlers.Dataset

	CORSAllowedOrigins []string
	// RatePerMinute and RateBurst bound /api requests per client IP.
	RatePerMinute int
	RateBurst     int
	// Sentry reports panics when set.
	Sentry bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Dataset == nil {
		return errors.New("dataset is required")
	}
	if cfg.RatePerMinute <= 0 || cfg.RateBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return nil
}

type Server struct {
	log     *slog.Logger
	cfg     Config
	limiter *handlers.RateLimiter
	httpSrv *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, err := handlers.New(cfg.Logger, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	limiter, err := handlers.NewRateLimiter(handlers.RateLimiterConfig{
		PerMinute: cfg.RatePerMinute,
		Burst:     cfg.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	s := &Server{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: limiter,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	if cfg.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			s.log.Error("failed to write healthz response", "error", err)
		}
	})
	r.Get("/readyz", s.readyzHandler)
	r.Get("/version", handlers.GetVersion(cfg.VersionInfo))

	r.Route("/api", func(r chi.Router) {
		// An empty origin list would mean "*" to cors, so same-origin only.
		if len(cfg.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSAllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", "If-None-Match"},
				ExposedHeaders: []string{"ETag"},
				MaxAge:         300,
			}))
		}
		r.Use(handlers.RateLimitMiddleware(s.limiter))
		r.Use(middleware.Compress(5))

		r.Get("/dashboard", h.GetDashboard)
		r.Get("/options", h.GetOptions)
		r.Get("/charts", h.GetCharts)
		r.Get("/charts/{chart}", h.GetChart)
		r.Post("/update", h.PostUpdate)
		r.Get("/info", h.GetInfo)
	})

	if err := s.serveUI(r); err != nil {
		return nil, err
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// serveUI serves the embedded dashboard page at the root.
func (s *Server) serveUI(r chi.Router) error {
	uiFS, err := fs.Sub(uiFiles, "ui")
	if err != nil {
		return fmt.Errorf("failed to load ui files: %w", err)
	}
	r.Handle("/*", http.FileServer(http.FS(uiFS)))
	return nil
}

func (s *Server) Run(ctx context.Context) error {
	defer s.limiter.Close()

	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: http listening", "address", s.cfg.ListenAddr, "dataset", s.cfg.Dataset.ID(), "rows", s.cfg.Dataset.Len())

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err(), "address", s.cfg.ListenAddr)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: http server shutdown complete")
		return nil
	case err := <-serveErrCh:
		s.log.Error("server: http server error causing shutdown", "error", err, "address", s.cfg.ListenAddr)
		return err
	}
}

// readyzHandler reports ready once a dataset with rows is loaded. The server
// is only constructed after loading, so an empty dataset is the one failure.
func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Dataset.Len() == 0 {
		s.log.Debug("readyz: dataset is empty")
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte("dataset is empty\n")); err != nil {
			s.log.Error("failed to write readyz response", "error", err)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}
