// Package server exposes the pixelart pipeline over HTTP.
//
// Routes:
//
//	POST /v1/pixelate   convert an image (raw body or multipart field "image")
//	POST /v1/palette    report the dominant colors of an image as JSON
//	GET  /healthz       liveness probe
//	GET  /version       build information
//
// Conversion parameters are query arguments: kernel, scale, block_size,
// max_dimension, quality and format (the input format, otherwise taken from
// the upload's filename or sniffed from its content). Errors are returned as
// JSON objects {"code": ..., "message": ...}.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pixelart/pkg/pipeline"
)

// DefaultMaxUploadBytes bounds request bodies when Config.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 32 << 20

// Config configures a Server.
type Config struct {
	Runner         *pipeline.Runner
	Defaults       pipeline.Options // applied before query arguments
	MaxUploadBytes int64
	Logger         *log.Logger
}

// Server serves conversions.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	maxBytes int64
	logger   *log.Logger
	router   chi.Router
}

// New builds a server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		runner:   cfg.Runner,
		defaults: cfg.Defaults,
		maxBytes: cfg.MaxUploadBytes,
		logger:   cfg.Logger,
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxUploadBytes
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(s.maxBytes))
		r.Post("/pixelate", s.handlePixelate)
		r.Post("/palette", s.handlePalette)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
