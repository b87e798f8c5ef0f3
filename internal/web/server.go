// Package web provides the HTTP server and handlers for the image finder UI
// and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ImageFinder/internal/config"
	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/web/middleware"
)

// Server is the HTTP server for the image finder.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter

	closing   chan struct{} // closed when shutdown begins; ends event streams
	closeOnce sync.Once
}

// NewServer creates a Server. It fails when the trusted proxy list is invalid.
func NewServer(cfg *config.Config, service *core.Service) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		service: service,
		router:  chi.NewRouter(),
		closing: make(chan struct{}),
	}
	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // 0 keeps event streams open
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() error {
	trusted, err := middleware.ParseTrustedProxies(s.cfg.Security.TrustedProxies)
	if err != nil {
		return fmt.Errorf("security config: %w", err)
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(trusted))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
	return nil
}

// setupRoutes configures all HTTP routes. The event stream sits outside the
// request timeout.
func (s *Server) setupRoutes() {
	uploadLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		uploadLimit = s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
	}

	s.router.Get("/api/sessions/{id}/events", s.handleEvents)

	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		// Pages
		r.Get("/", s.handleIndex)
		r.Get("/session/{id}", s.handleSessionPage)
		r.With(uploadLimit).Post("/upload", s.handleUploadForm)
		r.With(uploadLimit).Post("/session/{id}/column", s.handleColumnForm)
		r.With(uploadLimit).Post("/session/{id}/next", s.handleNextForm)
		r.Post("/session/{id}/items/{itemID}/select", s.handleSelectForm)
		r.Post("/session/{id}/reset", s.handleResetForm)

		r.Get("/healthz", s.handleHealth)

		r.Route("/api/sessions", func(r chi.Router) {
			r.With(uploadLimit).Post("/", s.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.With(uploadLimit).Post("/column", s.handleChooseColumn)
				r.With(uploadLimit).Post("/next", s.handleNextWindow)
				r.Get("/export", s.handleExport)
				r.Get("/export.zip", s.handleExportArchive)
				r.Post("/items/{itemID}/select", s.handleSelectImage)
				r.Get("/items/{itemID}/download", s.handleDownload)
				r.Get("/items/{itemID}/images/{imageID}/thumb", s.handleThumbnail)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("starting server", "addr", ln.Addr().String())
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server and its background sweepers. Open
// event streams are ended so they do not hold the shutdown until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	s.closeStreams()
	return s.server.Shutdown(ctx)
}

func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	return rl
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
