// Package web serves the import API and the HTML preview pages.
package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// DefaultMaxFileSize bounds uploads when Options.MaxFileSize is unset.
const DefaultMaxFileSize = 20 << 20

// Options configures the server. Zero values select defaults.
type Options struct {
	Addr                string
	MaxFileSize         int64
	MaxHeaderSearchRows int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	TrustedProxies []string
	APIKeys        []string

	// RateLimiter throttles /api per client IP when set.
	RateLimiter *limiter.Limiter

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	// Health is called by /healthz, typically a database ping.
	Health func(ctx context.Context) error
}

// Server is the HTTP server of the import service.
type Server struct {
	reg     *imports.Registry
	limiter *imports.Limiter
	opts    Options
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a server for the registered kinds. The limiter bounds
// concurrent previews and commits; nil selects the default limiter.
func NewServer(reg *imports.Registry, lim *imports.Limiter, opts Options) *Server {
	if lim == nil {
		lim = imports.NewLimiter(0, 0)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Minute
	}

	s := &Server{
		reg:     reg,
		limiter: lim,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics)
	}

	s.router.Group(func(r chi.Router) {
		if s.opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(s.opts.RateLimiter, s.rateLimited))
		}
		if len(s.opts.APIKeys) > 0 {
			r.Get("/login", s.handleLoginPage)
			r.Post("/login", s.handleLogin)
		}
		r.With(s.pageAuth).Get("/imports/{kind}/sessions/{sessionID}", s.handleSessionPage)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(s.opts.RequestTimeout))
		if s.opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(s.opts.RateLimiter, s.rateLimited))
		}
		r.Use(middleware.APIKeyAuth(s.opts.APIKeys))

		r.Get("/kinds", s.handleKinds)
		r.Get("/status", s.handleStatus)
		r.Route("/imports/{kind}", func(r chi.Router) {
			r.Get("/template", s.handleTemplate)
			r.Post("/preview", s.handlePreview)
			r.Get("/sessions/{sessionID}", s.handleSession)
			r.Post("/sessions/{sessionID}/commit", s.handleCommit)
		})
	})
}

// Start listens on Options.Addr until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight imports.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if drainErr := s.limiter.WaitForDrain(ctx); err == nil {
		err = drainErr
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; img-src 'self' data:")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
