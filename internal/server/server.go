package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"subalign/internal/align"
	"subalign/internal/config"
	"subalign/internal/feedback"
	"subalign/internal/logging"
	"subalign/internal/subtitles"
)

// Aligner runs one alignment request.
type Aligner interface {
	Align(ctx context.Context, source, target []subtitles.Cue) (*align.Result, error)
}

// FeedbackQueue accepts feedback without blocking.
type FeedbackQueue interface {
	Submit(entry feedback.Entry) bool
	Stats() feedback.Stats
}

// Info describes the running service for the banner and health routes.
type Info struct {
	Version           string
	EmbeddingProvider string
	FeedbackBackend   string
	TemporalFallback  bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg      config.Server
	info     Info
	aligner  Aligner
	feedback FeedbackQueue
	limiter  *keyedLimiter
	router   *chi.Mux
	logger   *slog.Logger
	started  time.Time
}

// New creates a Server with all routes configured. fb may be nil, in which
// case /api/learn reports the feature as unavailable.
func New(cfg config.Server, info Info, aligner Aligner, fb FeedbackQueue, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		info:     info,
		aligner:  aligner,
		feedback: fb,
		router:   chi.NewRouter(),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		started:  time.Now(),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestContext)
	s.router.Use(middleware.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.With(s.rateLimit).Post("/align", s.handleAlign)
		r.Post("/learn", s.handleLearn)
		r.Post("/generate-srt", s.handleGenerateSRT)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Run listens on the configured bind address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Bind)
	if bind == "" {
		return errors.New("server bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	requestTimeout := time.Duration(s.cfg.RequestTimeoutSeconds) * time.Second
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	defer close(done)
	if s.limiter != nil {
		go s.limiter.run(done)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}
