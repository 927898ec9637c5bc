package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/st0x/st0x-api/internal/handler"
	"github.com/st0x/st0x-api/internal/metrics"
	"github.com/st0x/st0x-api/internal/server/middleware"
	"github.com/st0x/st0x-api/internal/service"
	"github.com/st0x/st0x-api/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	GlobalRPM       int // per-IP requests per minute, 0 disables
	PerKeyRPM       int // per-key requests per minute, 0 disables
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		GlobalRPM:       600,
		PerKeyRPM:       120,
	}
}

// Server is the top-level HTTP server. It owns the chi router, the
// credential store, the authentication gate, and the lifecycle service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	gate       *service.AuthService
	keys       *service.KeyService
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, gate *service.AuthService, keys *service.KeyService, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		gate:    gate,
		keys:    keys,
		metrics: m,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, s.metrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"X-Request-Id", "Retry-After",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.cfg.GlobalRPM > 0 {
		r.Use(middleware.GlobalRateLimit(s.cfg.GlobalRPM))
	}

	// --- Health check: the one route that bypasses the gate ---
	r.Get("/health", s.handleHealth)

	adminHandler := handler.NewAdminHandler(s.store, s.keys)

	// --- Authenticated routes ---
	r.Group(func(r chi.Router) {
		if s.cfg.PerKeyRPM > 0 {
			r.Use(middleware.KeyRateLimit(s.cfg.PerKeyRPM))
		}
		r.Use(middleware.Authenticate(s.gate, s.metrics))

		r.Get("/registry", adminHandler.GetRegistry)
		r.Method("GET", "/metrics", s.metrics.Handler())

		// Admin-key-only management surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			r.Put("/registry", adminHandler.PutRegistry)

			r.Get("/keys", adminHandler.ListKeys)
			r.Post("/keys", adminHandler.CreateKey)
			r.Post("/keys/{keyID}/revoke", adminHandler.RevokeKey)
			r.Delete("/keys/{keyID}", adminHandler.DeleteKey)
		})
	})

	s.router = r
}

// handleHealth is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
