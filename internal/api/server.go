// Package api provides the HTTP REST API for the chatboat service.
//
// Endpoints:
//
//	POST /bot/v1/message         - blocking chat exchange
//	POST /bot/v1/message/stream  - SSE pseudo-streaming chat exchange
//	POST /api/auth/signup        - account creation
//	POST /api/auth/login         - credential login
//	POST /api/auth/logout        - bearer-protected logout
//	GET  /health                 - liveness probe
//	GET  /ready                  - readiness probe (DB ping)
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, logging and CORS middleware
//   - message.go: chat endpoints (blocking + SSE)
//   - auth.go: signup/login/logout and the bearer middleware
//   - health.go: health probes
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nova-ai/chatboat/internal/auth"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout prevents Slowloris-style header trickling.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout must cover a fully paced SSE reply, which can take
	// minutes for long responses at the default word delay.
	WriteTimeout = 2 * time.Minute

	// IdleTimeout applies between keep-alive requests.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger         *slog.Logger
	Pipeline       MessagePipeline    // Required
	Users          UserStore          // Required
	Tokens         *auth.TokenManager // Required
	Pool           *pgxpool.Pool      // Optional: nil disables DB ping in /ready
	CORSOrigins    []string           // Allowed origins for CORS
	IncludeDetails bool               // Attach internal error text outside production
}

// Server is the chatboat HTTP server.
type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	corsOrigins []string
}

// NewServer creates a new API server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("user store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mh := NewMessageHandler(cfg.Pipeline, cfg.IncludeDetails, logger)
	mh.RegisterRoutes(mux)

	ah := NewAuthHandler(cfg.Users, cfg.Tokens, logger)
	ah.RegisterRoutes(mux)

	hh := NewHealthHandler(cfg.Pool, logger)
	hh.RegisterRoutes(mux)

	return &Server{mux: mux, logger: logger, corsOrigins: cfg.CORSOrigins}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → CORS → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
