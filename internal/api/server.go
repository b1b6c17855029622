// Package api provides the HTTP step server: a CI host can read the form
// defaults, validate fields and trigger scan steps over it.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/narvanalabs/zapper/internal/api/handlers"
	"github.com/narvanalabs/zapper/internal/api/health"
	"github.com/narvanalabs/zapper/internal/api/middleware"
	"github.com/narvanalabs/zapper/internal/auth"
	"github.com/narvanalabs/zapper/internal/builder"
	"github.com/narvanalabs/zapper/internal/shutdown"
	"github.com/narvanalabs/zapper/pkg/config"
)

// Version is the current version of the step server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP step server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	runner        handlers.ScanRunner
	auth          *auth.Service
	inFlight      *shutdown.InFlight
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a step server. authSvc may be nil to leave /v1 open.
func NewServer(cfg *config.Config, runner handlers.ScanRunner, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		runner:   runner,
		auth:     authSvc,
		inFlight: shutdown.NewInFlight("scans"),
		config:   cfg,
		logger:   logger,
	}

	s.healthChecker = health.NewChecker(Version)
	s.healthChecker.Add(cfg.VCS.Client, health.ToolPinger{Binary: cfg.VCS.Binary()}, false)
	s.healthChecker.Add("ant", health.ToolPinger{Binary: cfg.Build.AntBinary}, false)
	s.healthChecker.Add("java", health.ToolPinger{Binary: builder.JavaBinary(cfg.Build.JavaBinary, cfg.Build.JavaHome)}, false)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	r.Get("/health", s.healthChecker.Handler())

	descriptorHandler := handlers.NewDescriptorHandler(s.config.Defaults, s.logger)
	r.Route("/descriptor", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(10 * time.Second))
		r.Get("/", descriptorHandler.Get)
		r.Get("/check-host", descriptorHandler.CheckHost)
	})

	// Scans run as long as the build takes; no request timeout here.
	r.Route("/v1", func(r chi.Router) {
		if s.auth != nil {
			r.Use(middleware.NewAuthMiddleware(s.auth, s.logger).Authenticate)
		}

		scanHandler := handlers.NewScanHandler(s.runner, s.inFlight, s.config.Defaults, s.logger)
		r.Post("/scans", scanHandler.Create)
		r.Post("/scans/stream", scanHandler.Stream)
		r.Get("/scans/ws", scanHandler.WebSocket)
	})

	s.router = r
}

// Start serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Addr()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting step server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Components returns what must be stopped on shutdown, in registration
// order: running scans drain after the listener closes.
func (s *Server) Components() []shutdown.Component {
	return []shutdown.Component{
		s.inFlight,
		shutdown.NewFuncComponent("http", s.Shutdown),
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down step server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
