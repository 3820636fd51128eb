package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/polyhft/clob-engine/internal/control"
	"github.com/polyhft/clob-engine/internal/marketcache"
	"github.com/polyhft/clob-engine/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for metrics, health checks, and the C8
// control plane's inspection/streaming surface.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Cache         *marketcache.Cache
	Controller    *control.Controller
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Bounded-request routes get the 30s timeout the teacher applied
	// globally; the SSE stream below is intentionally long-lived and must
	// not be cut off by it.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		if cfg.Cache != nil {
			marketHandler := NewMarketHandler(cfg.Cache, cfg.Logger)
			r.Get("/api/orderbook", marketHandler.HandleOrderbook)
		}

		if cfg.Controller != nil {
			snapHandler := NewSnapshotHandler(cfg.Controller, cfg.Logger)
			r.Get("/api/snapshot", snapHandler.HandleSnapshot)

			posHandler := NewPositionsHandler(cfg.Controller, cfg.Logger)
			r.Get("/api/positions", posHandler.HandlePositions)

			oppHandler := NewOpportunitiesHandler(cfg.Controller, cfg.Logger)
			r.Get("/api/opportunities", oppHandler.HandleOpportunities)
		}
	})

	if cfg.Controller != nil {
		snapHandler := NewSnapshotHandler(cfg.Controller, cfg.Logger)
		r.Get("/api/snapshot/stream", snapHandler.HandleSnapshotStream)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // the SSE stream is long-lived; bounded routes use their own timeout middleware
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
