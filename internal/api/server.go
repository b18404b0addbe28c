// Package api serves the audit engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aiaudit/internal/audit"
	"aiaudit/internal/config"
	"aiaudit/internal/rules"
	"aiaudit/internal/slogutil"
)

// Server represents the HTTP API server
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	cfg     config.ServerConfig
	logger  *slog.Logger
	rules   *rules.Set
	auditor *audit.Auditor
	scan    audit.ScanConfig
	metrics *Metrics
	ready   atomic.Bool
}

// NewServer creates a new HTTP server instance. scan holds the defaults
// requests may override.
func NewServer(cfg config.ServerConfig, set *rules.Set, scan audit.ScanConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	s := &Server{
		router:  http.NewServeMux(),
		cfg:     cfg,
		logger:  logger,
		rules:   set,
		scan:    scan,
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	s.auditor = audit.NewAuditor(set,
		audit.WithLogger(logger),
		audit.WithScanHook(s.metrics.ObserveScan),
	)

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.ready.Store(true)

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		"addr", s.cfg.Addr,
		"rules", s.rules.RuleCount(),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = BodyLimitMiddleware(s.cfg.MaxBodyBytes)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger, s.metrics)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware(s.cfg.CORSOrigins)(handler)
	return handler
}
