package api

import (
	"net/http"

	"aiaudit/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and readiness checks
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	// Scanning
	s.router.HandleFunc("POST /scan", s.handleScan)
	s.router.HandleFunc("POST /scan/diff", s.handleScanDiff)

	// Rule catalogs
	s.router.HandleFunc("GET /rules", s.handleListRules)

	// Root endpoint
	s.router.HandleFunc("GET /{$}", s.handleRoot)
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "AI Code Audit HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /ready - Readiness check",
			"GET /metrics - Prometheus metrics",
			"POST /scan - Scan a JSON list of changed files",
			"POST /scan/diff - Scan a unified diff (gzip or zstd accepted)",
			"GET /rules?category=... - List rule catalogs",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
