package api

import (
	"net/http"
	"time"

	"aiaudit/internal/rules"
	"aiaudit/internal/version"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ReadyResponse is the response for GET /ready
type ReadyResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Catalogs  map[rules.Category]int `json:"catalogs"`
}

// handleHealth responds to health check requests (simple liveness check)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
	}

	WriteJSON(w, response, http.StatusOK)
}

// handleReady reports whether the catalogs are loaded and the server is not
// draining.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	catalogs := make(map[rules.Category]int)
	ready := s.ready.Load()
	for _, c := range rules.AllCategories() {
		cat := s.rules.Catalog(c)
		if cat == nil {
			ready = false
			continue
		}
		catalogs[c] = len(cat.Rules)
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, ReadyResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Catalogs:  catalogs,
	}, statusCode)
}
