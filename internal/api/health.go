package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hugo-lorenzo-mato/content-agency/internal/diagnostics"
)

type healthResponse struct {
	Status      string                    `json:"status"`
	Timestamp   time.Time                 `json:"timestamp"`
	Version     string                    `json:"version"`
	ConfigValid bool                      `json:"config_valid"`
	ConfigError string                    `json:"config_error,omitempty"`
	Database    string                    `json:"database"`
	ActiveJobs  int                       `json:"active_jobs"`
	Host        *diagnostics.HostSnapshot `json:"host,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
}

// handleHealth reports configuration validity, store reachability and
// host resources. It always answers 200; degraded dependencies show in
// the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Timestamp:   s.now(),
		Version:     s.version,
		ConfigValid: true,
		Database:    "connected",
		ActiveJobs:  len(s.runner.Running()),
	}

	if s.configCheck != nil {
		if err := s.configCheck(); err != nil {
			resp.ConfigValid = false
			resp.ConfigError = err.Error()
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "error: " + truncate(err.Error(), 100)
	}

	if s.host != nil {
		snap := s.host.Collect()
		resp.Host = &snap
		resp.Warnings = snap.Warnings()
	}

	respondJSON(w, http.StatusOK, resp)
}

type endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "content-agency",
		"version": s.version,
		"endpoints": []endpoint{
			{"GET", "/health"},
			{"GET", "/metrics"},
			{"POST", "/api/v1/projects"},
			{"GET", "/api/v1/projects"},
			{"GET", "/api/v1/projects/active"},
			{"GET", "/api/v1/projects/{id}/status"},
			{"GET", "/api/v1/projects/{id}/content"},
			{"GET", "/api/v1/projects/{id}/state"},
			{"DELETE", "/api/v1/projects/{id}"},
			{"GET", "/api/v1/projects/{id}/checkpoints"},
			{"POST", "/api/v1/projects/{id}/checkpoints"},
			{"POST", "/api/v1/projects/{id}/checkpoints/{cid}/restore"},
			{"POST", "/api/v1/projects/{id}/feedback"},
		},
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
