package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/maestro-bridge/internal/bridges/maestro"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/queue", s.handleQueue)
	})

	return r
}

// handleHealth returns the server health status. The HTTP status is 200 even
// when the bridge is degraded; the body carries the detail.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.bridge.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  s.bridge.GetMetrics().Status,
		"session": state.Session.String(),
		"bus":     state.Bus.String(),
		"version": s.version,
	})
}

// SnapshotResponse is the body of GET /api/v1/snapshot.
type SnapshotResponse struct {
	UpdatedAt *time.Time       `json:"updated_at"`
	Fields    maestro.Snapshot `json:"fields"`
}

// handleSnapshot returns the last decoded status frame.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, at := s.bridge.Snapshot()
	if snap == nil {
		writeNotFound(w, "no status frame received yet")
		return
	}

	resp := SnapshotResponse{Fields: snap}
	if !at.IsZero() {
		utc := at.UTC()
		resp.UpdatedAt = &utc
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQueue lists the commands waiting to be sent. The queue is listed
// front first, so the next command to be sent is the last entry.
func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	pending := s.bridge.PendingCommands()
	if pending == nil {
		pending = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}
