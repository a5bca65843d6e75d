package handler

import (
	"context"
	"net/http"

	"github.com/trailpaw-ai/companion-platform/internal/events"
)

// Pinger verifies a backing store is reachable.
type Pinger interface {
	Ping() error
}

// SessionPinger verifies the ephemeral store is reachable.
type SessionPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db          Pinger
	sessions    SessionPinger
	eventClient *events.Client
}

// NewHealthHandler creates a new health handler. sessions and eventClient
// may be nil when those backends are not configured.
func NewHealthHandler(db Pinger, sessions SessionPinger, eventClient *events.Client) *HealthHandler {
	return &HealthHandler{
		db:          db,
		sessions:    sessions,
		eventClient: eventClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	if h.sessions != nil {
		if err := h.sessions.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "session store unreachable",
			})
			return
		}
	}

	if h.eventClient != nil && !h.eventClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "event stream not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
