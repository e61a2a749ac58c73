// Package handler contains the HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (query/form params, JSON body, route params)
//  2. Call the service layer with plain Go values
//  3. Write the response through writeJSON / writeError
//
// Handlers hold no business rules; they are the glue between HTTP and the
// services. Authentication is done earlier, by middleware in internal/auth,
// which leaves the user id in the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger is anything whose liveness the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the local session store is reachable.
type HealthHandler struct {
	sessions Pinger
	logger   *slog.Logger
}

func NewHealthHandler(sessions Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{sessions: sessions, logger: logger}
}

// HandleHealth answers 200 {"status":"ok"} or 503 when the session store is
// unreachable.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
