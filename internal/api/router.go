package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the dependency checks behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", s.handleListWorkspaces)
			r.Post("/", s.handleCreateWorkspace)

			r.Route("/{workspaceID}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkspace)
				r.Patch("/", s.handleRenameWorkspace)
				r.Delete("/", s.handleDeleteWorkspace)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", s.handleListMembers)
					r.Patch("/{userID}", s.handleUpdateMemberRole)
					r.Delete("/{userID}", s.handleRemoveMember)
					r.Put("/{userID}/devices", s.handleSetGuestDevices)
				})

				r.Get("/devices", s.handleListDevices)
				r.Post("/devices", s.handleRegisterDevice)

				r.Get("/invitations", s.handleListInvitations)
				r.Post("/invitations", s.handleCreateInvitation)

				r.Get("/audit", s.handleListAuditLogs)
			})
		})

		r.Route("/devices/{deviceID}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/tap", s.handleTap)
		})

		// {key} is an invitation ID for DELETE and a token elsewhere.
		r.Route("/invitations/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetInvitation)
			r.Delete("/", s.handleRevokeInvitation)
			r.Post("/accept", s.handleAcceptInvitation)
		})
	})

	return r
}

// handleHealth reports liveness and database health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	status := http.StatusOK

	if err := s.db.HealthCheck(ctx); err != nil {
		s.logger.Warn("database health check failed", "error", err)
		resp["status"] = "degraded"
		resp["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp["database"] = "ok"
	}

	if s.pool != nil {
		if n, err := s.pool.CountUnclaimed(ctx); err == nil {
			resp["credentials_available"] = n
		}
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}

	writeJSON(w, status, resp)
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
