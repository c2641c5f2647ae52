package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twinkletaps/twinkletaps-core/internal/audit"
	"github.com/twinkletaps/twinkletaps-core/internal/auth"
)

// handleListAuditLogs returns paginated audit entries of a workspace.
// Admin only.
//
// Query parameters:
//   - action: filter by action (device.registered, invitation.accepted, ...)
//   - entity_type: filter by entity type (device, invitation, member, workspace)
//   - entity_id: filter by specific entity ID
//   - user_id: filter by acting user
//   - since: RFC 3339 lower bound on created_at
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	role, ok, err := s.members.GetWorkspaceRole(r.Context(), userIDFromContext(r.Context()), workspaceID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok || !auth.HasPermission(role, auth.PermAuditRead) {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "only workspace admins can read the audit log")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		WorkspaceID: workspaceID,
		Action:      q.Get("action"),
		EntityType:  q.Get("entity_type"),
		EntityID:    q.Get("entity_id"),
		UserID:      q.Get("user_id"),
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
