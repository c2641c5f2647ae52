package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twinkletaps/twinkletaps-core/internal/invitation"
)

// invitationResponse is the body returned by POST .../invitations.
type invitationResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Link      string    `json:"link,omitempty"`
}

// acceptResponse tells the client where the accepted invitation leads.
type acceptResponse struct {
	WorkspaceID string `json:"workspace_id"`
	DeviceID    string `json:"device_id,omitempty"`
}

// handleListInvitations returns a workspace's pending invitations.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	list, err := s.invitations.ListPending(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": list, "count": len(list)})
}

// handleCreateInvitation issues an invitation and returns its share link
// when a base URL is configured.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitation.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.invitations.Create(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := invitationResponse{ID: created.ID, Token: created.Token, ExpiresAt: created.ExpiresAt}
	if s.inviteCfg.BaseURL != "" {
		link, err := invitation.Link(s.inviteCfg.BaseURL, created.Token)
		if err != nil {
			s.logger.Warn("building invitation link failed", "invitation_id", created.ID, "error", err)
		} else {
			resp.Link = link
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleGetInvitation resolves a pending invitation by token.
func (s *Server) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.GetByToken(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if inv == nil {
		writeNotFound(w, "invitation not found or no longer pending")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleAcceptInvitation accepts an invitation by token for the caller.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.AcceptToken(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{WorkspaceID: inv.WorkspaceID, DeviceID: inv.DeviceID})
}

// handleRevokeInvitation revokes an invitation by ID.
func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.invitations.Revoke(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "key")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
