package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// workspaceRequest is the body of POST /workspaces and PATCH /workspaces/{id}.
type workspaceRequest struct {
	Name string `json:"name"`
}

// roleRequest is the body of PATCH /workspaces/{id}/members/{userID}.
type roleRequest struct {
	Role string `json:"role"`
}

// guestDevicesRequest is the body of PUT .../members/{userID}/devices.
type guestDevicesRequest struct {
	DeviceIDs []string `json:"device_ids"`
}

// handleListWorkspaces returns the caller's workspaces.
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.workspaces.ListForUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": list, "count": len(list)})
}

// handleCreateWorkspace creates a workspace with the caller as admin.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws, err := s.workspaces.Create(r.Context(), userIDFromContext(r.Context()), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

// handleGetWorkspace returns a workspace the caller belongs to.
func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaces.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if ws == nil {
		writeNotFound(w, "workspace not found")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// handleRenameWorkspace renames a workspace.
func (s *Server) handleRenameWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.workspaces.Rename(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteWorkspace soft-deletes a workspace.
func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMembers returns the workspace roster.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.workspaces.ListMembers(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

// handleUpdateMemberRole changes a member's role.
func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.workspaces.UpdateMemberRole(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "workspaceID"), chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveMember removes a member and their device access.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.workspaces.RemoveMember(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "workspaceID"), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetGuestDevices replaces a guest's device access.
func (s *Server) handleSetGuestDevices(w http.ResponseWriter, r *http.Request) {
	var req guestDevicesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.workspaces.SetGuestDeviceAccess(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "workspaceID"), chi.URLParam(r, "userID"), req.DeviceIDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
