package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twinkletaps/twinkletaps-core/internal/device"
)

// registerRequest is the body of POST /workspaces/{id}/devices.
type registerRequest struct {
	Name string `json:"name"`
}

// handleListDevices returns the workspace devices visible to the caller.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListWorkspaceDevices(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleRegisterDevice registers a device. The response carries the broker
// password; it is not retrievable afterwards.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.devices.Register(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "workspaceID"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleGetDevice returns a single device visible to the caller.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.devices.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "deviceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if dev == nil {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleTap sends a tap sequence to a device.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	var req device.TapCommand
	if !decodeJSON(w, r, &req) {
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if err := s.devices.SendTap(r.Context(), userIDFromContext(r.Context()), deviceID, req.Sequence); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sent", "device_id": deviceID})
}
