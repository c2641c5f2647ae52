package invitation

import (
	"net/url"
	"time"
)

// Type selects what an invitation grants.
type Type string

// Invitation types.
const (
	TypeWorkspace Type = "workspace"
	TypeDevice    Type = "device"
)

// Valid reports whether t is a known invitation type.
func (t Type) Valid() bool {
	return t == TypeWorkspace || t == TypeDevice
}

// Invitation is a stored invitation joined with display names.
type Invitation struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Token       string    `json:"-"`
	InviterID   string    `json:"inviter_id"`
	WorkspaceID string    `json:"workspace_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	WorkspaceName string `json:"workspace_name"`
	DeviceName    string `json:"device_name,omitempty"`
	InviterName   string `json:"inviter_name,omitempty"`
	InviterEmail  string `json:"inviter_email,omitempty"`
}

// CreateInput describes a new invitation. DeviceID is required for device
// invitations and ignored otherwise.
type CreateInput struct {
	Type     Type   `json:"type"`
	Role     string `json:"role"`
	DeviceID string `json:"device_id,omitempty"`
}

// Created is returned by Create. The token is the bearer secret of the
// invitation link.
type Created struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Link builds the shareable invitation URL under baseURL.
func Link(baseURL, token string) (string, error) {
	return url.JoinPath(baseURL, "invite", token)
}
