package device

import (
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
)

// Device is a registered tap receiver.
//
// The broker password is never part of a Device: it is returned once in
// RegisterResult and kept only in the credential row for the broker's
// auth backend.
type Device struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspace_id"`
	Name         string    `json:"name"`
	DeviceUUID   string    `json:"device_uuid"`
	MQTTTopic    string    `json:"mqtt_topic"`
	MQTTUsername string    `json:"mqtt_username"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Caller-relative fields, set by Get.
	UserRole      *auth.DeviceRole   `json:"user_role,omitempty"`
	WorkspaceRole auth.WorkspaceRole `json:"workspace_role,omitempty"`
}

// RegisterResult is returned once by Register.
type RegisterResult struct {
	DeviceID     string `json:"device_id"`
	DeviceUUID   string `json:"device_uuid"`
	MQTTTopic    string `json:"mqtt_topic"`
	MQTTUsername string `json:"mqtt_username"`
	MQTTPassword string `json:"mqtt_password"`
}

// TapCommand is the payload published to a device topic.
type TapCommand struct {
	Sequence string `json:"sequence"`
}
