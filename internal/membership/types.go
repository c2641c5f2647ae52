package membership

import (
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
)

// Profile is the display data of a user.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url,omitempty"`
}

// Member is one row of a workspace roster.
type Member struct {
	UserID   string             `json:"user_id"`
	Role     auth.WorkspaceRole `json:"role"`
	Profile  Profile            `json:"profile"`
	JoinedAt time.Time          `json:"joined_at"`

	// AccessibleDeviceIDs lists the member's active device memberships on
	// active devices of this workspace. Only meaningful for guests.
	AccessibleDeviceIDs []string `json:"accessible_device_ids"`
}
