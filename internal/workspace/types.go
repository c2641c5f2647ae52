package workspace

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
)

const maxNameLength = 100

// Workspace is a tenant together with the caller's role in it.
type Workspace struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Role      auth.WorkspaceRole `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	// Permissions is what the caller's role allows; set by Service.Get only.
	Permissions []auth.Permission `json:"permissions,omitempty"`
}

// NormalizeName trims name and checks it is 1-100 characters.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: cannot be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return name, nil
}
