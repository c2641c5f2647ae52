package workspace

import (
	"fmt"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
)

// Domain errors for the workspace package.
var (
	ErrNotAdmin       = fmt.Errorf("%w: only workspace admins can do this", apperr.ErrForbidden)
	ErrNotMember      = fmt.Errorf("%w: not a member of this workspace", apperr.ErrForbidden)
	ErrNotFound       = fmt.Errorf("%w: workspace", apperr.ErrNotFound)
	ErrMemberNotFound = fmt.Errorf("%w: workspace member", apperr.ErrNotFound)
	ErrInvalidName    = fmt.Errorf("%w: workspace name", apperr.ErrInvalidInput)
	ErrInvalidRole    = fmt.Errorf("%w: role must be admin, member or guest", apperr.ErrInvalidInput)
	ErrNotGuest       = fmt.Errorf("%w: device access can only be set for guests", apperr.ErrInvalidInput)
	ErrInvalidDevice  = fmt.Errorf("%w: device is not an active device of this workspace", apperr.ErrInvalidInput)
)
