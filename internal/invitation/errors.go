package invitation

import (
	"fmt"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
)

// Domain errors for the invitation package. Each wraps an apperr kind.
// Acceptance of a non-pending invitation returns
// apperr.ErrAlreadyAcceptedOrExpired unwrapped.
var (
	ErrNotAdmin       = fmt.Errorf("%w: only workspace admins can manage invitations", apperr.ErrForbidden)
	ErrNotFound       = fmt.Errorf("%w: invitation", apperr.ErrNotFound)
	ErrMalformedToken = fmt.Errorf("%w: malformed invitation token", apperr.ErrInvalidInput)
	ErrInvalidType    = fmt.Errorf("%w: invitation type must be workspace or device", apperr.ErrInvalidInput)
	ErrInvalidRole    = fmt.Errorf("%w: invitation role", apperr.ErrInvalidInput)
	ErrInvalidDevice  = fmt.Errorf("%w: device is not an active device of this workspace", apperr.ErrInvalidInput)
)
