package device

import (
	"fmt"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
)

// Domain errors for the device package. Each wraps an apperr kind, so
// errors.Is matches both the specific error and its kind.
var (
	// ErrDeviceNotFound is returned when a device does not exist or is not
	// visible to the caller.
	ErrDeviceNotFound = fmt.Errorf("%w: device", apperr.ErrNotFound)

	// ErrNotAdmin is returned when a non-admin attempts to register a device.
	ErrNotAdmin = fmt.Errorf("%w: only workspace admins can register devices", apperr.ErrForbidden)

	// ErrCannotOperate is returned when the caller may see but not operate a device.
	ErrCannotOperate = fmt.Errorf("%w: device cannot be operated by caller", apperr.ErrForbidden)

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = fmt.Errorf("%w: device name", apperr.ErrInvalidInput)

	// ErrInvalidSequence is returned when a tap sequence is malformed.
	ErrInvalidSequence = fmt.Errorf("%w: tap sequence", apperr.ErrInvalidInput)
)
