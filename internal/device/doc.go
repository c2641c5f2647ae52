// Package device provides the Device Registry for TwinkleTaps Core.
//
// A device is a physical tap receiver bound to one workspace. Registering
// a device claims a pre-provisioned broker credential from the credential
// pool; the credential's allocated UUID becomes the device UUID and the
// device listens on "<topic prefix>/<device uuid>".
//
// # Key Types
//
//   - Device: a registered device plus the caller's resolved roles
//   - RegisterResult: the one-time response to a registration, carrying
//     the plaintext broker password
//   - Service: Register, Get, ListWorkspaceDevices and SendTap
//
// # Visibility
//
// Admins and members see every active device of their workspace. Guests
// see only devices they hold an active device membership for. Callers
// without a workspace role see nothing.
//
// # Usage
//
//	svc := device.NewService(db, pool, publisher, "twinkletaps/devices")
//	res, err := svc.Register(ctx, adminID, workspaceID, "Front door")
//	if errors.Is(err, apperr.ErrPoolEmpty) {
//	    // no broker credentials left
//	}
package device
