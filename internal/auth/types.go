package auth

import (
	"errors"
	"strings"
)

// WorkspaceRole is a user's tier within one workspace.
type WorkspaceRole string

const (
	// RoleGuest sees nothing by default. Each visible device needs an
	// explicit device membership.
	RoleGuest WorkspaceRole = "guest"

	// RoleMember sees and operates every device in the workspace.
	RoleMember WorkspaceRole = "member"

	// RoleAdmin additionally registers devices, manages members and
	// issues invitations.
	RoleAdmin WorkspaceRole = "admin"
)

// WorkspaceRoles is the closed set of workspace roles, lowest first.
var WorkspaceRoles = []WorkspaceRole{RoleGuest, RoleMember, RoleAdmin}

// ParseWorkspaceRole converts a stored or submitted string into a role.
// The bool is false for anything outside the closed set.
func ParseWorkspaceRole(s string) (WorkspaceRole, bool) {
	r := WorkspaceRole(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the defined workspace roles.
func (r WorkspaceRole) Valid() bool {
	switch r {
	case RoleGuest, RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}

// rank orders roles for invitation upgrades: guest < member <= admin.
func (r WorkspaceRole) rank() int {
	switch r {
	case RoleGuest:
		return 1
	case RoleMember:
		return 2 //nolint:mnd // role ordering
	case RoleAdmin:
		return 3 //nolint:mnd // role ordering
	default:
		return 0
	}
}

// Outranks reports whether r is strictly above other.
func (r WorkspaceRole) Outranks(other WorkspaceRole) bool {
	return r.rank() > other.rank()
}

// DeviceRole is a user's role on a single device.
type DeviceRole string

// RoleDeviceUser may see and operate the device.
const RoleDeviceUser DeviceRole = "user"

// ParseDeviceRole converts a stored or submitted string into a device role.
func ParseDeviceRole(s string) (DeviceRole, bool) {
	r := DeviceRole(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the defined device roles.
func (r DeviceRole) Valid() bool {
	return r == RoleDeviceUser
}

// Sentinel errors for session tokens.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)
