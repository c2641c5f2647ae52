package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermDeviceReadAll    Permission = "device:read:all"
	PermDeviceOperate    Permission = "device:operate"
	PermDeviceRegister   Permission = "device:register"
	PermMemberList       Permission = "member:list"
	PermMemberManage     Permission = "member:manage"
	PermInvitationManage Permission = "invitation:manage"
	PermWorkspaceManage  Permission = "workspace:manage"
	PermAuditRead        Permission = "audit:read"
)

// rolePermissions maps each workspace role to its granted permissions.
// This is the single source of truth for the authorisation model.
// Guest permissions are further narrowed to devices with a membership row.
var rolePermissions = map[WorkspaceRole][]Permission{
	RoleGuest: {
		PermDeviceOperate, // device-scoped
		PermMemberList,
	},
	RoleMember: {
		PermDeviceReadAll,
		PermDeviceOperate,
		PermMemberList,
	},
	RoleAdmin: {
		PermDeviceReadAll,
		PermDeviceOperate,
		PermDeviceRegister,
		PermMemberList,
		PermMemberManage,
		PermInvitationManage,
		PermWorkspaceManage,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role WorkspaceRole, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role WorkspaceRole) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}

// IsDeviceScoped returns true if the role only reaches devices it holds
// an explicit device membership for.
func IsDeviceScoped(role WorkspaceRole) bool {
	return role == RoleGuest
}
