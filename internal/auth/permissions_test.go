package auth

import "testing"

func TestHasPermission_Admin(t *testing.T) {
	all := []Permission{
		PermDeviceReadAll, PermDeviceOperate, PermDeviceRegister,
		PermMemberList, PermMemberManage,
		PermInvitationManage, PermWorkspaceManage, PermAuditRead,
	}

	for _, perm := range all {
		if !HasPermission(RoleAdmin, perm) {
			t.Errorf("admin should have %s", perm)
		}
	}
}

func TestHasPermission_Member(t *testing.T) {
	should := []Permission{PermDeviceReadAll, PermDeviceOperate, PermMemberList}
	shouldNot := []Permission{
		PermDeviceRegister, PermMemberManage,
		PermInvitationManage, PermWorkspaceManage, PermAuditRead,
	}

	for _, perm := range should {
		if !HasPermission(RoleMember, perm) {
			t.Errorf("member should have %s", perm)
		}
	}
	for _, perm := range shouldNot {
		if HasPermission(RoleMember, perm) {
			t.Errorf("member should NOT have %s", perm)
		}
	}
}

func TestHasPermission_Guest(t *testing.T) {
	if !HasPermission(RoleGuest, PermDeviceOperate) {
		t.Error("guest should have device:operate (device-scoped)")
	}
	if HasPermission(RoleGuest, PermDeviceReadAll) {
		t.Error("guest should NOT see every device")
	}
	if HasPermission(RoleGuest, PermInvitationManage) {
		t.Error("guest should NOT manage invitations")
	}
}

func TestHasPermission_InvalidRole(t *testing.T) {
	if HasPermission("superuser", PermDeviceOperate) {
		t.Error("unknown role should have no permissions")
	}
}

func TestPermissionsForRole(t *testing.T) {
	perms := PermissionsForRole(RoleMember)
	if len(perms) != 3 {
		t.Errorf("member permissions = %d, want 3", len(perms))
	}

	// Mutating the copy must not change the table.
	perms[0] = PermAuditRead
	if HasPermission(RoleMember, PermAuditRead) {
		t.Error("PermissionsForRole() should return a copy")
	}
}

func TestPermissionsForRole_Unknown(t *testing.T) {
	if perms := PermissionsForRole("nobody"); perms != nil {
		t.Errorf("PermissionsForRole(unknown) = %v, want nil", perms)
	}
}

func TestIsDeviceScoped(t *testing.T) {
	tests := []struct {
		role WorkspaceRole
		want bool
	}{
		{RoleGuest, true},
		{RoleMember, false},
		{RoleAdmin, false},
	}
	for _, tt := range tests {
		if got := IsDeviceScoped(tt.role); got != tt.want {
			t.Errorf("IsDeviceScoped(%s) = %v, want %v", tt.role, got, tt.want)
		}
	}
}
