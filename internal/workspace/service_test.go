package workspace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/dbtest"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	"github.com/twinkletaps/twinkletaps-core/internal/membership"
)

func setup(t *testing.T) (*database.DB, *Service) {
	t.Helper()
	db := dbtest.Open(t)
	return db, NewService(db)
}

func roleOf(t *testing.T, db *database.DB, userID, workspaceID string) (auth.WorkspaceRole, bool) {
	t.Helper()
	role, ok, err := membership.WorkspaceRole(context.Background(), db, userID, workspaceID)
	if err != nil {
		t.Fatalf("WorkspaceRole() error = %v", err)
	}
	return role, ok
}

func activeDeviceMemberships(t *testing.T, db *database.DB, userID string) int {
	t.Helper()
	return dbtest.Count(t, db,
		"SELECT COUNT(*) FROM device_memberships WHERE user_id = ? AND deleted_at IS NULL", userID)
}

func TestCreate(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	user := dbtest.User(t, db, "Ada")

	ws, err := svc.Create(ctx, user, "  Studio  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ws.Name != "Studio" || ws.Role != auth.RoleAdmin {
		t.Errorf("Create() = %+v", ws)
	}
	if role, ok := roleOf(t, db, user, ws.ID); !ok || role != auth.RoleAdmin {
		t.Errorf("creator role = %q (%v), want admin", role, ok)
	}
	if n := dbtest.Count(t, db, "SELECT COUNT(*) FROM audit_logs WHERE action = 'workspace.created'"); n != 1 {
		t.Errorf("audit rows = %d, want 1", n)
	}
}

func TestCreate_InvalidName(t *testing.T) {
	db, svc := setup(t)
	user := dbtest.User(t, db, "Ada")

	for _, name := range []string{"", "   ", strings.Repeat("x", 101)} {
		if _, err := svc.Create(context.Background(), user, name); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidInput", name, err)
		}
	}
	if n := dbtest.Count(t, db, "SELECT COUNT(*) FROM workspaces"); n != 0 {
		t.Errorf("workspaces = %d, want 0", n)
	}
}

func TestListForUser_AndGet(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	user := dbtest.User(t, db, "Ada")
	outsider := dbtest.User(t, db, "Out")

	zeta, err := svc.Create(ctx, user, "Zeta")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	alpha := dbtest.Workspace(t, db, "Alpha")
	dbtest.Member(t, db, user, alpha, "guest")
	gone := dbtest.Workspace(t, db, "Gone")
	dbtest.Member(t, db, user, gone, "member")
	dbtest.Exec(t, db, "UPDATE workspaces SET deleted_at = ? WHERE id = ?", database.Now(), gone)

	list, err := svc.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != alpha || list[1].ID != zeta.ID {
		t.Fatalf("ListForUser() = %+v, want Alpha then Zeta", list)
	}
	if list[0].Role != auth.RoleGuest {
		t.Errorf("Alpha role = %q, want guest", list[0].Role)
	}

	got, err := svc.Get(ctx, user, alpha)
	if err != nil || got == nil || got.Role != auth.RoleGuest {
		t.Errorf("Get(member) = %+v, %v", got, err)
	}
	for _, tc := range []struct{ user, ws string }{{outsider, alpha}, {user, gone}} {
		got, err := svc.Get(ctx, tc.user, tc.ws)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("Get(%s, %s) = %+v, want nil", tc.user, tc.ws, got)
		}
	}
}

func TestRenameAndDelete(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	admin := dbtest.User(t, db, "Ada")
	member := dbtest.User(t, db, "Mo")
	ws, err := svc.Create(ctx, admin, "Studio")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dbtest.Member(t, db, member, ws.ID, "member")

	if err := svc.Rename(ctx, member, ws.ID, "Mine"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Rename(member) error = %v, want ErrForbidden", err)
	}
	if err := svc.Rename(ctx, admin, ws.ID, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("Rename(empty) error = %v, want ErrInvalidInput", err)
	}
	if err := svc.Rename(ctx, admin, ws.ID, "Workshop"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	got, _ := svc.Get(ctx, member, ws.ID)
	if got == nil || got.Name != "Workshop" {
		t.Errorf("Get() after rename = %+v", got)
	}

	if err := svc.Delete(ctx, member, ws.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Delete(member) error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, admin, ws.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := roleOf(t, db, admin, ws.ID); ok {
		t.Error("deleted workspace should grant no role")
	}
	if n := dbtest.Count(t, db, "SELECT COUNT(*) FROM workspaces WHERE id = ?", ws.ID); n != 1 {
		t.Error("Delete() should keep the row")
	}
}

func TestListMembers(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	ws := dbtest.Workspace(t, db, "Studio")
	admin := dbtest.User(t, db, "Ada")
	guest := dbtest.User(t, db, "Gus")
	dbtest.Member(t, db, admin, ws, "admin")
	dbtest.Member(t, db, guest, ws, "guest")

	members, err := svc.ListMembers(ctx, guest, ws)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("ListMembers() returned %d, want 2", len(members))
	}

	if _, err := svc.ListMembers(ctx, dbtest.User(t, db, "Out"), ws); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("ListMembers(outsider) error = %v, want ErrForbidden", err)
	}
}

func TestUpdateMemberRole_LastAdmin(t *testing.T) {
	tests := []struct {
		name    string
		admins  int
		newRole string
		wantErr error
	}{
		{"sole admin demoted to member", 1, "member", apperr.ErrLastAdmin},
		{"sole admin demoted to guest", 1, "guest", apperr.ErrLastAdmin},
		{"sole admin kept as admin", 1, "admin", nil},
		{"one of two admins demoted", 2, "member", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, svc := setup(t)
			ws := dbtest.Workspace(t, db, "Studio")
			a := dbtest.User(t, db, "A")
			dbtest.Member(t, db, a, ws, "admin")
			if tt.admins == 2 {
				dbtest.Member(t, db, dbtest.User(t, db, "B"), ws, "admin")
			}

			err := svc.UpdateMemberRole(context.Background(), a, ws, a, tt.newRole)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateMemberRole() error = %v, want %v", err, tt.wantErr)
			}

			want := auth.RoleAdmin
			if tt.wantErr == nil {
				want, _ = auth.ParseWorkspaceRole(tt.newRole)
			}
			if role, _ := roleOf(t, db, a, ws); role != want {
				t.Errorf("role = %q, want %q", role, want)
			}
		})
	}
}

func TestUpdateMemberRole_Errors(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	ws := dbtest.Workspace(t, db, "Studio")
	admin := dbtest.User(t, db, "Ada")
	member := dbtest.User(t, db, "Mo")
	dbtest.Member(t, db, admin, ws, "admin")
	dbtest.Member(t, db, member, ws, "member")

	if err := svc.UpdateMemberRole(ctx, member, ws, admin, "guest"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("UpdateMemberRole(member caller) error = %v, want ErrForbidden", err)
	}
	if err := svc.UpdateMemberRole(ctx, admin, ws, member, "owner"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("UpdateMemberRole(owner) error = %v, want ErrInvalidInput", err)
	}
	if err := svc.UpdateMemberRole(ctx, admin, ws, dbtest.User(t, db, "Out"), "member"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateMemberRole(non-member) error = %v, want ErrNotFound", err)
	}

	if err := svc.UpdateMemberRole(ctx, admin, ws, member, "Admin"); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	if role, _ := roleOf(t, db, member, ws); role != auth.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}
	if n := dbtest.Count(t, db, "SELECT COUNT(*) FROM audit_logs WHERE action = 'member.role_changed'"); n != 1 {
		t.Errorf("audit rows = %d, want 1", n)
	}
}

func TestRemoveMember_LastAdmin(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	ws := dbtest.Workspace(t, db, "Studio")
	a := dbtest.User(t, db, "A")
	dbtest.Member(t, db, a, ws, "admin")

	if err := svc.RemoveMember(ctx, a, ws, a); !errors.Is(err, apperr.ErrLastAdmin) {
		t.Fatalf("RemoveMember(sole admin) error = %v, want ErrLastAdmin", err)
	}
	if _, ok := roleOf(t, db, a, ws); !ok {
		t.Fatal("sole admin should remain a member")
	}

	b := dbtest.User(t, db, "B")
	dbtest.Member(t, db, b, ws, "admin")
	if err := svc.RemoveMember(ctx, a, ws, a); err != nil {
		t.Fatalf("RemoveMember(one of two admins) error = %v", err)
	}
	if _, ok := roleOf(t, db, a, ws); ok {
		t.Error("removed admin still has a role")
	}

	// B is now the only admin again.
	if err := svc.RemoveMember(ctx, b, ws, b); !errors.Is(err, apperr.ErrLastAdmin) {
		t.Errorf("RemoveMember(new sole admin) error = %v, want ErrLastAdmin", err)
	}
}

func TestRemoveMember_ScopedToWorkspace(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	admin := dbtest.User(t, db, "Ada")
	guest := dbtest.User(t, db, "Gus")

	ws := dbtest.Workspace(t, db, "Studio")
	other := dbtest.Workspace(t, db, "Other")
	dbtest.Member(t, db, admin, ws, "admin")
	dbtest.Member(t, db, guest, ws, "guest")
	dbtest.Member(t, db, guest, other, "guest")

	here := dbtest.Device(t, db, ws, "Door")
	there := dbtest.Device(t, db, other, "Gate")
	dbtest.DeviceMember(t, db, guest, here)
	dbtest.DeviceMember(t, db, guest, there)

	if err := svc.RemoveMember(ctx, admin, ws, guest); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}

	if _, ok := roleOf(t, db, guest, ws); ok {
		t.Error("guest should no longer be a member")
	}
	if _, ok := roleOf(t, db, guest, other); !ok {
		t.Error("membership of the other workspace should survive")
	}
	if _, ok, _ := membership.DeviceRole(ctx, db, guest, here); ok {
		t.Error("device membership in this workspace should be removed")
	}
	if _, ok, _ := membership.DeviceRole(ctx, db, guest, there); !ok {
		t.Error("device membership in the other workspace should survive")
	}

	if err := svc.RemoveMember(ctx, admin, ws, guest); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("RemoveMember(again) error = %v, want ErrNotFound", err)
	}
}

func TestSetGuestDeviceAccess(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	ws := dbtest.Workspace(t, db, "Studio")
	admin := dbtest.User(t, db, "Ada")
	guest := dbtest.User(t, db, "Gus")
	dbtest.Member(t, db, admin, ws, "admin")
	dbtest.Member(t, db, guest, ws, "guest")

	d1 := dbtest.Device(t, db, ws, "One")
	d2 := dbtest.Device(t, db, ws, "Two")
	d3 := dbtest.Device(t, db, ws, "Three")
	dbtest.DeviceMember(t, db, guest, d1)
	dbtest.DeviceMember(t, db, guest, d2)

	if err := svc.SetGuestDeviceAccess(ctx, admin, ws, guest, []string{d2, d3, d3}); err != nil {
		t.Fatalf("SetGuestDeviceAccess() error = %v", err)
	}

	for _, tc := range []struct {
		device string
		want   bool
	}{{d1, false}, {d2, true}, {d3, true}} {
		if _, ok, _ := membership.DeviceRole(ctx, db, guest, tc.device); ok != tc.want {
			t.Errorf("device %s access = %v, want %v", tc.device, ok, tc.want)
		}
	}
	if n := activeDeviceMemberships(t, db, guest); n != 2 {
		t.Errorf("active device memberships = %d, want 2", n)
	}

	if err := svc.SetGuestDeviceAccess(ctx, admin, ws, guest, nil); err != nil {
		t.Fatalf("SetGuestDeviceAccess(nil) error = %v", err)
	}
	if n := activeDeviceMemberships(t, db, guest); n != 0 {
		t.Errorf("active device memberships = %d, want 0", n)
	}
}

func TestSetGuestDeviceAccess_Errors(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	ws := dbtest.Workspace(t, db, "Studio")
	other := dbtest.Workspace(t, db, "Other")
	admin := dbtest.User(t, db, "Ada")
	member := dbtest.User(t, db, "Mo")
	guest := dbtest.User(t, db, "Gus")
	dbtest.Member(t, db, admin, ws, "admin")
	dbtest.Member(t, db, member, ws, "member")
	dbtest.Member(t, db, guest, ws, "guest")
	mine := dbtest.Device(t, db, ws, "Door")
	foreign := dbtest.Device(t, db, other, "Gate")

	tests := []struct {
		name    string
		caller  string
		target  string
		devices []string
		wantErr error
	}{
		{"non-admin caller", member, guest, []string{mine}, apperr.ErrForbidden},
		{"target not a guest", admin, member, []string{mine}, apperr.ErrInvalidInput},
		{"target not a member", admin, dbtest.User(t, db, "Out"), []string{mine}, apperr.ErrNotFound},
		{"device of another workspace", admin, guest, []string{mine, foreign}, apperr.ErrInvalidInput},
		{"unknown device", admin, guest, []string{"dev-missing"}, apperr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetGuestDeviceAccess(ctx, tt.caller, ws, tt.target, tt.devices)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetGuestDeviceAccess() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n := activeDeviceMemberships(t, db, guest); n != 0 {
		t.Errorf("failed calls wrote %d device memberships", n)
	}
}
