package workspace

import (
	"context"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
	"github.com/twinkletaps/twinkletaps-core/internal/audit"
	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/device"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	"github.com/twinkletaps/twinkletaps-core/internal/membership"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service administers workspaces and rosters.
type Service struct {
	db      *database.DB
	members *membership.Store
	logger  Logger
	now     func() time.Time
}

// NewService creates a workspace service.
func NewService(db *database.DB) *Service {
	return &Service{
		db:      db,
		members: membership.NewStore(db),
		logger:  noopLogger{},
		now:     database.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

func requireAdmin(ctx context.Context, q database.Querier, userID, workspaceID string) error {
	role, ok, err := membership.WorkspaceRole(ctx, q, userID, workspaceID)
	if err != nil {
		return err
	}
	if !ok || role != auth.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// Create creates a workspace with userID as its first admin.
func (s *Service) Create(ctx context.Context, userID, name string) (*Workspace, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ws := &Workspace{
		ID:        database.NewID("ws"),
		Name:      name,
		Role:      auth.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := insertWorkspace(ctx, tx, ws); err != nil {
			return err
		}
		if err := membership.AddWorkspaceMember(ctx, tx, userID, ws.ID, auth.RoleAdmin, now); err != nil {
			return err
		}
		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionWorkspaceCreated,
			EntityType:  "workspace",
			EntityID:    ws.ID,
			UserID:      userID,
			WorkspaceID: ws.ID,
			Details:     map[string]any{"name": name},
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("workspace created", "workspace_id", ws.ID, "user_id", userID)
	return ws, nil
}

// ListForUser returns the workspaces userID belongs to with their role.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Workspace, error) {
	return listForUser(ctx, s.db, userID)
}

// Get returns a workspace with the caller's role, or nil when the caller
// is not a member.
func (s *Service) Get(ctx context.Context, userID, workspaceID string) (*Workspace, error) {
	role, ok, err := membership.WorkspaceRole(ctx, s.db, userID, workspaceID)
	if err != nil || !ok {
		return nil, err
	}
	ws, err := getWorkspace(ctx, s.db, workspaceID)
	if err != nil || ws == nil {
		return nil, err
	}
	ws.Role = role
	ws.Permissions = auth.PermissionsForRole(role)
	return ws, nil
}

// Rename changes a workspace's name. Admin only.
func (s *Service) Rename(ctx context.Context, adminID, workspaceID, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}
		now := s.now()
		if err := renameWorkspace(ctx, tx, workspaceID, name, now); err != nil {
			return err
		}
		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionWorkspaceRenamed,
			EntityType:  "workspace",
			EntityID:    workspaceID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"name": name},
			CreatedAt:   now,
		})
	})
}

// Delete tombstones a workspace. Its memberships, devices and pending
// invitations stop resolving. Admin only.
func (s *Service) Delete(ctx context.Context, adminID, workspaceID string) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}
		now := s.now()
		if err := deleteWorkspace(ctx, tx, workspaceID, now); err != nil {
			return err
		}
		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionWorkspaceDeleted,
			EntityType:  "workspace",
			EntityID:    workspaceID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("workspace deleted", "workspace_id", workspaceID, "user_id", adminID)
	return nil
}

// ListMembers returns the roster of a workspace. Any member may read it.
func (s *Service) ListMembers(ctx context.Context, userID, workspaceID string) ([]membership.Member, error) {
	if _, ok, err := membership.WorkspaceRole(ctx, s.db, userID, workspaceID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotMember
	}
	return s.members.ListWorkspaceMembers(ctx, workspaceID)
}

// guardLastAdmin fails with apperr.ErrLastAdmin when targetID is the only
// admin of the workspace. The admin set is read on tx.
func guardLastAdmin(ctx context.Context, tx *database.Tx, workspaceID, targetID string) error {
	admins, err := membership.ListAdmins(ctx, tx, workspaceID)
	if err != nil {
		return err
	}
	if len(admins) == 1 && admins[0] == targetID {
		return apperr.ErrLastAdmin
	}
	return nil
}

// UpdateMemberRole changes targetID's role. Demoting the only admin fails
// with apperr.ErrLastAdmin.
func (s *Service) UpdateMemberRole(ctx context.Context, adminID, workspaceID, targetID, newRole string) error {
	role, ok := auth.ParseWorkspaceRole(newRole)
	if !ok {
		return ErrInvalidRole
	}

	var previous auth.WorkspaceRole
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}

		current, isMember, err := membership.WorkspaceRole(ctx, tx, targetID, workspaceID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrMemberNotFound
		}
		previous = current

		if role != auth.RoleAdmin {
			if err := guardLastAdmin(ctx, tx, workspaceID, targetID); err != nil {
				return err
			}
		}

		now := s.now()
		if _, err := membership.SetWorkspaceRole(ctx, tx, targetID, workspaceID, role, now); err != nil {
			return err
		}
		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionMemberRoleChanged,
			EntityType:  "member",
			EntityID:    targetID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"from": string(current), "to": string(role)},
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("member role changed",
		"workspace_id", workspaceID, "target_user_id", targetID, "from", string(previous), "to", string(role))
	return nil
}

// RemoveMember removes targetID from the workspace together with their
// device memberships on this workspace's devices. Removing the only admin
// fails with apperr.ErrLastAdmin.
func (s *Service) RemoveMember(ctx context.Context, adminID, workspaceID, targetID string) error {
	var revoked int64
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, workspaceID, targetID); err != nil {
			return err
		}

		now := s.now()
		removed, err := membership.RemoveWorkspaceMember(ctx, tx, targetID, workspaceID, now)
		if err != nil {
			return err
		}
		if !removed {
			return ErrMemberNotFound
		}

		revoked, err = membership.RemoveDeviceMembers(ctx, tx, targetID, workspaceID, nil, now)
		if err != nil {
			return err
		}

		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionMemberRemoved,
			EntityType:  "member",
			EntityID:    targetID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"device_memberships_removed": revoked},
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("member removed",
		"workspace_id", workspaceID, "target_user_id", targetID, "device_memberships_removed", revoked)
	return nil
}

// SetGuestDeviceAccess makes deviceIDs the exact set of devices guest
// targetID may use in the workspace.
func (s *Service) SetGuestDeviceAccess(ctx context.Context, adminID, workspaceID, targetID string, deviceIDs []string) error {
	keep := dedupe(deviceIDs)

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}

		role, ok, err := membership.WorkspaceRole(ctx, tx, targetID, workspaceID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotFound
		}
		if role != auth.RoleGuest {
			return ErrNotGuest
		}

		for _, id := range keep {
			active, err := device.ActiveInWorkspace(ctx, tx, workspaceID, id)
			if err != nil {
				return err
			}
			if !active {
				return ErrInvalidDevice
			}
		}

		now := s.now()
		var added int
		for _, id := range keep {
			created, err := membership.EnsureDeviceMember(ctx, tx, targetID, id, now)
			if err != nil {
				return err
			}
			if created {
				added++
			}
		}
		removed, err := membership.RemoveDeviceMembers(ctx, tx, targetID, workspaceID, keep, now)
		if err != nil {
			return err
		}

		s.logger.Debug("guest device access reconciled",
			"workspace_id", workspaceID, "target_user_id", targetID, "added", added, "removed", removed)

		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionGuestDevicesSet,
			EntityType:  "member",
			EntityID:    targetID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"device_ids": keep},
			CreatedAt:   now,
		})
	})
}

// dedupe drops empty and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
