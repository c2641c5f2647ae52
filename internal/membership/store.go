package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// Store answers role lookups and lists rosters.
type Store struct {
	db *database.DB
}

// NewStore creates a membership store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// GetWorkspaceRole returns the caller's role in a workspace.
// The bool is false when there is no active membership.
func (s *Store) GetWorkspaceRole(ctx context.Context, userID, workspaceID string) (auth.WorkspaceRole, bool, error) {
	return WorkspaceRole(ctx, s.db, userID, workspaceID)
}

// GetDeviceRole returns the caller's device-level role.
// The bool is false when there is no active device membership.
func (s *Store) GetDeviceRole(ctx context.Context, userID, deviceID string) (auth.DeviceRole, bool, error) {
	return DeviceRole(ctx, s.db, userID, deviceID)
}

// WorkspaceRole looks up userID's active role in workspaceID on q.
// Tombstoned workspaces grant no role.
func WorkspaceRole(ctx context.Context, q database.Querier, userID, workspaceID string) (auth.WorkspaceRole, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT m.role
		 FROM workspace_memberships m
		 JOIN workspaces w ON w.id = m.workspace_id
		 JOIN users u ON u.id = m.user_id
		 WHERE m.user_id = ? AND m.workspace_id = ?
		   AND m.deleted_at IS NULL AND w.deleted_at IS NULL AND u.deleted_at IS NULL`,
		userID, workspaceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting workspace role: %w", err)
	}

	role, ok := auth.ParseWorkspaceRole(raw)
	if !ok {
		return "", false, nil
	}
	return role, true, nil
}

// DeviceRole looks up userID's active role on deviceID on q.
func DeviceRole(ctx context.Context, q database.Querier, userID, deviceID string) (auth.DeviceRole, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT dm.role
		 FROM device_memberships dm
		 JOIN devices d ON d.id = dm.device_id
		 WHERE dm.user_id = ? AND dm.device_id = ?
		   AND dm.deleted_at IS NULL AND d.deleted_at IS NULL`,
		userID, deviceID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting device role: %w", err)
	}

	role, ok := auth.ParseDeviceRole(raw)
	if !ok {
		return "", false, nil
	}
	return role, true, nil
}

// ListWorkspaceMembers returns the active roster of a workspace with each
// member's device-scoped access, ordered by join time.
func (s *Store) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	members, err := s.listMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	access, err := s.listDeviceAccess(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	for i := range members {
		if ids, ok := access[members[i].UserID]; ok {
			members[i].AccessibleDeviceIDs = ids
		}
	}
	return members, nil
}

func (s *Store) listMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.user_id, m.role, m.created_at, u.name, u.email, u.image_url
		 FROM workspace_memberships m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.workspace_id = ? AND m.deleted_at IS NULL AND u.deleted_at IS NULL
		 ORDER BY m.created_at, m.user_id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		var raw string
		var name, imageURL sql.NullString
		if err := rows.Scan(&m.UserID, &raw, &m.JoinedAt, &name, &m.Profile.Email, &imageURL); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		role, ok := auth.ParseWorkspaceRole(raw)
		if !ok {
			continue
		}
		m.Role = role
		m.Profile.Name = name.String
		m.Profile.ImageURL = imageURL.String
		m.AccessibleDeviceIDs = []string{}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

// listDeviceAccess maps user id to active device ids within the workspace.
func (s *Store) listDeviceAccess(ctx context.Context, workspaceID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dm.user_id, dm.device_id
		 FROM device_memberships dm
		 JOIN devices d ON d.id = dm.device_id
		 WHERE d.workspace_id = ? AND d.deleted_at IS NULL AND dm.deleted_at IS NULL
		 ORDER BY dm.device_id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing device access: %w", err)
	}
	defer rows.Close()

	access := make(map[string][]string)
	for rows.Next() {
		var userID, deviceID string
		if err := rows.Scan(&userID, &deviceID); err != nil {
			return nil, fmt.Errorf("scanning device access: %w", err)
		}
		access[userID] = append(access[userID], deviceID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device access: %w", err)
	}
	return access, nil
}

// ListAdmins returns the user ids holding the admin role in a workspace.
// On PostgreSQL the rows stay locked until q's transaction ends, so a
// concurrent demotion waits and then re-reads the admin set.
func ListAdmins(ctx context.Context, q database.Querier, workspaceID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id FROM workspace_memberships
		 WHERE workspace_id = ? AND role = 'admin' AND deleted_at IS NULL
		 ORDER BY user_id`+q.Dialect().ForUpdate(),
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer rows.Close()

	admins := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning admin: %w", err)
		}
		admins = append(admins, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admins: %w", err)
	}
	return admins, nil
}

// AddWorkspaceMember inserts an active workspace membership.
func AddWorkspaceMember(ctx context.Context, q database.Querier, userID, workspaceID string, role auth.WorkspaceRole, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO workspace_memberships (id, user_id, workspace_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		database.NewID("wsm"), userID, workspaceID, string(role), now, now,
	); err != nil {
		return fmt.Errorf("adding workspace member: %w", err)
	}
	return nil
}

// SetWorkspaceRole changes an active membership's role.
// It reports whether a row was updated.
func SetWorkspaceRole(ctx context.Context, q database.Querier, userID, workspaceID string, role auth.WorkspaceRole, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE workspace_memberships SET role = ?, updated_at = ?
		 WHERE user_id = ? AND workspace_id = ? AND deleted_at IS NULL`,
		string(role), now, userID, workspaceID,
	)
	if err != nil {
		return false, fmt.Errorf("setting workspace role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveWorkspaceMember tombstones an active membership.
func RemoveWorkspaceMember(ctx context.Context, q database.Querier, userID, workspaceID string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE workspace_memberships SET deleted_at = ?, updated_at = ?
		 WHERE user_id = ? AND workspace_id = ? AND deleted_at IS NULL`,
		now, now, userID, workspaceID,
	)
	if err != nil {
		return false, fmt.Errorf("removing workspace member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// EnsureDeviceMember creates a device membership at the user role unless
// an active one exists. It reports whether a row was created.
func EnsureDeviceMember(ctx context.Context, q database.Querier, userID, deviceID string, now time.Time) (bool, error) {
	if _, ok, err := DeviceRole(ctx, q, userID, deviceID); err != nil || ok {
		return false, err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO device_memberships (id, user_id, device_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		database.NewID("dvm"), userID, deviceID, string(auth.RoleDeviceUser), now,
	); err != nil {
		return false, fmt.Errorf("adding device member: %w", err)
	}
	return true, nil
}

// RemoveDeviceMembers tombstones userID's device memberships on devices of
// workspaceID, leaving the ids in keep untouched. Devices of other
// workspaces are never affected.
func RemoveDeviceMembers(ctx context.Context, q database.Querier, userID, workspaceID string, keep []string, now time.Time) (int64, error) {
	query := `UPDATE device_memberships SET deleted_at = ?
		 WHERE user_id = ? AND deleted_at IS NULL
		   AND device_id IN (SELECT id FROM devices WHERE workspace_id = ?)`
	args := []any{now, userID, workspaceID}
	if len(keep) > 0 {
		query += " AND device_id NOT IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(keep)), ", ") + ")"
		for _, id := range keep {
			args = append(args, id)
		}
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing device members: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
