package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// pendingSelect reads invitations with display names. Callers append
// their own conditions after the WHERE clause.
const pendingSelect = `SELECT i.id, i.type, i.token, i.inviter_id, i.workspace_id, i.device_id, i.role,
		i.created_at, i.expires_at, w.name, d.name, u.name, u.email
	 FROM invitations i
	 JOIN workspaces w ON w.id = i.workspace_id
	 JOIN users u ON u.id = i.inviter_id
	 LEFT JOIN devices d ON d.id = i.device_id
	 WHERE i.accepted_at IS NULL AND i.revoked_at IS NULL AND i.expires_at > ?
	   AND w.deleted_at IS NULL AND (i.device_id IS NULL OR d.deleted_at IS NULL)`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(s scanner) (*Invitation, error) {
	var inv Invitation
	var deviceID, deviceName, inviterName sql.NullString
	if err := s.Scan(&inv.ID, &inv.Type, &inv.Token, &inv.InviterID, &inv.WorkspaceID, &deviceID, &inv.Role,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.WorkspaceName, &deviceName, &inviterName, &inv.InviterEmail); err != nil {
		return nil, err
	}
	inv.DeviceID = deviceID.String
	inv.DeviceName = deviceName.String
	inv.InviterName = inviterName.String
	return &inv, nil
}

func insertInvitation(ctx context.Context, q database.Querier, inv *Invitation) error {
	var deviceID any
	if inv.DeviceID != "" {
		deviceID = inv.DeviceID
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO invitations (id, type, token, inviter_id, workspace_id, device_id, role, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, string(inv.Type), inv.Token, inv.InviterID, inv.WorkspaceID, deviceID, inv.Role, inv.CreatedAt, inv.ExpiresAt,
	); err != nil {
		return fmt.Errorf("inserting invitation: %w", err)
	}
	return nil
}

// findPendingByToken returns the pending invitation for token, or nil.
func findPendingByToken(ctx context.Context, q database.Querier, token string, now time.Time) (*Invitation, error) {
	inv, err := scanInvitation(q.QueryRowContext(ctx, pendingSelect+` AND i.token = ?`, now, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("getting invitation: %w", err)
	}
	return inv, nil
}

func listPending(ctx context.Context, q database.Querier, workspaceID string, now time.Time) ([]Invitation, error) {
	rows, err := q.QueryContext(ctx,
		pendingSelect+` AND i.workspace_id = ? ORDER BY i.created_at DESC, i.id DESC`,
		now, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	invitations := []Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invitations: %w", err)
	}
	return invitations, nil
}

// markAccepted claims a pending invitation for userID. It reports false
// when the invitation was already accepted, revoked or has expired, or
// when its workspace or device has since been deleted.
func markAccepted(ctx context.Context, q database.Querier, id, userID string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE invitations SET accepted_at = ?, accepted_by = ?
		 WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > ?
		   AND EXISTS (SELECT 1 FROM workspaces w WHERE w.id = invitations.workspace_id AND w.deleted_at IS NULL)
		   AND (invitations.device_id IS NULL OR EXISTS (
		     SELECT 1 FROM devices d WHERE d.id = invitations.device_id AND d.deleted_at IS NULL))`,
		now, userID, id, now,
	)
	if err != nil {
		return false, fmt.Errorf("accepting invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

// markRevoked revokes a pending invitation. It reports false when the
// invitation had already reached a terminal state.
func markRevoked(ctx context.Context, q database.Querier, id string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE invitations SET revoked_at = ?
		 WHERE id = ? AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > ?`,
		now, id, now,
	)
	if err != nil {
		return false, fmt.Errorf("revoking invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

// workspaceOf returns the workspace of an invitation in any state.
func workspaceOf(ctx context.Context, q database.Querier, id string) (string, error) {
	var workspaceID string
	err := q.QueryRowContext(ctx, "SELECT workspace_id FROM invitations WHERE id = ?", id).Scan(&workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting invitation: %w", err)
	}
	return workspaceID, nil
}
