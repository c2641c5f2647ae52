package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// deviceColumns is the column list for all device queries.
const deviceColumns = `d.id, d.workspace_id, d.name, d.device_uuid, d.mqtt_topic, d.mqtt_username, d.created_at, d.updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var d Device
	if err := s.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.DeviceUUID, &d.MQTTTopic, &d.MQTTUsername, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// insertDevice persists a new device on q.
func insertDevice(ctx context.Context, q database.Querier, d *Device) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO devices (id, workspace_id, name, device_uuid, mqtt_topic, mqtt_username, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.WorkspaceID, d.Name, d.DeviceUUID, d.MQTTTopic, d.MQTTUsername, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// getDevice returns an active device of an active workspace, or nil.
func getDevice(ctx context.Context, q database.Querier, id string) (*Device, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+deviceColumns+`
		 FROM devices d
		 JOIN workspaces w ON w.id = d.workspace_id
		 WHERE d.id = ? AND d.deleted_at IS NULL AND w.deleted_at IS NULL`,
		id,
	)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("getting device: %w", err)
	}
	return d, nil
}

// listDevices returns every active device of a workspace by name.
func listDevices(ctx context.Context, q database.Querier, workspaceID string) ([]Device, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+deviceColumns+`
		 FROM devices d
		 JOIN workspaces w ON w.id = d.workspace_id
		 WHERE d.workspace_id = ? AND d.deleted_at IS NULL AND w.deleted_at IS NULL
		 ORDER BY d.name, d.id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// listMemberDevices returns the active devices of a workspace on which
// userID holds an active device membership with a known role.
func listMemberDevices(ctx context.Context, q database.Querier, workspaceID, userID string) ([]Device, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+deviceColumns+`, dm.role
		 FROM devices d
		 JOIN workspaces w ON w.id = d.workspace_id
		 JOIN device_memberships dm ON dm.device_id = d.id
		 WHERE d.workspace_id = ? AND dm.user_id = ?
		   AND d.deleted_at IS NULL AND w.deleted_at IS NULL AND dm.deleted_at IS NULL
		 ORDER BY d.name, d.id`,
		workspaceID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing member devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		var d Device
		var raw string
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.DeviceUUID, &d.MQTTTopic, &d.MQTTUsername, &d.CreatedAt, &d.UpdatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		role, ok := auth.ParseDeviceRole(raw)
		if !ok {
			continue
		}
		d.UserRole = &role
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// ActiveInWorkspace reports whether deviceID names an active device of
// workspaceID.
func ActiveInWorkspace(ctx context.Context, q database.Querier, workspaceID, deviceID string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE id = ? AND workspace_id = ? AND deleted_at IS NULL",
		deviceID, workspaceID,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking device: %w", err)
	}
	return n > 0, nil
}
