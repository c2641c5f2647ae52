package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

func insertWorkspace(ctx context.Context, q database.Querier, ws *Workspace) error {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO workspaces (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		ws.ID, ws.Name, ws.CreatedAt, ws.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting workspace: %w", err)
	}
	return nil
}

// getWorkspace returns an active workspace, or nil.
func getWorkspace(ctx context.Context, q database.Querier, id string) (*Workspace, error) {
	var ws Workspace
	err := q.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM workspaces WHERE id = ? AND deleted_at IS NULL",
		id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("getting workspace: %w", err)
	}
	return &ws, nil
}

// listForUser returns the active workspaces userID belongs to, by name.
func listForUser(ctx context.Context, q database.Querier, userID string) ([]Workspace, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT w.id, w.name, w.created_at, w.updated_at, m.role
		 FROM workspaces w
		 JOIN workspace_memberships m ON m.workspace_id = w.id
		 WHERE m.user_id = ? AND m.deleted_at IS NULL AND w.deleted_at IS NULL
		 ORDER BY w.name, w.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := []Workspace{}
	for rows.Next() {
		var ws Workspace
		var raw string
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		role, ok := auth.ParseWorkspaceRole(raw)
		if !ok {
			continue
		}
		ws.Role = role
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return workspaces, nil
}

func renameWorkspace(ctx context.Context, q database.Querier, id, name string, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		"UPDATE workspaces SET name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		name, now, id,
	); err != nil {
		return fmt.Errorf("renaming workspace: %w", err)
	}
	return nil
}

func deleteWorkspace(ctx context.Context, q database.Querier, id string, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		"UPDATE workspaces SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	return nil
}
