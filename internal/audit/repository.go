// Package audit records and lists the mutations made through the core:
// device registration, membership changes, invitation state changes and
// workspace lifecycle.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// Actions written by the core.
const (
	ActionDeviceRegistered   = "device.registered"
	ActionTapSent            = "device.tap_sent"
	ActionInvitationCreated  = "invitation.created"
	ActionInvitationAccepted = "invitation.accepted"
	ActionInvitationRevoked  = "invitation.revoked"
	ActionMemberRoleChanged  = "member.role_changed"
	ActionMemberRemoved      = "member.removed"
	ActionGuestDevicesSet    = "guest.devices_set"
	ActionWorkspaceCreated   = "workspace.created"
	ActionWorkspaceRenamed   = "workspace.renamed"
	ActionWorkspaceDeleted   = "workspace.deleted"
)

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Page size bounds for List.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Filter selects audit entries. Zero-valued fields match everything.
type Filter struct {
	WorkspaceID string
	UserID      string
	Action      string
	EntityType  string // device, invitation, member, workspace
	EntityID    string
	Since       time.Time // entries at or after this instant
	Limit       int       // default 50, max 200
	Offset      int
}

// normalize clamps paging into range.
func (f Filter) normalize() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultPageSize
	case f.Limit > maxPageSize:
		f.Limit = maxPageSize
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// where renders the filter as a WHERE clause with "?" placeholders.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	for _, eq := range []struct{ col, val string }{
		{"workspace_id", f.WorkspaceID},
		{"user_id", f.UserID},
		{"action", f.Action},
		{"entity_type", f.EntityType},
		{"entity_id", f.EntityID},
	} {
		if eq.val != "" {
			conds = append(conds, eq.col+" = ?")
			args = append(args, eq.val)
		}
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Record inserts an audit entry on q, normally the transaction performing
// the audited mutation so both commit together. The ID and CreatedAt are
// generated if empty.
func Record(ctx context.Context, q database.Querier, log *AuditLog) error {
	if log.ID == "" {
		log.ID = database.NewID("aud")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = database.Now()
	}

	var detailsJSON *string
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, user_id, workspace_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Action, log.EntityType,
		nullableString(log.EntityID), nullableString(log.UserID), nullableString(log.WorkspaceID),
		detailsJSON, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Repository reads audit logs.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new audit log repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a standalone audit entry.
func (r *Repository) Create(ctx context.Context, log *AuditLog) error {
	return Record(ctx, r.db, log)
}

// List returns the entries matching filter, newest first, with the total
// match count for paging.
func (r *Repository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = filter.normalize()
	where, args := filter.where()

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := `SELECT id, action, entity_type, entity_id, user_id, workspace_id, details, created_at
		FROM audit_logs ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{Logs: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func scanAuditLog(rows *sql.Rows) (AuditLog, error) {
	var (
		entry                                    AuditLog
		entityID, userID, workspaceID, detailsJS sql.NullString
	)
	if err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType,
		&entityID, &userID, &workspaceID, &detailsJS, &entry.CreatedAt); err != nil {
		return AuditLog{}, fmt.Errorf("scanning audit log: %w", err)
	}
	entry.EntityID = entityID.String
	entry.UserID = userID.String
	entry.WorkspaceID = workspaceID.String

	// Malformed details are dropped rather than failing the page.
	if detailsJS.Valid && detailsJS.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(detailsJS.String), &details) == nil {
			entry.Details = details
		}
	}
	return entry, nil
}
