package invitation

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

// DefaultTTL is how long an invitation stays pending.
const DefaultTTL = 48 * time.Hour

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

// Service manages the invitation lifecycle.
type Service struct {
	db       *database.DB
	logger   Logger
	now      func() time.Time
	newToken func() (string, error)
	ttl      time.Duration
}

// NewService creates an invitation service.
func NewService(db *database.DB) *Service {
	return &Service{
		db:       db,
		logger:   noopLogger{},
		now:      database.Now,
		newToken: GenerateToken,
		ttl:      DefaultTTL,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// requireAdmin fails with ErrNotAdmin unless userID administers workspaceID.
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

// validateInput checks in against the workspace and returns the role and
// device id to store.
func validateInput(ctx context.Context, q database.Querier, workspaceID string, in CreateInput) (role, deviceID string, err error) {
	switch in.Type {
	case TypeWorkspace:
		r, ok := auth.ParseWorkspaceRole(in.Role)
		if !ok {
			return "", "", ErrInvalidRole
		}
		return string(r), "", nil

	case TypeDevice:
		r, ok := auth.ParseDeviceRole(in.Role)
		if !ok {
			return "", "", ErrInvalidRole
		}
		if in.DeviceID == "" {
			return "", "", ErrInvalidDevice
		}
		active, err := device.ActiveInWorkspace(ctx, q, workspaceID, in.DeviceID)
		if err != nil {
			return "", "", err
		}
		if !active {
			return "", "", ErrInvalidDevice
		}
		return string(r), in.DeviceID, nil

	default:
		return "", "", ErrInvalidType
	}
}

// Create issues an invitation to workspaceID. Only admins may invite;
// nothing is written otherwise.
func (s *Service) Create(ctx context.Context, inviterID, workspaceID string, in CreateInput) (*Created, error) {
	var created *Created
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := requireAdmin(ctx, tx, inviterID, workspaceID); err != nil {
			return err
		}

		role, deviceID, err := validateInput(ctx, tx, workspaceID, in)
		if err != nil {
			return err
		}

		token, err := s.newToken()
		if err != nil {
			return err
		}

		now := s.now()
		inv := &Invitation{
			ID:          database.NewID("inv"),
			Type:        in.Type,
			Token:       token,
			InviterID:   inviterID,
			WorkspaceID: workspaceID,
			DeviceID:    deviceID,
			Role:        role,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}
		if err := insertInvitation(ctx, tx, inv); err != nil {
			return err
		}

		if err := audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionInvitationCreated,
			EntityType:  "invitation",
			EntityID:    inv.ID,
			UserID:      inviterID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"type": string(inv.Type), "role": role, "device_id": deviceID},
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		created = &Created{ID: inv.ID, Token: token, ExpiresAt: inv.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation created", "invitation_id", created.ID, "workspace_id", workspaceID, "type", string(in.Type))
	return created, nil
}

// GetByToken resolves a pending invitation. It returns nil when the token
// is unknown, accepted, revoked or expired, or when its workspace or
// device has been deleted.
func (s *Service) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	if !wellFormed(token) {
		return nil, ErrMalformedToken
	}
	return findPendingByToken(ctx, s.db, token, s.now())
}

// Accept consumes inv for userID and grants what it carries. Of several
// concurrent accepts of one invitation exactly one succeeds; the others
// fail with apperr.ErrAlreadyAcceptedOrExpired.
func (s *Service) Accept(ctx context.Context, userID string, inv *Invitation) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		now := s.now()
		ok, err := markAccepted(ctx, tx, inv.ID, userID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyAcceptedOrExpired
		}

		switch inv.Type {
		case TypeWorkspace:
			err = s.grantWorkspace(ctx, tx, userID, inv, now)
		case TypeDevice:
			err = s.grantDevice(ctx, tx, userID, inv, now)
		default:
			err = ErrInvalidType
		}
		if err != nil {
			return err
		}

		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionInvitationAccepted,
			EntityType:  "invitation",
			EntityID:    inv.ID,
			UserID:      userID,
			WorkspaceID: inv.WorkspaceID,
			Details:     map[string]any{"type": string(inv.Type), "role": inv.Role},
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("invitation accepted", "invitation_id", inv.ID, "user_id", userID)
	return nil
}

// grantWorkspace inserts the membership, or upgrades an existing guest.
// Members and admins keep their role.
func (s *Service) grantWorkspace(ctx context.Context, tx *database.Tx, userID string, inv *Invitation, now time.Time) error {
	granted, ok := auth.ParseWorkspaceRole(inv.Role)
	if !ok {
		return ErrInvalidRole
	}

	current, isMember, err := membership.WorkspaceRole(ctx, tx, userID, inv.WorkspaceID)
	if err != nil {
		return err
	}
	if !isMember {
		return membership.AddWorkspaceMember(ctx, tx, userID, inv.WorkspaceID, granted, now)
	}
	if current == auth.RoleGuest && granted.Outranks(current) {
		_, err := membership.SetWorkspaceRole(ctx, tx, userID, inv.WorkspaceID, granted, now)
		return err
	}
	return nil
}

// grantDevice gives userID the device, joining the workspace as a guest
// when they are not a member yet.
func (s *Service) grantDevice(ctx context.Context, tx *database.Tx, userID string, inv *Invitation, now time.Time) error {
	if inv.DeviceID == "" {
		return ErrInvalidDevice
	}

	_, isMember, err := membership.WorkspaceRole(ctx, tx, userID, inv.WorkspaceID)
	if err != nil {
		return err
	}
	if !isMember {
		if err := membership.AddWorkspaceMember(ctx, tx, userID, inv.WorkspaceID, auth.RoleGuest, now); err != nil {
			return err
		}
	}

	_, err = membership.EnsureDeviceMember(ctx, tx, userID, inv.DeviceID, now)
	return err
}

// AcceptToken resolves token and accepts it for userID. It returns the
// accepted invitation so callers can route to what was granted.
func (s *Service) AcceptToken(ctx context.Context, userID, token string) (*Invitation, error) {
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	if err := s.Accept(ctx, userID, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListPending returns the pending invitations of a workspace, newest
// first. Admin only.
func (s *Service) ListPending(ctx context.Context, adminID, workspaceID string) ([]Invitation, error) {
	if err := requireAdmin(ctx, s.db, adminID, workspaceID); err != nil {
		return nil, err
	}
	return listPending(ctx, s.db, workspaceID, s.now())
}

// Revoke ends a pending invitation. The caller must administer the
// invitation's workspace. Revoking an invitation that is already
// accepted, expired or revoked succeeds without changing it.
func (s *Service) Revoke(ctx context.Context, adminID, invitationID string) error {
	var revoked bool
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		workspaceID, err := workspaceOf(ctx, tx, invitationID)
		if err != nil {
			return err
		}
		if err := requireAdmin(ctx, tx, adminID, workspaceID); err != nil {
			return err
		}

		now := s.now()
		revoked, err = markRevoked(ctx, tx, invitationID, now)
		if err != nil || !revoked {
			return err
		}

		return audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionInvitationRevoked,
			EntityType:  "invitation",
			EntityID:    invitationID,
			UserID:      adminID,
			WorkspaceID: workspaceID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return err
	}

	if revoked {
		s.logger.Info("invitation revoked", "invitation_id", invitationID, "user_id", adminID)
	}
	return nil
}
