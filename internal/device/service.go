package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
	"github.com/twinkletaps/twinkletaps-core/internal/audit"
	"github.com/twinkletaps/twinkletaps-core/internal/auth"
	"github.com/twinkletaps/twinkletaps-core/internal/credential"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/mqtt"
	"github.com/twinkletaps/twinkletaps-core/internal/membership"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher delivers a payload to a broker topic. The MQTT client
// implements it with its own connect and publish timeouts.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Recorder receives tap observations. Optional.
type Recorder interface {
	RecordTap(workspaceID, deviceID string)
}

// Service registers devices and answers device queries for a caller.
type Service struct {
	db        *database.DB
	pool      *credential.Pool
	publisher Publisher
	recorder  Recorder
	topics    mqtt.Topics
	logger    Logger
	now       func() time.Time
}

// NewService creates a device service. Device topics are built as
// "<topicPrefix>/<device uuid>".
func NewService(db *database.DB, pool *credential.Pool, publisher Publisher, topicPrefix string) *Service {
	return &Service{
		db:        db,
		pool:      pool,
		publisher: publisher,
		topics:    mqtt.Topics{Prefix: topicPrefix},
		logger:    noopLogger{},
		now:       database.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetRecorder sets the tap recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Register creates a device in workspaceID on behalf of callerID, who must
// be a workspace admin. The role check, credential claim, device insert
// and audit entry commit together; a failure at any step leaves the pool
// untouched.
//
// The returned MQTTPassword is the only time the password is exposed.
func (s *Service) Register(ctx context.Context, callerID, workspaceID, name string) (*RegisterResult, error) {
	var res *RegisterResult
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		role, ok, err := membership.WorkspaceRole(ctx, tx, callerID, workspaceID)
		if err != nil {
			return err
		}
		if !ok || role != auth.RoleAdmin {
			return ErrNotAdmin
		}

		name, err = NormalizeName(name)
		if err != nil {
			return err
		}

		cred, err := s.pool.ClaimTx(ctx, tx)
		if err != nil {
			return err
		}

		now := s.now()
		d := &Device{
			ID:           database.NewID("dev"),
			WorkspaceID:  workspaceID,
			Name:         name,
			DeviceUUID:   cred.AllocatedUUID,
			MQTTTopic:    s.topics.Device(cred.AllocatedUUID),
			MQTTUsername: cred.Username,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := insertDevice(ctx, tx, d); err != nil {
			return err
		}

		if err := audit.Record(ctx, tx, &audit.AuditLog{
			Action:      audit.ActionDeviceRegistered,
			EntityType:  "device",
			EntityID:    d.ID,
			UserID:      callerID,
			WorkspaceID: workspaceID,
			Details:     map[string]any{"name": d.Name, "device_uuid": d.DeviceUUID},
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		res = &RegisterResult{
			DeviceID:     d.ID,
			DeviceUUID:   d.DeviceUUID,
			MQTTTopic:    d.MQTTTopic,
			MQTTUsername: cred.Username,
			MQTTPassword: cred.Password,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrPoolEmpty) {
			s.logger.Warn("device registration failed: credential pool exhausted",
				"workspace_id", workspaceID, "user_id", callerID)
		}
		return nil, err
	}

	s.pool.Observe(ctx)
	s.logger.Info("device registered",
		"device_id", res.DeviceID, "workspace_id", workspaceID, "user_id", callerID)
	return res, nil
}

// Get returns a device with the caller's roles, or nil when the device is
// missing, deleted or not visible to userID.
func (s *Service) Get(ctx context.Context, userID, deviceID string) (*Device, error) {
	d, err := getDevice(ctx, s.db, deviceID)
	if err != nil || d == nil {
		return nil, err
	}

	wsRole, ok, err := membership.WorkspaceRole(ctx, s.db, userID, d.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil //nolint:nilnil // invisible is reported as absent
	}

	devRole, hasDevRole, err := membership.DeviceRole(ctx, s.db, userID, d.ID)
	if err != nil {
		return nil, err
	}
	if auth.IsDeviceScoped(wsRole) && !hasDevRole {
		return nil, nil //nolint:nilnil // invisible is reported as absent
	}

	d.WorkspaceRole = wsRole
	if hasDevRole {
		d.UserRole = &devRole
	}
	return d, nil
}

// ListWorkspaceDevices returns the devices of workspaceID visible to
// userID, ordered by name. Callers without a role get an empty list.
func (s *Service) ListWorkspaceDevices(ctx context.Context, userID, workspaceID string) ([]Device, error) {
	role, ok, err := membership.WorkspaceRole(ctx, s.db, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Device{}, nil
	}

	if auth.IsDeviceScoped(role) {
		return listMemberDevices(ctx, s.db, workspaceID, userID)
	}
	return listDevices(ctx, s.db, workspaceID)
}

// SendTap publishes a tap sequence to a device the caller may operate.
func (s *Service) SendTap(ctx context.Context, userID, deviceID, sequence string) error {
	if err := ValidateSequence(sequence); err != nil {
		return err
	}

	d, err := s.Get(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrDeviceNotFound
	}
	if !auth.HasPermission(d.WorkspaceRole, auth.PermDeviceOperate) {
		return ErrCannotOperate
	}

	payload, err := json.Marshal(TapCommand{Sequence: sequence})
	if err != nil {
		return fmt.Errorf("encoding tap command: %w", err)
	}

	if err := s.publisher.Publish(ctx, d.MQTTTopic, payload); err != nil {
		s.logger.Error("tap publish failed", "device_id", d.ID, "topic", d.MQTTTopic, "error", err)
		return fmt.Errorf("sending tap to device %s: %w", d.ID, err)
	}

	if err := audit.Record(ctx, s.db, &audit.AuditLog{
		Action:      audit.ActionTapSent,
		EntityType:  "device",
		EntityID:    d.ID,
		UserID:      userID,
		WorkspaceID: d.WorkspaceID,
		Details:     map[string]any{"sequence": sequence},
	}); err != nil {
		// The tap is already on the wire.
		s.logger.Warn("recording tap audit entry", "device_id", d.ID, "error", err)
	}

	if s.recorder != nil {
		s.recorder.RecordTap(d.WorkspaceID, d.ID)
	}
	s.logger.Debug("tap sent", "device_id", d.ID, "length", len(sequence))
	return nil
}
