package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/twinkletaps/twinkletaps-core/internal/apperr"
	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// ErrPoolEmpty is returned when no unclaimed credential is left.
var ErrPoolEmpty = apperr.ErrPoolEmpty

// Credential is a claimed broker login. The password is only ever held in
// memory long enough to return it to the registering admin.
type Credential struct {
	ID            string
	Username      string
	Password      string
	AllocatedUUID string
	ClaimedAt     time.Time
}

// Logger defines the logging interface used by the Pool.
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

// Recorder receives pool capacity observations. The InfluxDB client
// implements it; nil disables recording.
type Recorder interface {
	RecordPoolClaim(remaining int)
	RecordPoolExhausted()
}

// Pool allocates credentials from the mqtt_credentials table.
type Pool struct {
	db       *database.DB
	logger   Logger
	recorder Recorder
	now      func() time.Time
}

// NewPool creates a credential pool.
func NewPool(db *database.DB) *Pool {
	return &Pool{
		db:     db,
		logger: noopLogger{},
		now:    database.Now,
	}
}

// SetLogger sets the logger for the pool.
func (p *Pool) SetLogger(logger Logger) {
	p.logger = logger
}

// SetRecorder sets the capacity recorder.
func (p *Pool) SetRecorder(r Recorder) {
	p.recorder = r
}

// Claim takes one credential in its own transaction.
func (p *Pool) Claim(ctx context.Context) (*Credential, error) {
	var cred *Credential
	err := p.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		cred, err = p.ClaimTx(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.observe(ctx)
	return cred, nil
}

// ClaimTx takes one credential on the caller's transaction. The claim
// commits or rolls back with tx, so a failed device insert returns the
// credential to the pool.
func (p *Pool) ClaimTx(ctx context.Context, tx *database.Tx) (*Credential, error) {
	var cred Credential
	err := tx.QueryRowContext(ctx,
		`SELECT id, username, password, allocated_uuid
		 FROM mqtt_credentials
		 WHERE claimed_at IS NULL
		 ORDER BY id
		 LIMIT 1`+tx.Dialect().SkipLocked(),
	).Scan(&cred.ID, &cred.Username, &cred.Password, &cred.AllocatedUUID)
	if errors.Is(err, sql.ErrNoRows) {
		p.logger.Warn("credential pool exhausted")
		if p.recorder != nil {
			p.recorder.RecordPoolExhausted()
		}
		return nil, ErrPoolEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("selecting credential: %w", err)
	}

	cred.ClaimedAt = p.now()
	res, err := tx.ExecContext(ctx,
		"UPDATE mqtt_credentials SET claimed_at = ? WHERE id = ? AND claimed_at IS NULL",
		cred.ClaimedAt, cred.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if n != 1 {
		// The row was locked by us; anything else means the lock clause
		// did not hold and the claim must not proceed.
		return nil, fmt.Errorf("claiming credential %s: row already claimed", cred.ID)
	}

	p.logger.Debug("credential claimed", "credential_id", cred.ID, "username", cred.Username)
	return &cred, nil
}

// CountUnclaimed returns the number of credentials still available.
func (p *Pool) CountUnclaimed(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM mqtt_credentials WHERE claimed_at IS NULL",
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unclaimed credentials: %w", err)
	}
	return n, nil
}

// Observe reports the remaining capacity after a claim made through ClaimTx
// has committed.
func (p *Pool) Observe(ctx context.Context) {
	p.observe(ctx)
}

func (p *Pool) observe(ctx context.Context) {
	if p.recorder == nil {
		return
	}
	remaining, err := p.CountUnclaimed(ctx)
	if err != nil {
		p.logger.Warn("counting unclaimed credentials", "error", err)
		return
	}
	p.recorder.RecordPoolClaim(remaining)
}
