package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepository persists console login records keyed by session key.
type SessionRepository interface {
	// Get returns (nil, nil) when no live row exists at now.
	Get(ctx context.Context, key string, now time.Time) (*domain.Session, error)
	Upsert(ctx context.Context, key string, session domain.Session, expiresAt *time.Time, now time.Time) error
	Delete(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db DB
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepository{db: db}
}

const (
	getSessionQuery = `
        SELECT access_token, role, username
        FROM console_sessions
        WHERE session_key=$1 AND (expires_at IS NULL OR expires_at > $2)`

	upsertSessionQuery = `
        INSERT INTO console_sessions (session_key, access_token, role, username, expires_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (session_key) DO UPDATE SET
            access_token=EXCLUDED.access_token,
            role=EXCLUDED.role,
            username=EXCLUDED.username,
            expires_at=EXCLUDED.expires_at,
            updated_at=EXCLUDED.updated_at`

	deleteSessionQuery = `DELETE FROM console_sessions WHERE session_key=$1`

	purgeSessionsQuery = `
        DELETE FROM console_sessions
        WHERE expires_at IS NOT NULL AND expires_at <= $1`
)

func (r *sessionRepository) Get(ctx context.Context, key string, now time.Time) (*domain.Session, error) {
	var (
		session domain.Session
		role    string
	)
	err := r.db.QueryRow(ctx, getSessionQuery, key, now).Scan(&session.Token, &role, &session.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Role = domain.Role(role)
	return &session, nil
}

func (r *sessionRepository) Upsert(ctx context.Context, key string, session domain.Session, expiresAt *time.Time, now time.Time) error {
	_, err := r.db.Exec(ctx, upsertSessionQuery,
		key,
		session.Token,
		string(session.Role),
		session.Username,
		expiresAt,
		now,
	)
	return err
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, deleteSessionQuery, key)
	return err
}

func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, purgeSessionsQuery, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
