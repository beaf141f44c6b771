package session

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/persistence"
	"github.com/spec-kit/helpdesk-console/internal/repository"
)

// PostgresBackend stores one console_sessions row keyed by prefix:sid. Rows
// past expires_at read as logged out; the TTL slides on every save.
type PostgresBackend struct {
	repo repository.SessionRepository
	key  string
	ttl  time.Duration
	now  func() time.Time
}

// NewPostgresBackend scopes a backend to the session id sid.
func NewPostgresBackend(p *persistence.Postgres, prefix, sid string, ttl time.Duration) *PostgresBackend {
	return newPostgresBackend(repository.NewSessionRepository(p.Pool), prefix, sid, ttl)
}

func newPostgresBackend(repo repository.SessionRepository, prefix, sid string, ttl time.Duration) *PostgresBackend {
	return &PostgresBackend{repo: repo, key: prefix + ":" + sid, ttl: ttl, now: time.Now}
}

func (p *PostgresBackend) Load(ctx context.Context) (*domain.Session, error) {
	record, err := p.repo.Get(ctx, p.key, p.now())
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", p.key, err)
	}
	return record, nil
}

func (p *PostgresBackend) Save(ctx context.Context, session domain.Session) error {
	now := p.now()
	var expires *time.Time
	if p.ttl > 0 {
		at := now.Add(p.ttl)
		expires = &at
	}
	if err := p.repo.Upsert(ctx, p.key, session, expires, now); err != nil {
		return fmt.Errorf("save session %s: %w", p.key, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context) error {
	if err := p.repo.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("delete session %s: %w", p.key, err)
	}
	return nil
}

// SessionPurger removes expired console_sessions rows.
type SessionPurger struct {
	repo repository.SessionRepository
	now  func() time.Time
}

// NewSessionPurger binds a purger to the pool.
func NewSessionPurger(p *persistence.Postgres) *SessionPurger {
	return &SessionPurger{repo: repository.NewSessionRepository(p.Pool), now: time.Now}
}

// PurgeExpired deletes rows whose expiry has passed and reports how many.
func (s *SessionPurger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
