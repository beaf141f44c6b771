package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/token"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// Authenticator performs the backend half of login and signup.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	Signup(ctx context.Context, input domain.Signup) (*domain.AuthResult, error)
}

// Options configures a Store.
type Options struct {
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
	Now        func() time.Time
	// OnEnd runs after an active session is logged out or torn down.
	OnEnd      func()
}

// Store owns the authenticated identity of one console session. Token and
// role are swapped together under a single pointer so readers never see one
// without the other.
type Store struct {
	lifecycle sync.Mutex
	mu        sync.RWMutex
	current   *domain.Session

	backend    Backend
	auth       Authenticator
	logger     *zap.Logger
	dispatcher events.Dispatcher
	now        func() time.Time
	onEnd      func()
}

// NewStore builds a logged-out store. Call Init to restore a persisted session.
func NewStore(backend Backend, authenticator Authenticator, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend:    backend,
		auth:       authenticator,
		logger:     logger.Named("session"),
		dispatcher: opts.Dispatcher,
		now:        now,
		onEnd:      opts.OnEnd,
	}
}

// Init restores the persisted record. Absent, malformed, role-less or expired
// records leave the store logged out; the stale record is removed.
func (s *Store) Init(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	record, err := s.backend.Load(ctx)
	if err != nil {
		s.swap(nil)
		if errors.Is(err, ErrMalformed) {
			s.logger.Warn("discarding malformed session record", zap.Error(err))
			return s.deleteRecord(ctx)
		}
		s.logger.Error("failed to load session", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	if record == nil {
		s.swap(nil)
		return nil
	}

	role, ok := domain.ParseRole(string(record.Role))
	if strings.TrimSpace(record.Token) == "" || !ok {
		s.logger.Warn("discarding incomplete session record", zap.String("role", string(record.Role)))
		s.swap(nil)
		return s.deleteRecord(ctx)
	}
	record.Role = role

	if token.Expired(record.Token, s.now()) {
		s.logger.Info("persisted token expired", zap.String("username", record.Username))
		s.swap(nil)
		s.publish(ctx, events.EventSessionExpired, *record, "token expired")
		return s.deleteRecord(ctx)
	}

	s.swap(record)
	return nil
}

// Login authenticates against the backend and persists the result.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if s.auth == nil {
		return domain.Session{}, apperrors.NewInternalError(errors.New("session store has no authenticator"))
	}
	result, err := s.auth.Login(ctx, creds)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			s.Teardown(ctx, "login rejected")
		}
		return domain.Session{}, err
	}
	return s.establish(ctx, result)
}

// Signup registers through the backend and logs the new account in.
func (s *Store) Signup(ctx context.Context, input domain.Signup) (domain.Session, error) {
	if s.auth == nil {
		return domain.Session{}, apperrors.NewInternalError(errors.New("session store has no authenticator"))
	}
	result, err := s.auth.Signup(ctx, input)
	if err != nil {
		return domain.Session{}, err
	}
	return s.establish(ctx, result)
}

func (s *Store) establish(ctx context.Context, result *domain.AuthResult) (domain.Session, error) {
	if result == nil || result.AccessToken == "" || result.Username == "" {
		return domain.Session{}, apperrors.NewValidationError("missing required login fields in response", nil)
	}
	role, ok := domain.ParseRole(result.Role)
	if !ok {
		return domain.Session{}, apperrors.NewValidationError(fmt.Sprintf("invalid role received: %s", result.Role), nil)
	}
	record := domain.Session{Token: result.AccessToken, Role: role, Username: result.Username}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.backend.Save(ctx, record); err != nil {
		s.logger.Error("failed to persist session", zap.String("username", record.Username), zap.Error(err))
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	s.swap(&record)
	s.logger.Info("session started", zap.String("username", record.Username), zap.String("role", string(role)))
	s.publish(ctx, events.EventSessionStarted, record, "")
	return record, nil
}

// Logout clears the session. It is idempotent; only a backend failure to
// delete the record is reported, and memory is cleared regardless.
func (s *Store) Logout(ctx context.Context) error {
	return s.end(ctx, events.EventSessionEnded, "logout")
}

// Teardown is the forced logout triggered by a rejected credential.
func (s *Store) Teardown(ctx context.Context, reason string) {
	if err := s.end(ctx, events.EventSessionExpired, reason); err != nil {
		s.logger.Error("session teardown incomplete", zap.String("reason", reason), zap.Error(err))
	}
}

func (s *Store) end(ctx context.Context, eventType events.EventType, reason string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	previous := s.swap(nil)
	err := s.deleteRecord(ctx)
	if previous != nil {
		if eventType == events.EventSessionExpired {
			s.logger.Warn("session torn down", zap.String("username", previous.Username), zap.String("reason", reason))
		} else {
			s.logger.Info("session ended", zap.String("username", previous.Username))
		}
		s.publish(ctx, eventType, *previous, reason)
		if s.onEnd != nil {
			s.onEnd()
		}
	}
	return err
}

func (s *Store) deleteRecord(ctx context.Context) error {
	if err := s.backend.Delete(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Current returns a copy of the session and whether one is active.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a usable session is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Valid()
}

// HasRole compares case-insensitively. An unknown role never matches.
func (s *Store) HasRole(role string) bool {
	want, ok := domain.ParseRole(role)
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Valid() && s.current.Role == want
}

// Username is the display identity, or "" when logged out.
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Username
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

func (s *Store) swap(next *domain.Session) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.current
	s.current = next
	return previous
}

func (s *Store) publish(ctx context.Context, eventType events.EventType, record domain.Session, reason string) {
	event := events.NewEvent(eventType, "", events.SessionPayload{
		Username: record.Username,
		Role:     record.Role,
		Reason:   reason,
	})
	event.Actor = record.Username
	if err := events.Publish(ctx, s.dispatcher, event); err != nil {
		s.logger.Warn("session event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
