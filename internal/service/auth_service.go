package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/session"
	"github.com/spec-kit/helpdesk-console/internal/validation"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// ProfileSource answers "who am I" from the backend.
type ProfileSource interface {
	CurrentUser(ctx context.Context) (*domain.UserProfile, error)
}

// AuthService validates the login and signup forms and drives the session
// store.
type AuthService struct {
	store     *session.Store
	profiles  ProfileSource
	validator *validation.Validator
	logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(store *session.Store, profiles ProfileSource, validator *validation.Validator, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{store: store, profiles: profiles, validator: validator, logger: logger}
}

// Login validates the form locally, then logs in. It returns the session and
// the route the role lands on.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (domain.Session, string, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if errs := s.validator.Login(creds); !errs.Valid() {
		return domain.Session{}, "", errs.Err()
	}
	sess, err := s.store.Login(ctx, creds)
	if err != nil {
		return domain.Session{}, "", err
	}
	return sess, session.LandingRoute(sess.Role), nil
}

// Signup registers a new account. An empty role defaults to user.
func (s *AuthService) Signup(ctx context.Context, input domain.Signup) (domain.Session, string, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if strings.TrimSpace(string(input.Role)) == "" {
		input.Role = domain.RoleUser
	} else if role, ok := domain.ParseRole(string(input.Role)); ok {
		input.Role = role
	}
	if errs := s.validator.Signup(input); !errs.Valid() {
		return domain.Session{}, "", errs.Err()
	}
	sess, err := s.store.Signup(ctx, input)
	if err != nil {
		return domain.Session{}, "", err
	}
	return sess, session.LandingRoute(sess.Role), nil
}

// Logout ends the session. Calling it while logged out is not an error.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

// WhoAmI asks the backend for the current profile. When the backend cannot
// be reached the cached session answers instead; a rejected token does not
// fall back.
func (s *AuthService) WhoAmI(ctx context.Context) (*domain.UserProfile, error) {
	current, ok := s.store.Current()
	if !ok {
		return nil, apperrors.NewUnauthorized("not logged in")
	}
	profile, err := s.profiles.CurrentUser(ctx)
	if err == nil {
		return profile, nil
	}
	if apperrors.IsUnauthorized(err) {
		return nil, err
	}
	s.logger.Warn("profile lookup failed, using cached session", zap.Error(err))
	return &domain.UserProfile{Username: current.Username, Role: current.Role}, nil
}
