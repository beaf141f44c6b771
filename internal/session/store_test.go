package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

type fakeAuthenticator struct {
	result *domain.AuthResult
	err    error
	calls  int
}

func (f *fakeAuthenticator) Login(context.Context, domain.Credentials) (*domain.AuthResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAuthenticator) Signup(context.Context, domain.Signup) (*domain.AuthResult, error) {
	f.calls++
	return f.result, f.err
}

type failingBackend struct {
	MemoryBackend
	saveErr error
}

func (f *failingBackend) Save(ctx context.Context, s domain.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryBackend.Save(ctx, s)
}

func TestLoginPersistsSession(t *testing.T) {
	backend := NewMemoryBackend()
	authn := &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "ADMIN", Username: "alice"}}
	dispatcher := events.NewInMemoryDispatcher()
	var started []events.Event
	dispatcher.Subscribe(events.EventSessionStarted, func(_ context.Context, e events.Event) error {
		started = append(started, e)
		return nil
	})
	store := NewStore(backend, authn, Options{Dispatcher: dispatcher})

	sess, err := store.Login(context.Background(), domain.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, sess.Role)
	assert.True(t, store.IsAuthenticated())
	assert.True(t, store.HasRole("Admin"))
	assert.False(t, store.HasRole("user"))
	assert.False(t, store.HasRole("superuser"))
	assert.Equal(t, "tok", store.Token(context.Background()))

	persisted, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.Session{Token: "tok", Role: domain.RoleAdmin, Username: "alice"}, persisted)
	require.Len(t, started, 1)
	assert.Equal(t, "alice", started[0].Actor)
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "root", Username: "eve"}}, Options{})

	_, err := store.Login(context.Background(), domain.Credentials{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "invalid role received: root")
	assert.False(t, store.IsAuthenticated())

	persisted, _ := backend.Load(context.Background())
	assert.Nil(t, persisted)
}

func TestLoginUnauthorizedTearsDown(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), domain.Session{Token: "old", Role: domain.RoleUser, Username: "bob"}))
	store := NewStore(backend, &fakeAuthenticator{err: apperrors.NewUnauthorized("Incorrect username or password")}, Options{})
	require.NoError(t, store.Init(context.Background()))
	require.True(t, store.IsAuthenticated())

	_, err := store.Login(context.Background(), domain.Credentials{Username: "bob", Password: "bad"})
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
	persisted, _ := backend.Load(context.Background())
	assert.Nil(t, persisted)
}

func TestLoginPersistFailureStaysLoggedOut(t *testing.T) {
	backend := &failingBackend{saveErr: errors.New("disk full")}
	store := NewStore(backend, &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "user", Username: "bob"}}, Options{})

	_, err := store.Login(context.Background(), domain.Credentials{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, "", store.Token(context.Background()))
}

func TestLogoutIsIdempotent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	ended := 0
	dispatcher.Subscribe(events.EventSessionEnded, func(context.Context, events.Event) error {
		ended++
		return nil
	})
	store := NewStore(NewMemoryBackend(), &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "user", Username: "bob"}}, Options{Dispatcher: dispatcher})
	_, err := store.Login(context.Background(), domain.Credentials{})
	require.NoError(t, err)

	require.NoError(t, store.Logout(context.Background()))
	require.NoError(t, store.Logout(context.Background()))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, 1, ended)
}

func TestTeardownClearsSession(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var reasons []string
	dispatcher.Subscribe(events.EventSessionExpired, func(_ context.Context, e events.Event) error {
		reasons = append(reasons, e.Payload.(events.SessionPayload).Reason)
		return nil
	})
	store := NewStore(NewMemoryBackend(), &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "admin", Username: "alice"}}, Options{Dispatcher: dispatcher})
	_, err := store.Login(context.Background(), domain.Credentials{})
	require.NoError(t, err)

	store.Teardown(context.Background(), "list_tickets rejected credentials")
	assert.False(t, store.IsAuthenticated())
	assert.False(t, store.HasRole("admin"))
	assert.Equal(t, RouteLogin, store.ResolveRoute(RouteAdminDashboard).Redirect)
	assert.Equal(t, []string{"list_tickets rejected credentials"}, reasons)
}

func TestInitRestoresAndDiscards(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		record *domain.Session
		authed bool
	}{
		{"Absent", nil, false},
		{"Valid", &domain.Session{Token: "opaque", Role: "Admin", Username: "alice"}, true},
		{"MissingRole", &domain.Session{Token: "opaque", Username: "alice"}, false},
		{"MissingToken", &domain.Session{Role: domain.RoleUser, Username: "alice"}, false},
		{"UnknownRole", &domain.Session{Token: "opaque", Role: "guest", Username: "alice"}, false},
		{"Expired", &domain.Session{Token: expired, Role: domain.RoleUser, Username: "alice"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := NewMemoryBackend()
			if tc.record != nil {
				require.NoError(t, backend.Save(context.Background(), *tc.record))
			}
			store := NewStore(backend, nil, Options{Now: func() time.Time { return now }})
			require.NoError(t, store.Init(context.Background()))
			assert.Equal(t, tc.authed, store.IsAuthenticated())

			if !tc.authed {
				persisted, _ := backend.Load(context.Background())
				assert.Nil(t, persisted, "stale record removed")
				return
			}
			current, ok := store.Current()
			require.True(t, ok)
			assert.Equal(t, domain.RoleAdmin, current.Role)
		})
	}
}

func TestInitMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(NewFileBackend(path), nil, Options{})
	require.NoError(t, store.Init(context.Background()))
	assert.False(t, store.IsAuthenticated())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTokenAndRoleSwapTogether(t *testing.T) {
	store := NewStore(NewMemoryBackend(), &fakeAuthenticator{result: &domain.AuthResult{AccessToken: "tok", Role: "user", Username: "bob"}}, Options{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if current, ok := store.Current(); ok {
				assert.NotEmpty(t, current.Token)
				assert.NotEmpty(t, current.Role)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := store.Login(context.Background(), domain.Credentials{})
		require.NoError(t, err)
		require.NoError(t, store.Logout(context.Background()))
	}
	close(stop)
	wg.Wait()
}

func TestNoAuthenticator(t *testing.T) {
	store := NewStore(NewMemoryBackend(), nil, Options{})
	_, err := store.Login(context.Background(), domain.Credentials{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}
