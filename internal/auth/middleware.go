package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/service"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

const (
	consoleKey    = "auth_console"
	middlewareKey = "auth_session_middleware"
)

// CookieOptions shape the browser session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// SessionMiddleware binds every request to the console named by the session
// cookie. Ids the server did not issue, or whose console is gone without a
// live login, get a fresh console and cookie.
type SessionMiddleware struct {
	registry *service.Registry
	cookie   CookieOptions
	logger   *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(registry *service.Registry, cookie CookieOptions, logger *zap.Logger) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = "helpdesk_sid"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{registry: registry, cookie: cookie, logger: logger.Named("session")}
}

// Handle resolves the console and stores it in locals.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	console, ok := m.registry.Resume(c.UserContext(), c.Cookies(m.cookie.Name))
	if !ok {
		console = m.registry.Create(c.UserContext())
		m.setCookie(c, console.ID)
	}
	c.Locals(consoleKey, console)
	c.Locals(middlewareKey, m)
	return c.Next()
}

// RotateConsole runs establish against a console under a fresh session id.
// On success the cookie moves to the new id and the previous console is
// logged out and dropped; on failure the previous console stays bound, except
// that a rejected credential tears its session down.
func RotateConsole(c *fiber.Ctx, establish func(*service.Console) error) error {
	m, ok := c.Locals(middlewareKey).(*SessionMiddleware)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}
	ctx := c.UserContext()
	previous, _ := ConsoleFromContext(c)

	fresh := m.registry.Create(ctx)
	if err := establish(fresh); err != nil {
		m.registry.Drop(fresh.ID)
		if previous != nil && apperrors.IsUnauthorized(err) {
			previous.Session.Teardown(ctx, "login rejected")
		}
		return err
	}

	if previous != nil {
		if previous.Session.IsAuthenticated() {
			if err := previous.Session.Logout(ctx); err != nil {
				m.logger.Warn("previous session not cleared", zap.String("console_id", previous.ID), zap.Error(err))
			}
		}
		m.registry.Drop(previous.ID)
	}
	m.logger.Debug("session id rotated", zap.String("console_id", fresh.ID))
	m.setCookie(c, fresh.ID)
	c.Locals(consoleKey, fresh)
	return nil
}

func (m *SessionMiddleware) setCookie(c *fiber.Ctx, sid string) {
	cookie := &fiber.Cookie{
		Name:     m.cookie.Name,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if m.cookie.TTL > 0 {
		cookie.Expires = time.Now().Add(m.cookie.TTL)
	}
	c.Cookie(cookie)
}

// ConsoleFromContext retrieves the request's console.
func ConsoleFromContext(c *fiber.Ctx) (*service.Console, bool) {
	val := c.Locals(consoleKey)
	if val == nil {
		return nil, false
	}
	console, ok := val.(*service.Console)
	return console, ok
}
