package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// RequireRole ensures the console is signed in with role. Unknown or missing
// roles are refused.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		console, ok := ConsoleFromContext(c)
		if !ok || !console.Session.IsAuthenticated() {
			return apperrors.NewUnauthorized("login required")
		}
		if !console.Session.HasRole(string(role)) {
			return apperrors.NewForbidden(string(role) + " role required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the console is signed in.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		console, ok := ConsoleFromContext(c)
		if !ok || !console.Session.IsAuthenticated() {
			return apperrors.NewUnauthorized("login required")
		}
		return c.Next()
	}
}
