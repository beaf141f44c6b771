package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/service"
	"github.com/spec-kit/helpdesk-console/internal/session"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// AuthHandler exposes login, signup and session endpoints.
type AuthHandler struct{}

// NewAuthHandler constructs handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func consoleFor(c *fiber.Ctx) (*service.Console, error) {
	console, ok := auth.ConsoleFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("no session")
	}
	return console, nil
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if _, err := consoleFor(c); err != nil {
		return err
	}
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var (
		sess     domain.Session
		redirect string
	)
	if err := auth.RotateConsole(c, func(fresh *service.Console) error {
		var err error
		sess, redirect, err = fresh.Auth.Login(c.UserContext(), domain.Credentials{Username: req.Username, Password: req.Password})
		return err
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SessionResponse{Username: sess.Username, Role: sess.Role, Redirect: redirect}})
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	if _, err := consoleFor(c); err != nil {
		return err
	}
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var (
		sess     domain.Session
		redirect string
	)
	if err := auth.RotateConsole(c, func(fresh *service.Console) error {
		var err error
		sess, redirect, err = fresh.Auth.Signup(c.UserContext(), domain.Signup{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Role:     domain.Role(req.Role),
		})
		return err
	}); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SessionResponse{Username: sess.Username, Role: sess.Role, Redirect: redirect}})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	if err := console.Auth.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"redirect": session.RouteLogin}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	profile, err := console.Auth.WhoAmI(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// ResolveRoute handles GET /routes/resolve?path=.
func (h *AuthHandler) ResolveRoute(c *fiber.Ctx) error {
	console, err := consoleFor(c)
	if err != nil {
		return err
	}
	path := c.Query("path", session.RouteRoot)
	return c.JSON(fiber.Map{"data": console.Session.ResolveRoute(path)})
}
