package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Tickets           *handlers.TicketsHandler
	Admin             *handlers.AdminHandler
	SessionMiddleware *auth.SessionMiddleware
	Metrics           *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api", cfg.SessionMiddleware.Handle)
	api.Get("/routes/resolve", cfg.Auth.ResolveRoute)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", auth.RequireAnyRole(), cfg.Auth.Me)

	tickets := api.Group("/tickets", auth.RequireRole(domain.RoleUser))
	tickets.Post("/text", cfg.Tickets.SubmitText)
	tickets.Post("/image", cfg.Tickets.SubmitImage)
	tickets.Get("/submission", cfg.Tickets.State)
	tickets.Post("/submission/dismiss", cfg.Tickets.DismissError)
	tickets.Post("/submission/reset", cfg.Tickets.Reset)

	admin := api.Group("/admin/tickets", auth.RequireRole(domain.RoleAdmin))
	admin.Get("", cfg.Admin.List)
	admin.Post("/refresh", cfg.Admin.Refresh)
	admin.Post("/dismiss-error", cfg.Admin.DismissError)
	admin.Post("/:id/expand", cfg.Admin.ToggleExpand)
	admin.Post("/:id/edit", cfg.Admin.BeginEdit)
	admin.Put("/:id/edit", cfg.Admin.UpdateDraft)
	admin.Delete("/:id/edit", cfg.Admin.CancelEdit)
	admin.Put("/:id/admin-solution", cfg.Admin.SaveAdminSolution)
	admin.Post("/:id/resolve", cfg.Admin.ToggleResolved)
}

// AppConfig holds server-wide settings.
type AppConfig struct {
	Name           string
	Logger         *zap.Logger
	RequestTimeout time.Duration
	// BodyLimit must leave room for the largest accepted screenshot.
	BodyLimit int
}

// NewApp builds the fiber app with middlewares and routes registered.
func NewApp(cfg AppConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: ErrorHandler(cfg.Logger, routes.Metrics),
	})
	RegisterMiddlewares(app, cfg.Logger, routes.Metrics, cfg.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
