package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-engine/internal/api/http/handlers"
	"github.com/spec-kit/auth-engine/internal/auth"
	"github.com/spec-kit/auth-engine/internal/domain"
)

// AdminRequirement guards the /admin routes.
var AdminRequirement = auth.RoleRequirement{
	All:  domain.NewRoleSet(domain.RoleAdmin),
	None: domain.NewRoleSet(domain.RoleBanned),
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Session *handlers.SessionHandler
	Gate    *auth.AuthorizationGate
	Metrics fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.Gate.Handle, cfg.Session.Me)

	admin := app.Group("/admin", cfg.Gate.Handle, auth.RequireRoles(AdminRequirement))
	admin.Get("/ping", cfg.Session.AdminPing)
}
