package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-service/internal/api/http/handlers"
	"github.com/spec-kit/request-service/internal/auth"
	"github.com/spec-kit/request-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Requests      *handlers.RequestsHandler
	Authenticator *auth.Authenticator
	Gate          *auth.Gate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authn := cfg.Authenticator.Handle
	anyRole := cfg.Gate.RequireAuthenticated()
	admin := cfg.Gate.Require(domain.RoleAdmin)
	technician := cfg.Gate.Require(domain.RoleTechnician)
	staff := cfg.Gate.Require(domain.RoleAdmin, domain.RoleTechnician)

	app.Get("/metrics", authn, admin, cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", authn, anyRole, cfg.Auth.Logout)
	authGroup.Get("/me", authn, anyRole, cfg.Auth.Me)

	users := app.Group("/users", authn, anyRole)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Post("/", admin, cfg.Users.Create)
	users.Put("/:id", admin, cfg.Users.Update)
	users.Delete("/:id", admin, cfg.Users.Delete)

	requests := app.Group("/requests", authn, anyRole)
	requests.Get("/", cfg.Requests.List)
	requests.Get("/mine", technician, cfg.Requests.Mine)
	requests.Post("/", cfg.Requests.Create)
	requests.Patch("/assign/:id", technician, cfg.Requests.Assign)
	requests.Patch("/approve/:id", technician, cfg.Requests.Approve)
	requests.Patch("/status/:id", staff, cfg.Requests.SetStatus)
	requests.Get("/:id/history", admin, cfg.Requests.History)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Put("/:id", staff, cfg.Requests.Update)
	requests.Patch("/:id", staff, cfg.Requests.Update)
	requests.Delete("/:id", admin, cfg.Requests.Delete)

	api := app.Group("/api/requests", authn, anyRole)
	api.Put("/:id", staff, cfg.Requests.Update)
	api.Patch("/:id", staff, cfg.Requests.Update)
}
