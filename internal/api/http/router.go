package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/api/http/handlers"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionsHandler
	Users          *handlers.UsersHandler
	Deliveries     *handlers.DeliveriesHandler
	DeliveryLogs   *handlers.DeliveryLogsHandler
	AuthMiddleware *auth.AuthMiddleware
	// DeliveryCreateRoles gates POST /deliveries.
	DeliveryCreateRoles auth.RoleSet
	SessionsLimiter     fiber.Handler
	Metrics             fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	sessionHandlers := []fiber.Handler{cfg.Sessions.Create}
	if cfg.SessionsLimiter != nil {
		sessionHandlers = append([]fiber.Handler{cfg.SessionsLimiter}, sessionHandlers...)
	}
	app.Post("/sessions", sessionHandlers...)

	authn := cfg.AuthMiddleware.Handle
	sellerOnly := auth.RequireRoles(domain.RoleSeller)
	anyRole := auth.RequireRoles(domain.RoleCustomer, domain.RoleSeller)

	users := app.Group("/users")
	users.Post("/", cfg.Users.Create)
	users.Get("/", authn, sellerOnly, cfg.Users.List)
	users.Put("/:id", authn, anyRole, cfg.Users.Update)
	users.Delete("/:id", authn, anyRole, cfg.Users.Delete)

	deliveries := app.Group("/deliveries")
	deliveries.Post("/", authn, auth.RequireRoleSet(cfg.DeliveryCreateRoles), cfg.Deliveries.Create)
	deliveries.Get("/", authn, sellerOnly, cfg.Deliveries.List)
	deliveries.Patch("/:id/status", authn, sellerOnly, cfg.Deliveries.UpdateStatus)

	logs := app.Group("/deliveries-logs")
	logs.Post("/", authn, sellerOnly, cfg.DeliveryLogs.Create)
	logs.Get("/:id/show", authn, anyRole, cfg.DeliveryLogs.Show)
}
