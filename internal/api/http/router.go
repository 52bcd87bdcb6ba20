package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("", auth.RequireScope(auth.ScopeRead), cfg.Tickets.ListTickets)
	tickets.Get("/:id", auth.RequireScope(auth.ScopeRead), cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", auth.RequireScope(auth.ScopeRead), cfg.Tickets.GetHistory)
	tickets.Post("/:id/refresh", auth.RequireScope(auth.ScopeWrite), cfg.Tickets.RefreshTicket)
}
