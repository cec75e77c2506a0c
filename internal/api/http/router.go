package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ceivoice/ticket-service/internal/api/http/handlers"
	"github.com/ceivoice/ticket-service/internal/auth"
	"github.com/ceivoice/ticket-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Requests       *handlers.RequestsHandler
	Drafts         *handlers.DraftsHandler
	Tickets        *handlers.StaffTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	app.Post("/requests", cfg.Requests.Submit)
	app.Get("/track/:token", cfg.Requests.Track)
	app.Post("/track/:token/comments", cfg.Requests.AddComment)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireUser())
	me.Get("/requests", cfg.Users.MyRequests)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Get("/drafts", cfg.Drafts.List)
	admin.Get("/drafts/recommendations", cfg.Drafts.Recommendations)
	admin.Post("/drafts/merge", cfg.Drafts.Merge)
	admin.Get("/drafts/:id", cfg.Drafts.Get)
	admin.Patch("/drafts/:id", cfg.Drafts.Update)
	admin.Post("/drafts/:id/unlink", cfg.Drafts.Unlink)
	admin.Post("/drafts/:id/promote", cfg.Drafts.Promote)
	admin.Post("/staff", cfg.Staff.Create)
	admin.Patch("/staff/:id", cfg.Staff.SetActive)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleAdmin, domain.StaffRoleSpecialist))
	staff.Get("/specialists", cfg.Staff.ListSpecialists)
	staff.Get("/tickets", cfg.Tickets.List)
	staff.Get("/tickets/:id", cfg.Tickets.Get)
	staff.Patch("/tickets/:id", cfg.Tickets.Update)
	staff.Get("/tickets/:id/history", cfg.Tickets.History)
	staff.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
}
