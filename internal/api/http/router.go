package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Configs         *handlers.SlaConfigsHandler
	Status          *handlers.SlaStatusHandler
	Reports         *handlers.SlaReportsHandler
	AuthMiddleware  *auth.Middleware
	WebhookVerifier *auth.WebhookVerifier
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	sla := app.Group("/sla")

	// lifecycle webhook accepts either a bearer token or the shared secret
	sla.Patch("/status", cfg.AuthMiddleware.HandleOrWebhook(cfg.WebhookVerifier), cfg.Status.ApplyEvent)

	protected := sla.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/configs", cfg.Configs.List)
	protected.Post("/configs", cfg.Configs.Create)
	protected.Get("/configs/:id", cfg.Configs.Get)
	protected.Patch("/configs/:id", cfg.Configs.Update)
	protected.Delete("/configs/:id", cfg.Configs.Delete)

	protected.Get("/status", cfg.Status.List)
	protected.Get("/status/:ticketId", cfg.Status.Get)
	protected.Post("/calculate", cfg.Status.Calculate)
	protected.Post("/recalculate-all",
		auth.RequireRole(domain.RoleTenantAdmin, domain.RoleGlobalAdmin),
		cfg.Status.RecalculateAll)

	protected.Get("/alerts", cfg.Reports.Alerts)
	protected.Get("/reports", cfg.Reports.Report)
	protected.Get("/statistics", cfg.Reports.Statistics)
	protected.Get("/logs", cfg.Reports.Logs)
}
