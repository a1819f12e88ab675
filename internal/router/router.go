package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CodingAssessmentHandler *handler.CodingAssessmentHandler
	ResumeHandler           *handler.ResumeHandler
	JWTMiddleware           fiber.Handler
	ExposeMetrics           bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	authenticated := middleware.WithAuth(middleware.AuthOptions{Role: middleware.AuthRoleCandidate})

	v2 := app.Group("/api/v2", jwtMiddleware, authenticated)

	if deps.CodingAssessmentHandler != nil {
		deps.CodingAssessmentHandler.Register(v2.Group("/coding-assessments"))
	}

	if deps.ResumeHandler != nil {
		deps.ResumeHandler.Register(v2.Group("/profile/resume"))
	}
}
