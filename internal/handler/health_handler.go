package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Service        string    `json:"service"`
	Environment    string    `json:"environment"`
	AIProvider     string    `json:"ai_provider"`
	GenerationMode string    `json:"generation_mode"`
	ReviewMode     string    `json:"review_mode"`
}

// HealthCheck returns a handler that reports application health and the
// configured assessment modes.
func HealthCheck(cfg config.Config) fiber.Handler {
	generation := configuredMode(cfg.GenerationMock)
	review := configuredMode(cfg.ReviewMock)

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:         "ok",
			Timestamp:      time.Now().UTC(),
			Service:        cfg.AppName,
			Environment:    cfg.AppEnv,
			AIProvider:     cfg.AIProvider,
			GenerationMode: generation,
			ReviewMode:     review,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func configuredMode(mock bool) string {
	if mock {
		return models.ResultModeMock
	}
	return models.ResultModeLive
}
