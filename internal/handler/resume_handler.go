package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// ResumeHandler accepts resume uploads for the caller's profile.
type ResumeHandler struct {
	service service.ResumeService
	logger  zerolog.Logger
}

// NewResumeHandler constructs a resume handler.
func NewResumeHandler(service service.ResumeService, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		service: service,
		logger:  logger.With().Str("component", "resume_handler").Logger(),
	}
}

// Register wires resume routes.
func (h *ResumeHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *ResumeHandler) upload(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Upload(withRequestContext(c), userID, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrUploadScanFailed), errors.Is(err, assessment.ErrInvalidInput):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrStudentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("resume upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
		}
	}

	return utils.SendSuccess(c, "resume uploaded", result)
}
