package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

// CodingAssessmentHandler exposes resume based coding assessments.
type CodingAssessmentHandler struct {
	service   service.CodingAssessmentService
	validator *validator.Validate
	logger    zerolog.Logger
	generate  []fiber.Handler
}

// NewCodingAssessmentHandler constructs the handler. Extra handlers run in
// front of the generate endpoint, typically a rate limiter.
func NewCodingAssessmentHandler(service service.CodingAssessmentService, validator *validator.Validate, logger zerolog.Logger, generateGuards ...fiber.Handler) *CodingAssessmentHandler {
	return &CodingAssessmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "coding_assessment_handler").Logger(),
		generate:  generateGuards,
	}
}

// Register wires the handler endpoints into the router group.
func (h *CodingAssessmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/generate", append(append([]fiber.Handler{}, h.generate...), h.create)...)
	router.Get("/:id", h.get)
	router.Put("/:id/answers", h.saveAnswers)
	router.Post("/:id/submit", h.submit)
}

func (h *CodingAssessmentHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.GenerateCodingAssessmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Generate(withRequestContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "coding assessment generated", response)
}

func (h *CodingAssessmentHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	items, err := h.service.List(withRequestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "coding assessments retrieved", items)
}

func (h *CodingAssessmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Get(withRequestContext(c), userID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "coding assessment retrieved", response)
}

func (h *CodingAssessmentHandler) saveAnswers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.SaveCodingAnswersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.SaveAnswers(withRequestContext(c), userID, id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answers saved", response)
}

func (h *CodingAssessmentHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.SubmitCodingAssessmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Submit(withRequestContext(c), userID, id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "coding assessment reviewed", response)
}

func (h *CodingAssessmentHandler) handleError(c *fiber.Ctx, err error) error {
	var missing *assessment.MissingAnswersError
	switch {
	case errors.As(err, &missing):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, missing.Error(), fiber.Map{
			"question_ids": missing.QuestionIDs,
		})
	case isValidationError(err),
		errors.Is(err, assessment.ErrInvalidInput),
		errors.Is(err, assessment.ErrInsufficientContent),
		errors.Is(err, service.ErrResumeNotFound):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCodingAssessmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCodingAssessmentAlreadyReviewed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, assessment.ErrUpstreamUnavailable),
		errors.Is(err, assessment.ErrMalformedResponse),
		errors.Is(err, assessment.ErrArtifactFetch):
		requestLogger(h.logger, c).Error().Err(err).Msg("assessment provider failed")
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("coding assessment operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
