package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

// CodingAssessmentService generates coding assessments from resumes and reviews
// submitted answers.
type CodingAssessmentService interface {
	Generate(ctx context.Context, userID uint, payload dto.GenerateCodingAssessmentRequest) (dto.CodingAssessmentResponse, error)
	Submit(ctx context.Context, userID, assessmentID uint, payload dto.SubmitCodingAssessmentRequest) (dto.CodingAssessmentResponse, error)
	SaveAnswers(ctx context.Context, userID, assessmentID uint, payload dto.SaveCodingAnswersRequest) (dto.CodingAssessmentResponse, error)
	Get(ctx context.Context, userID, assessmentID uint) (dto.CodingAssessmentResponse, error)
	List(ctx context.Context, userID uint) ([]dto.CodingAssessmentSummary, error)
}

// ErrCodingAssessmentNotFound indicates the assessment does not exist for the caller.
var ErrCodingAssessmentNotFound = errors.New("coding assessment not found")

// ErrCodingAssessmentAlreadyReviewed indicates answers can no longer change.
var ErrCodingAssessmentAlreadyReviewed = errors.New("coding assessment already reviewed")

// ErrResumeNotFound indicates no resume was supplied and none is on file.
var ErrResumeNotFound = errors.New("resume not found")

// CodingAssessmentConfig holds the mock and fallback switches per operation
// family. It is read once at start.
type CodingAssessmentConfig struct {
	GenerationMock     bool
	GenerationFallback bool
	ReviewMock         bool
	ReviewFallback     bool
}

// ResumeExtractor resolves resume input to plain text.
type ResumeExtractor interface {
	FromText(text string) (string, error)
	FromArtifact(ctx context.Context, ref string) (string, error)
}

type codingAssessmentService struct {
	assessments repository.CodingAssessmentRepository
	students    repository.StudentRepository
	extractor   ResumeExtractor
	generator   *assessment.QuestionGenerator
	reviewer    *assessment.AnswerReviewer
	mock        *assessment.MockProvider
	events      AssessmentEventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	config      CodingAssessmentConfig
	now         func() time.Time
}

// NewCodingAssessmentService constructs the assessment orchestrator. events may be nil.
func NewCodingAssessmentService(
	assessmentRepo repository.CodingAssessmentRepository,
	studentRepo repository.StudentRepository,
	extractor ResumeExtractor,
	generator *assessment.QuestionGenerator,
	reviewer *assessment.AnswerReviewer,
	mock *assessment.MockProvider,
	events AssessmentEventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
	cfg CodingAssessmentConfig,
) CodingAssessmentService {
	return &codingAssessmentService{
		assessments: assessmentRepo,
		students:    studentRepo,
		extractor:   extractor,
		generator:   generator,
		reviewer:    reviewer,
		mock:        mock,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "coding_assessment_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/coding_assessment"),
		config:      cfg,
		now:         time.Now,
	}
}

func (s *codingAssessmentService) Generate(ctx context.Context, userID uint, payload dto.GenerateCodingAssessmentRequest) (dto.CodingAssessmentResponse, error) {
	if userID == 0 {
		return dto.CodingAssessmentResponse{}, fmt.Errorf("%w: user id is required", assessment.ErrInvalidInput)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CodingAssessmentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "coding_assessment.generate", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
		attribute.Bool("mode.mock", s.config.GenerationMock),
	))
	defer span.End()

	var (
		built models.CodingAssessment
		mode  string
		tier  string
	)

	if s.config.GenerationMock {
		built = s.generator.Build(s.mock.QuestionSet())
		mode = models.ResultModeMock
	} else {
		generated, repairTier, err := s.generateLive(ctx, userID, payload)
		switch {
		case err == nil:
			built = generated
			mode = models.ResultModeLive
			tier = repairTier.String()
		case s.config.GenerationFallback:
			s.logger.Warn().Err(err).Uint("user_id", userID).Msg("live generation failed; serving fallback question set")
			built = s.generator.Build(s.mock.QuestionSet())
			mode = models.ResultModeFallback
		default:
			span.RecordError(err)
			observability.Generations().WithLabelValues("failed").Inc()
			return dto.CodingAssessmentResponse{}, err
		}
	}

	built.UserID = userID
	built.GenerationMode = mode
	built.RepairTier = tier
	if err := s.assessments.Create(ctx, &built); err != nil {
		span.RecordError(err)
		return dto.CodingAssessmentResponse{}, fmt.Errorf("store assessment: %w", err)
	}

	observability.Generations().WithLabelValues(mode).Inc()
	span.SetAttributes(attribute.String("generation.mode", mode), attribute.Int("assessment.id", int(built.ID)))

	response := dto.NewCodingAssessmentResponse(built)
	s.publish(ctx, AssessmentEventGenerated, response)
	return response, nil
}

// generateLive resolves the resume and makes the single upstream generation call.
func (s *codingAssessmentService) generateLive(ctx context.Context, userID uint, payload dto.GenerateCodingAssessmentRequest) (models.CodingAssessment, assessment.RepairTier, error) {
	resumeText, err := s.resolveResume(ctx, userID, payload)
	if err != nil {
		return models.CodingAssessment{}, assessment.TierNone, err
	}
	return s.generator.Generate(ctx, resumeText)
}

// resolveResume prefers request text, then a request reference, then the
// reference stored on the caller's profile.
func (s *codingAssessmentService) resolveResume(ctx context.Context, userID uint, payload dto.GenerateCodingAssessmentRequest) (string, error) {
	if strings.TrimSpace(payload.ResumeText) != "" {
		return s.extractor.FromText(payload.ResumeText)
	}
	if ref := strings.TrimSpace(payload.ResumeURL); ref != "" {
		return s.extractor.FromArtifact(ctx, ref)
	}

	student, err := s.students.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrResumeNotFound
		}
		return "", fmt.Errorf("load profile: %w", err)
	}
	if !student.HasResume() {
		return "", ErrResumeNotFound
	}
	return s.extractor.FromArtifact(ctx, student.ResumeURL)
}

func (s *codingAssessmentService) Submit(ctx context.Context, userID, assessmentID uint, payload dto.SubmitCodingAssessmentRequest) (dto.CodingAssessmentResponse, error) {
	if userID == 0 || assessmentID == 0 {
		return dto.CodingAssessmentResponse{}, fmt.Errorf("%w: user id and assessment id are required", assessment.ErrInvalidInput)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CodingAssessmentResponse{}, err
	}
	if len(payload.Answers) == 0 {
		return dto.CodingAssessmentResponse{}, fmt.Errorf("%w: answers are required", assessment.ErrInvalidInput)
	}

	stored, err := s.load(ctx, userID, assessmentID)
	if err != nil {
		return dto.CodingAssessmentResponse{}, err
	}
	if stored.IsReviewed() {
		return dto.CodingAssessmentResponse{}, ErrCodingAssessmentAlreadyReviewed
	}

	answers, err := s.mergeAnswers(stored, payload.Answers)
	if err != nil {
		return dto.CodingAssessmentResponse{}, err
	}
	if err := assessment.CheckAnswers(stored, answers); err != nil {
		return dto.CodingAssessmentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "coding_assessment.review", trace.WithAttributes(
		attribute.Int("assessment.id", int(assessmentID)),
		attribute.Bool("mode.mock", s.config.ReviewMock),
	))
	defer span.End()

	outcome, err := s.review(ctx, stored, answers)
	if err != nil {
		span.RecordError(err)
		return dto.CodingAssessmentResponse{}, err
	}

	mode := outcome.Mode()
	status := models.CodingAssessmentStatusReviewed
	reviews := outcome.Reviews
	updated, err := s.assessments.Update(ctx, userID, assessmentID, repository.CodingAssessmentPatch{
		Answers:    &answers,
		Reviews:    &reviews,
		Status:     &status,
		ReviewMode: &mode,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CodingAssessmentResponse{}, ErrCodingAssessmentNotFound
		}
		return dto.CodingAssessmentResponse{}, fmt.Errorf("store reviews: %w", err)
	}

	span.SetAttributes(attribute.String("review.mode", mode))
	s.logger.Info().
		Uint("assessment_id", assessmentID).
		Str("mode", mode).
		Int("live", outcome.Live).
		Int("fallback", outcome.Fallback).
		Msg("assessment reviewed")

	response := dto.NewCodingAssessmentResponse(updated)
	s.publish(ctx, AssessmentEventReviewed, response)
	return response, nil
}

// review applies the mode matrix. Per-question failures are always isolated
// by the reviewer; with fallback disabled the request fails only when the
// upstream is unavailable or no review came back live.
func (s *codingAssessmentService) review(ctx context.Context, stored models.CodingAssessment, answers map[string]models.CodingAnswer) (assessment.ReviewOutcome, error) {
	if s.config.ReviewMock {
		return s.reviewer.MockReview(stored, answers, models.ResultModeMock)
	}

	outcome, err := s.reviewer.Review(ctx, stored, answers)
	switch {
	case err == nil && (outcome.Live > 0 || s.config.ReviewFallback):
		return outcome, nil
	case err == nil:
		return assessment.ReviewOutcome{}, fmt.Errorf("%w: no review completed", assessment.ErrUpstreamUnavailable)
	case errors.Is(err, assessment.ErrUpstreamUnavailable) && s.config.ReviewFallback:
		s.logger.Warn().Err(err).Uint("assessment_id", stored.ID).Msg("reviewer unavailable; serving fallback reviews")
		return s.reviewer.MockReview(stored, answers, models.ResultModeFallback)
	default:
		return assessment.ReviewOutcome{}, err
	}
}

func (s *codingAssessmentService) SaveAnswers(ctx context.Context, userID, assessmentID uint, payload dto.SaveCodingAnswersRequest) (dto.CodingAssessmentResponse, error) {
	if userID == 0 || assessmentID == 0 {
		return dto.CodingAssessmentResponse{}, fmt.Errorf("%w: user id and assessment id are required", assessment.ErrInvalidInput)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CodingAssessmentResponse{}, err
	}

	stored, err := s.load(ctx, userID, assessmentID)
	if err != nil {
		return dto.CodingAssessmentResponse{}, err
	}
	if stored.IsReviewed() {
		return dto.CodingAssessmentResponse{}, ErrCodingAssessmentAlreadyReviewed
	}

	answers, err := s.mergeAnswers(stored, payload.Answers)
	if err != nil {
		return dto.CodingAssessmentResponse{}, err
	}

	updated, err := s.assessments.Update(ctx, userID, assessmentID, repository.CodingAssessmentPatch{Answers: &answers})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CodingAssessmentResponse{}, ErrCodingAssessmentNotFound
		}
		return dto.CodingAssessmentResponse{}, fmt.Errorf("store answers: %w", err)
	}

	return dto.NewCodingAssessmentResponse(updated), nil
}

func (s *codingAssessmentService) Get(ctx context.Context, userID, assessmentID uint) (dto.CodingAssessmentResponse, error) {
	if userID == 0 || assessmentID == 0 {
		return dto.CodingAssessmentResponse{}, fmt.Errorf("%w: user id and assessment id are required", assessment.ErrInvalidInput)
	}

	stored, err := s.load(ctx, userID, assessmentID)
	if err != nil {
		return dto.CodingAssessmentResponse{}, err
	}
	return dto.NewCodingAssessmentResponse(stored), nil
}

func (s *codingAssessmentService) List(ctx context.Context, userID uint) ([]dto.CodingAssessmentSummary, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", assessment.ErrInvalidInput)
	}

	items, err := s.assessments.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.CodingAssessmentSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, dto.NewCodingAssessmentSummary(item))
	}
	return summaries, nil
}

func (s *codingAssessmentService) load(ctx context.Context, userID, assessmentID uint) (models.CodingAssessment, error) {
	stored, err := s.assessments.Get(ctx, userID, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CodingAssessment{}, ErrCodingAssessmentNotFound
		}
		return models.CodingAssessment{}, err
	}
	return stored, nil
}

// mergeAnswers overlays submitted answers on the stored drafts. Keys must be
// question ids of the assessment.
func (s *codingAssessmentService) mergeAnswers(stored models.CodingAssessment, submitted map[string]dto.CodingAnswerInput) (map[string]models.CodingAnswer, error) {
	var unknown []string
	for id := range submitted {
		if !stored.HasQuestion(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown question ids: %s", assessment.ErrInvalidInput, strings.Join(unknown, ", "))
	}

	now := s.now().UTC()
	merged := make(map[string]models.CodingAnswer, len(stored.Questions))
	for id, answer := range stored.Answers.Data() {
		merged[id] = answer
	}
	for id, input := range submitted {
		merged[id] = models.CodingAnswer{
			QuestionID:  id,
			Answer:      input.Answer,
			Language:    strings.TrimSpace(input.Language),
			SubmittedAt: now,
		}
	}
	return merged, nil
}

func (s *codingAssessmentService) publish(ctx context.Context, eventType string, response dto.CodingAssessmentResponse) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, response)
}
