package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

// QuestionGenerator asks the upstream model for a question set and turns the
// reply into an unsaved assessment.
type QuestionGenerator struct {
	client ai.Generator
	logger zerolog.Logger
	tracer trace.Tracer
	newID  func() string
	now    func() time.Time
}

// NewQuestionGenerator constructs a generator. client may be nil, in which
// case every live call reports ErrUpstreamUnavailable.
func NewQuestionGenerator(client ai.Generator, logger zerolog.Logger) *QuestionGenerator {
	return &QuestionGenerator{
		client: client,
		logger: logger.With().Str("component", "question_generator").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/assessment/generator"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Generate makes exactly one upstream call. Parsing problems never fail the
// call; only an unavailable or failing upstream does.
func (g *QuestionGenerator) Generate(ctx context.Context, resumeText string) (models.CodingAssessment, RepairTier, error) {
	ctx, span := g.tracer.Start(ctx, "assessment.generate_questions", trace.WithAttributes(
		attribute.Int("resume.chars", len(resumeText)),
	))
	defer span.End()

	if g.client == nil || !g.client.Available() {
		span.SetStatus(codes.Error, "client unavailable")
		return models.CodingAssessment{}, TierNone, ErrUpstreamUnavailable
	}

	raw, err := g.client.Generate(ctx, generationPrompt(resumeText))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.CodingAssessment{}, TierNone, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	repaired := RepairQuestionSet(raw)
	observability.RepairTiers().WithLabelValues("question_set", repaired.Tier.String()).Inc()
	span.SetAttributes(attribute.String("repair.tier", repaired.Tier.String()))
	if repaired.Tier != TierDirect {
		g.logger.Warn().
			Str("tier", repaired.Tier.String()).
			Int("questions", len(repaired.Set.Questions)).
			Msg("upstream question set needed repair")
	}

	return g.Build(repaired.Set), repaired.Tier, nil
}

// Build normalises a parsed set into a not_started assessment. Every question
// id is regenerated; upstream ids are not trusted to be unique.
func (g *QuestionGenerator) Build(set ParsedQuestionSet) models.CodingAssessment {
	now := g.now().UTC()

	questions := make([]models.CodingQuestion, 0, len(set.Questions))
	for _, parsed := range set.Questions {
		text := strings.TrimSpace(parsed.Question)
		if text == "" {
			continue
		}
		category := strings.TrimSpace(parsed.Category)
		if category == "" {
			category = "General"
		}
		questions = append(questions, models.CodingQuestion{
			ID:             g.newID(),
			Question:       text,
			Difficulty:     normalizeDifficulty(parsed.Difficulty),
			Category:       category,
			ExpectedOutput: strings.TrimSpace(parsed.ExpectedOutput),
		})
	}

	if len(questions) == 0 {
		return g.Build(synthesizedQuestionSet())
	}

	title := strings.TrimSpace(set.Title)
	if title == "" {
		title = "Coding Assessment"
	}

	return models.CodingAssessment{
		Title:       title,
		Description: strings.TrimSpace(set.Description),
		Questions:   questions,
		Status:      models.CodingAssessmentStatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func normalizeDifficulty(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case models.DifficultyEasy, "beginner", "simple":
		return models.DifficultyEasy
	case models.DifficultyHard, "advanced", "difficult", "expert":
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}
