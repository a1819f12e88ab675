package assessment

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

// ReviewOutcome aggregates one review per question.
type ReviewOutcome struct {
	Reviews  map[string]models.CodingReview
	Live     int
	Fallback int
}

// Mode summarises where the reviews came from.
func (o ReviewOutcome) Mode() string {
	switch {
	case o.Fallback == 0 && o.Live > 0:
		return models.ResultModeLive
	case o.Live == 0 && o.Fallback > 0:
		return models.ResultModeFallback
	case o.Live > 0:
		return models.ResultModePartialFallback
	default:
		return models.ResultModeMock
	}
}

// AnswerReviewer reviews every answer of an assessment with one independent
// upstream call per question.
type AnswerReviewer struct {
	client      ai.Generator
	mock        *MockProvider
	sanitizer   *bluemonday.Policy
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAnswerReviewer constructs a reviewer. concurrency <= 0 runs every
// question at once.
func NewAnswerReviewer(client ai.Generator, mock *MockProvider, concurrency int, logger zerolog.Logger) *AnswerReviewer {
	if mock == nil {
		mock = NewMockProvider(nil)
	}
	return &AnswerReviewer{
		client:      client,
		mock:        mock,
		sanitizer:   bluemonday.StrictPolicy(),
		concurrency: concurrency,
		logger:      logger.With().Str("component", "answer_reviewer").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/assessment/reviewer"),
		now:         time.Now,
	}
}

// CheckAnswers verifies every question has a non-empty answer.
func CheckAnswers(assessment models.CodingAssessment, answers map[string]models.CodingAnswer) error {
	var missing []string
	for _, question := range assessment.Questions {
		answer, ok := answers[question.ID]
		if !ok || strings.TrimSpace(answer.Answer) == "" {
			missing = append(missing, question.ID)
		}
	}
	if len(missing) > 0 {
		return &MissingAnswersError{QuestionIDs: missing}
	}
	return nil
}

// Review fans out one review per question and waits for all of them. A
// failed or unreadable review is replaced by a mock review for that question
// alone. ErrUpstreamUnavailable is returned only when no client is configured.
func (r *AnswerReviewer) Review(ctx context.Context, assessment models.CodingAssessment, answers map[string]models.CodingAnswer) (ReviewOutcome, error) {
	if err := CheckAnswers(assessment, answers); err != nil {
		return ReviewOutcome{}, err
	}
	if r.client == nil || !r.client.Available() {
		return ReviewOutcome{}, ErrUpstreamUnavailable
	}

	ctx, span := r.tracer.Start(ctx, "assessment.review_answers", trace.WithAttributes(
		attribute.Int("assessment.id", int(assessment.ID)),
		attribute.Int("questions", len(assessment.Questions)),
	))
	defer span.End()

	n := len(assessment.Questions)
	reviews := make([]models.CodingReview, n)
	live := make([]bool, n)

	var group errgroup.Group
	if r.concurrency > 0 {
		group.SetLimit(r.concurrency)
	}
	for i, question := range assessment.Questions {
		group.Go(func() error {
			reviews[i], live[i] = r.reviewOne(ctx, question, answers[question.ID])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return ReviewOutcome{}, err
	}

	outcome := ReviewOutcome{Reviews: make(map[string]models.CodingReview, n)}
	for i, review := range reviews {
		outcome.Reviews[review.QuestionID] = review
		if live[i] {
			outcome.Live++
		} else {
			outcome.Fallback++
		}
	}

	span.SetAttributes(
		attribute.Int("reviews.live", outcome.Live),
		attribute.Int("reviews.fallback", outcome.Fallback),
	)
	return outcome, nil
}

// MockReview reviews every answer with the mock provider, without upstream
// calls. source is recorded on each review and is either mock or fallback.
func (r *AnswerReviewer) MockReview(assessment models.CodingAssessment, answers map[string]models.CodingAnswer, source string) (ReviewOutcome, error) {
	if err := CheckAnswers(assessment, answers); err != nil {
		return ReviewOutcome{}, err
	}

	outcome := ReviewOutcome{Reviews: make(map[string]models.CodingReview, len(assessment.Questions))}
	for _, question := range assessment.Questions {
		outcome.Reviews[question.ID] = r.mock.Review(question, answers[question.ID], source)
		observability.Reviews().WithLabelValues(source).Inc()
	}
	if source == models.ResultModeFallback {
		outcome.Fallback = len(outcome.Reviews)
	}
	return outcome, nil
}

func (r *AnswerReviewer) reviewOne(ctx context.Context, question models.CodingQuestion, answer models.CodingAnswer) (models.CodingReview, bool) {
	logger := r.logger.With().Str("question_id", question.ID).Logger()

	raw, err := r.client.Generate(ctx, reviewPrompt(question, answer))
	if err != nil {
		logger.Warn().Err(err).Msg("review call failed; using fallback review")
		return r.fallback(question, answer), false
	}

	parsed, tier, err := RepairReview(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("review payload unreadable; using fallback review")
		observability.RepairTiers().WithLabelValues("review", TierNone.String()).Inc()
		return r.fallback(question, answer), false
	}
	observability.RepairTiers().WithLabelValues("review", tier.String()).Inc()
	observability.Reviews().WithLabelValues(models.ResultModeLive).Inc()

	improvements := make([]string, 0, len(parsed.Improvements))
	for _, item := range parsed.Improvements {
		if clean := r.plainText(item); clean != "" {
			improvements = append(improvements, clean)
		}
	}

	return models.CodingReview{
		QuestionID:   question.ID,
		Correctness:  parsed.Correctness,
		Efficiency:   parsed.Efficiency,
		Readability:  parsed.Readability,
		OverallScore: parsed.OverallScore,
		Feedback:     r.plainText(parsed.Feedback),
		Improvements: improvements,
		Source:       models.ResultModeLive,
		ReviewedAt:   r.now().UTC(),
	}, true
}

// plainText strips markup from model output. The sanitizer entity-escapes
// what it keeps, so the result is unescaped back to the literal text; the
// JSON encoder escapes it again on the way out.
func (r *AnswerReviewer) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(r.sanitizer.Sanitize(s)))
}

func (r *AnswerReviewer) fallback(question models.CodingQuestion, answer models.CodingAnswer) models.CodingReview {
	observability.Reviews().WithLabelValues(models.ResultModeFallback).Inc()
	return r.mock.Review(question, answer, models.ResultModeFallback)
}
