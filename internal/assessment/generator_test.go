package assessment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

func TestQuestionGeneratorBuildsFreshIDs(t *testing.T) {
	client := &stubGenerator{respond: fixedResponse(fiveQuestionsJSON)}
	generator := NewQuestionGenerator(client, zerolog.Nop())

	first, tier, err := generator.Generate(context.Background(), strings.Repeat("Go developer ", 20))
	require.NoError(t, err)
	require.Equal(t, TierDirect, tier)
	require.EqualValues(t, 1, client.calls.Load())

	second, _, err := generator.Generate(context.Background(), "")
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for _, assessment := range []models.CodingAssessment{first, second} {
		require.Len(t, assessment.Questions, 5)
		require.Equal(t, models.CodingAssessmentStatusNotStarted, assessment.Status)
		for _, question := range assessment.Questions {
			require.NotContains(t, []string{"q1", "q2", "q3", "q4", "q5"}, question.ID)
			_, parseErr := uuid.Parse(question.ID)
			require.NoError(t, parseErr)
			seen[question.ID] = struct{}{}
		}
	}
	require.Len(t, seen, 10)
	require.Equal(t, "Backend Engineer Assessment", first.Title)
}

func TestQuestionGeneratorSendsResumeInPrompt(t *testing.T) {
	var captured ai.Prompt
	client := &stubGenerator{respond: func(prompt ai.Prompt) (string, error) {
		captured = prompt
		return fiveQuestionsJSON, nil
	}}
	generator := NewQuestionGenerator(client, zerolog.Nop())

	_, _, err := generator.Generate(context.Background(), "Built payment systems with Kafka and Postgres")
	require.NoError(t, err)
	require.Contains(t, captured.User, "Kafka and Postgres")
	require.Contains(t, captured.System, "Exactly 5 questions")

	_, _, err = generator.Generate(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, captured.User, "general software engineering candidate")
}

func TestQuestionGeneratorUnavailableClient(t *testing.T) {
	client := &stubGenerator{unavailable: true}
	generator := NewQuestionGenerator(client, zerolog.Nop())

	_, tier, err := generator.Generate(context.Background(), "resume")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Equal(t, TierNone, tier)
	require.Zero(t, client.calls.Load())

	_, _, err = NewQuestionGenerator(nil, zerolog.Nop()).Generate(context.Background(), "resume")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestQuestionGeneratorUpstreamFailure(t *testing.T) {
	client := &stubGenerator{respond: func(ai.Prompt) (string, error) {
		return "", errors.New("connection reset")
	}}
	generator := NewQuestionGenerator(client, zerolog.Nop())

	_, _, err := generator.Generate(context.Background(), "resume")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Contains(t, err.Error(), "connection reset")
}

func TestQuestionGeneratorSynthesizesOnUnreadableReply(t *testing.T) {
	client := &stubGenerator{respond: fixedResponse("lorem ipsum")}
	generator := NewQuestionGenerator(client, zerolog.Nop())

	result, tier, err := generator.Generate(context.Background(), "resume")
	require.NoError(t, err)
	require.Equal(t, TierSynthesized, tier)
	require.Equal(t, DegradedTitle, result.Title)
	require.GreaterOrEqual(t, len(result.Questions), 3)
}

func TestQuestionGeneratorBuildNormalizes(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	generator := NewQuestionGenerator(nil, zerolog.Nop())
	generator.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	result := generator.Build(ParsedQuestionSet{
		Questions: []ParsedQuestion{
			{ID: "x", Question: "  Trim me  ", Difficulty: "Beginner"},
			{ID: "x", Question: "Second", Difficulty: "EXPERT", Category: "Graphs"},
			{ID: "x", Question: "   "},
			{ID: "x", Question: "Third", Difficulty: "whatever"},
		},
	})

	require.Equal(t, "Coding Assessment", result.Title)
	require.Len(t, result.Questions, 3)
	require.Equal(t, models.CodingQuestion{ID: "a", Question: "Trim me", Difficulty: models.DifficultyEasy, Category: "General"}, result.Questions[0])
	require.Equal(t, models.DifficultyHard, result.Questions[1].Difficulty)
	require.Equal(t, "Graphs", result.Questions[1].Category)
	require.Equal(t, "c", result.Questions[2].ID)
	require.Equal(t, models.DifficultyMedium, result.Questions[2].Difficulty)
}

func TestQuestionGeneratorBuildEmptySetFallsBackToSynthesized(t *testing.T) {
	result := NewQuestionGenerator(nil, zerolog.Nop()).Build(ParsedQuestionSet{Title: "Empty"})
	require.Equal(t, DegradedTitle, result.Title)
	require.Len(t, result.Questions, 3)
}
