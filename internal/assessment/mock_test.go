package assessment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

func TestMockReviewScoresStayInBounds(t *testing.T) {
	mock := NewMockProvider(rand.New(rand.NewSource(42)))
	question := models.CodingQuestion{ID: "q1", Question: "Sum an array"}
	answer := models.CodingAnswer{QuestionID: "q1", Answer: "sum(xs)", Language: "python"}

	for i := 0; i < 500; i++ {
		review := mock.Review(question, answer, models.ResultModeMock)

		require.GreaterOrEqual(t, review.Correctness, 60)
		require.LessOrEqual(t, review.Correctness, 95)
		require.GreaterOrEqual(t, review.Efficiency, 55)
		require.LessOrEqual(t, review.Efficiency, 95)
		require.GreaterOrEqual(t, review.Readability, 60)
		require.LessOrEqual(t, review.Readability, 95)

		mean := float64(review.Correctness+review.Efficiency+review.Readability) / 3
		require.InDelta(t, mean, float64(review.OverallScore), 0.5)

		require.Len(t, review.Improvements, 3)
		seen := map[string]struct{}{}
		for _, item := range review.Improvements {
			require.Contains(t, improvementPool, item)
			seen[item] = struct{}{}
		}
		require.Len(t, seen, 3)

		require.Equal(t, "q1", review.QuestionID)
		require.Equal(t, models.ResultModeMock, review.Source)
		require.NotEmpty(t, review.Feedback)
	}
}

func TestMockReviewFeedbackBands(t *testing.T) {
	question := models.CodingQuestion{ID: "q1"}

	high := NewMockProvider(sequenceRand{value: func(n int) int { return n - 1 }})
	review := high.Review(question, models.CodingAnswer{Language: "Go"}, models.ResultModeFallback)
	require.Equal(t, 95, review.Correctness)
	require.Equal(t, 95, review.Efficiency)
	require.Equal(t, 95, review.Readability)
	require.Equal(t, 95, review.OverallScore)
	require.Contains(t, review.Feedback, "Excellent work")
	require.Contains(t, review.Feedback, "idiomatic Go conventions")
	require.Equal(t, models.ResultModeFallback, review.Source)

	low := NewMockProvider(sequenceRand{value: func(int) int { return 0 }})
	review = low.Review(question, models.CodingAnswer{}, models.ResultModeMock)
	require.Equal(t, 60, review.Correctness)
	require.Equal(t, 55, review.Efficiency)
	require.Equal(t, 60, review.Readability)
	require.Equal(t, 58, review.OverallScore)
	require.Contains(t, review.Feedback, "reasonable approach")
	require.Contains(t, review.Feedback, "edge cases")
	require.NotContains(t, review.Feedback, "idiomatic")
	require.Equal(t, improvementPool[:3], review.Improvements)
}

func TestMockImprovementsDoNotMutatePool(t *testing.T) {
	original := append([]string(nil), improvementPool...)
	mock := NewMockProvider(NewLockedRand(7))

	for i := 0; i < 20; i++ {
		mock.improvements(3)
	}
	require.Equal(t, original, improvementPool)
	require.Len(t, mock.improvements(50), len(improvementPool))
}

func TestMockQuestionSetIsSchemaShaped(t *testing.T) {
	set := NewMockProvider(nil).QuestionSet()

	require.Equal(t, MockAssessmentTitle, set.Title)
	require.Len(t, set.Questions, 5)

	ids := map[string]struct{}{}
	for _, question := range set.Questions {
		require.NotEmpty(t, question.Question)
		require.Contains(t, []string{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}, question.Difficulty)
		ids[question.ID] = struct{}{}
	}
	require.Len(t, ids, 5)
}
