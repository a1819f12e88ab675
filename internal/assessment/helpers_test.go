package assessment

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

type stubGenerator struct {
	unavailable bool
	calls       atomic.Int32
	respond     func(prompt ai.Prompt) (string, error)
}

func (s *stubGenerator) Available() bool { return !s.unavailable }

func (s *stubGenerator) Generate(_ context.Context, prompt ai.Prompt) (string, error) {
	s.calls.Add(1)
	return s.respond(prompt)
}

func fixedResponse(text string) func(ai.Prompt) (string, error) {
	return func(ai.Prompt) (string, error) { return text, nil }
}

type sequenceRand struct {
	value func(n int) int
}

func (s sequenceRand) Intn(n int) int { return s.value(n) }

func sampleAssessment(n int) models.CodingAssessment {
	questions := make([]models.CodingQuestion, 0, n)
	for i := 1; i <= n; i++ {
		questions = append(questions, models.CodingQuestion{
			ID:         fmt.Sprintf("question-%d", i),
			Question:   fmt.Sprintf("Solve problem number %d", i),
			Difficulty: models.DifficultyMedium,
			Category:   "General",
		})
	}
	return models.CodingAssessment{ID: 7, UserID: 3, Title: "Sample", Questions: questions, Status: models.CodingAssessmentStatusNotStarted}
}

func answersFor(assessment models.CodingAssessment) map[string]models.CodingAnswer {
	answers := make(map[string]models.CodingAnswer, len(assessment.Questions))
	for _, question := range assessment.Questions {
		answers[question.ID] = models.CodingAnswer{
			QuestionID: question.ID,
			Answer:     "def solve(): return 42",
			Language:   "python",
		}
	}
	return answers
}

const liveReviewJSON = `{"correctness": 90, "efficiency": 80, "readability": 85, "overallScore": 86, "feedback": "Solid answer.", "improvements": ["Handle empty input", "Add tests"]}`
