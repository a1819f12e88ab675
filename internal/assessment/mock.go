package assessment

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// MockAssessmentTitle is the title of the hand-authored mock question set.
const MockAssessmentTitle = "Software Engineering Problem Solving Assessment"

// RandSource is the randomness the mock draws from. *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewLockedRand returns a RandSource that is safe for concurrent use.
func NewLockedRand(seed int64) RandSource {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// MockProvider produces schema-valid synthetic question sets and reviews. It
// backs mock mode and per-unit fallback.
type MockProvider struct {
	rand RandSource
	now  func() time.Time
}

// NewMockProvider builds a provider; a nil source gets a time-seeded one.
// Sources shared across goroutines must be safe for concurrent use.
func NewMockProvider(source RandSource) *MockProvider {
	if source == nil {
		source = NewLockedRand(time.Now().UnixNano())
	}
	return &MockProvider{rand: source, now: time.Now}
}

var improvementPool = []string{
	"Add input validation for empty and null inputs",
	"Cover boundary cases such as single-element and very large inputs",
	"Extract repeated logic into small, well-named helper functions",
	"Use more descriptive variable names",
	"Reduce time complexity by choosing a better-suited data structure",
	"Add comments explaining the non-obvious steps of the algorithm",
	"Write unit tests that exercise the edge cases",
	"Avoid unnecessary copies of the input to lower memory usage",
}

// QuestionSet returns the fixed mock question set.
func (m *MockProvider) QuestionSet() ParsedQuestionSet {
	return ParsedQuestionSet{
		Title:       MockAssessmentTitle,
		Description: "A mixed-difficulty set of algorithmic problems. Solve each one in the programming language of your choice.",
		Questions: []ParsedQuestion{
			{
				ID:             "mock-1",
				Question:       "Given an array of integers and a target value, return the indices of the two numbers that add up to the target. Assume exactly one solution exists and the same element cannot be used twice.",
				Difficulty:     models.DifficultyEasy,
				Category:       "Arrays",
				ExpectedOutput: "For [2, 7, 11, 15] and target 9 the result is [0, 1].",
			},
			{
				ID:             "mock-2",
				Question:       "Determine whether a string of brackets made of (), [] and {} is balanced, meaning every opening bracket is closed by the same type in the correct order.",
				Difficulty:     models.DifficultyEasy,
				Category:       "Stacks",
				ExpectedOutput: "\"{[()]}\" is balanced; \"([)]\" is not.",
			},
			{
				ID:             "mock-3",
				Question:       "Find the length of the longest substring without repeating characters in a given string.",
				Difficulty:     models.DifficultyMedium,
				Category:       "Sliding Window",
				ExpectedOutput: "For \"abcabcbb\" the answer is 3 (\"abc\").",
			},
			{
				ID:             "mock-4",
				Question:       "Given a list of tasks where some tasks must finish before others can start, return a valid order to complete every task, or report that no order exists because of a cycle.",
				Difficulty:     models.DifficultyMedium,
				Category:       "Graphs",
				ExpectedOutput: "Tasks [a, b, c] with b after a and c after b produce [a, b, c]; a cycle produces an error.",
			},
			{
				ID:             "mock-5",
				Question:       "Implement a rate limiter that allows at most N requests per rolling window of W seconds per client, and returns whether each incoming request is allowed.",
				Difficulty:     models.DifficultyHard,
				Category:       "System Design",
				ExpectedOutput: "With N=2 and W=10, requests at t=0, 1, 2 from the same client yield allow, allow, deny.",
			},
		},
	}
}

// Review produces a bounded synthetic review for one answer.
func (m *MockProvider) Review(question models.CodingQuestion, answer models.CodingAnswer, source string) models.CodingReview {
	correctness := 60 + m.rand.Intn(36)
	efficiency := 55 + m.rand.Intn(41)
	readability := 60 + m.rand.Intn(36)
	overall := (correctness + efficiency + readability + 1) / 3

	return models.CodingReview{
		QuestionID:   question.ID,
		Correctness:  correctness,
		Efficiency:   efficiency,
		Readability:  readability,
		OverallScore: overall,
		Feedback:     m.feedback(correctness, efficiency, readability, overall, answer.Language),
		Improvements: m.improvements(3),
		Source:       source,
		ReviewedAt:   m.now().UTC(),
	}
}

func (m *MockProvider) feedback(correctness, efficiency, readability, overall int, language string) string {
	var parts []string
	switch {
	case overall >= 85:
		parts = append(parts, "Excellent work: the solution is well structured and solves the problem.")
	case overall >= 70:
		parts = append(parts, "Good solution that covers the main requirements.")
	default:
		parts = append(parts, "The solution shows a reasonable approach but needs further refinement.")
	}

	switch {
	case correctness < 70:
		parts = append(parts, "Some edge cases are likely handled incorrectly.")
	case efficiency < 70:
		parts = append(parts, "The approach works but could be made more efficient.")
	case readability < 70:
		parts = append(parts, "The logic is sound, though the code could be easier to follow.")
	default:
		parts = append(parts, "Correctness, efficiency and readability are all in good shape.")
	}

	if lang := strings.TrimSpace(language); lang != "" {
		parts = append(parts, fmt.Sprintf("Consider idiomatic %s conventions when polishing the final version.", lang))
	}

	return strings.Join(parts, " ")
}

// improvements samples n distinct entries from the pool without replacement.
func (m *MockProvider) improvements(n int) []string {
	pool := make([]string, len(improvementPool))
	copy(pool, improvementPool)
	if n > len(pool) {
		n = len(pool)
	}
	for i := 0; i < n; i++ {
		j := i + m.rand.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
