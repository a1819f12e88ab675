package models

import (
	"time"

	"gorm.io/datatypes"
)

// CodingAssessmentStatus values. Only not_started and reviewed are driven by
// the pipeline today.
const (
	CodingAssessmentStatusNotStarted = "not_started"
	CodingAssessmentStatusInProgress = "in_progress"
	CodingAssessmentStatusCompleted  = "completed"
	CodingAssessmentStatusReviewed   = "reviewed"
)

// Question difficulties.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Result modes describe where generated content came from.
const (
	ResultModeLive            = "live"
	ResultModeMock            = "mock"
	ResultModeFallback        = "fallback"
	ResultModePartialFallback = "partial_fallback"
)

// CodingQuestion is a language-agnostic exercise inside an assessment.
type CodingQuestion struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	Difficulty     string `json:"difficulty"`
	Category       string `json:"category"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

// CodingAnswer is the candidate's answer to one question.
type CodingAnswer struct {
	QuestionID  string    `json:"question_id"`
	Answer      string    `json:"answer"`
	Language    string    `json:"language"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CodingReview is the scored review of one answer.
type CodingReview struct {
	QuestionID   string    `json:"question_id"`
	Correctness  int       `json:"correctness"`
	Efficiency   int       `json:"efficiency"`
	Readability  int       `json:"readability"`
	OverallScore int       `json:"overall_score"`
	Feedback     string    `json:"feedback"`
	Improvements []string  `json:"improvements"`
	Source       string    `json:"source"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// CodingAssessment aggregates questions, answers and reviews for one attempt.
type CodingAssessment struct {
	ID             uint                                        `gorm:"primaryKey" json:"id"`
	UserID         uint                                        `gorm:"not null;index" json:"user_id"`
	Title          string                                      `gorm:"size:255;not null" json:"title"`
	Description    string                                      `gorm:"type:text" json:"description"`
	Questions      datatypes.JSONSlice[CodingQuestion]         `json:"questions"`
	Answers        datatypes.JSONType[map[string]CodingAnswer] `json:"answers"`
	Reviews        datatypes.JSONType[map[string]CodingReview] `json:"reviews"`
	Status         string                                      `gorm:"size:32;not null" json:"status"`
	GenerationMode string                                      `gorm:"size:32" json:"generation_mode"`
	RepairTier     string                                      `gorm:"size:32" json:"repair_tier"`
	ReviewMode     string                                      `gorm:"size:32" json:"review_mode"`
	CreatedAt      time.Time                                   `json:"created_at"`
	UpdatedAt      time.Time                                   `json:"updated_at"`
}

// QuestionIDs returns question ids in assessment order.
func (a CodingAssessment) QuestionIDs() []string {
	ids := make([]string, 0, len(a.Questions))
	for _, question := range a.Questions {
		ids = append(ids, question.ID)
	}
	return ids
}

// HasQuestion reports whether id belongs to this assessment.
func (a CodingAssessment) HasQuestion(id string) bool {
	for _, question := range a.Questions {
		if question.ID == id {
			return true
		}
	}
	return false
}

// IsReviewed reports whether reviews have been produced.
func (a CodingAssessment) IsReviewed() bool {
	return a.Status == CodingAssessmentStatusReviewed
}
