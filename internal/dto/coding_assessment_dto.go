package dto

import (
	"fmt"
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// GenerateCodingAssessmentRequest asks for a new assessment. Both fields are
// optional; without them the caller's profile resume is used.
type GenerateCodingAssessmentRequest struct {
	ResumeText string `json:"resume_text" validate:"omitempty,max=200000"`
	ResumeURL  string `json:"resume_url" validate:"omitempty,url,max=1024"`
}

// CodingAnswerInput is one answer keyed by question id in the request body.
type CodingAnswerInput struct {
	Answer   string `json:"answer" validate:"max=100000"`
	Language string `json:"language" validate:"omitempty,max=64"`
}

// SubmitCodingAssessmentRequest submits answers for review.
type SubmitCodingAssessmentRequest struct {
	Answers map[string]CodingAnswerInput `json:"answers" validate:"required,dive"`
}

// SaveCodingAnswersRequest stores draft answers without reviewing them.
type SaveCodingAnswersRequest struct {
	Answers map[string]CodingAnswerInput `json:"answers" validate:"required,dive"`
}

// CodingAssessmentResponse represents an assessment to API consumers.
type CodingAssessmentResponse struct {
	ID             uint                           `json:"id"`
	UserID         uint                           `json:"user_id"`
	Title          string                         `json:"title"`
	Description    string                         `json:"description"`
	Questions      []models.CodingQuestion        `json:"questions"`
	Answers        map[string]models.CodingAnswer `json:"answers"`
	Reviews        map[string]models.CodingReview `json:"reviews,omitempty"`
	Status         string                         `json:"status"`
	GenerationMode string                         `json:"generation_mode"`
	RepairTier     string                         `json:"repair_tier,omitempty"`
	ReviewMode     string                         `json:"review_mode,omitempty"`
	OverallScore   *int                           `json:"overall_score,omitempty"`
	Notice         string                         `json:"notice,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// CodingAssessmentSummary is the list view of an assessment.
type CodingAssessmentSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	QuestionCount  int       `json:"question_count"`
	AnsweredCount  int       `json:"answered_count"`
	GenerationMode string    `json:"generation_mode"`
	ReviewMode     string    `json:"review_mode,omitempty"`
	OverallScore   *int      `json:"overall_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ResumeUploadResponse describes a stored resume artifact.
type ResumeUploadResponse struct {
	ResumeURL string `json:"resume_url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

// NewCodingAssessmentResponse builds a response DTO from a model.
func NewCodingAssessmentResponse(item models.CodingAssessment) CodingAssessmentResponse {
	answers := item.Answers.Data()
	if answers == nil {
		answers = map[string]models.CodingAnswer{}
	}
	questions := []models.CodingQuestion(item.Questions)
	if questions == nil {
		questions = []models.CodingQuestion{}
	}

	reviews := item.Reviews.Data()
	return CodingAssessmentResponse{
		ID:             item.ID,
		UserID:         item.UserID,
		Title:          item.Title,
		Description:    item.Description,
		Questions:      questions,
		Answers:        answers,
		Reviews:        reviews,
		Status:         item.Status,
		GenerationMode: item.GenerationMode,
		RepairTier:     item.RepairTier,
		ReviewMode:     item.ReviewMode,
		OverallScore:   averageScore(reviews),
		Notice:         CodingAssessmentNotice(item),
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// NewCodingAssessmentSummary builds the list view of an assessment.
func NewCodingAssessmentSummary(item models.CodingAssessment) CodingAssessmentSummary {
	answered := 0
	for _, answer := range item.Answers.Data() {
		if answer.Answer != "" {
			answered++
		}
	}

	return CodingAssessmentSummary{
		ID:             item.ID,
		Title:          item.Title,
		Status:         item.Status,
		QuestionCount:  len(item.Questions),
		AnsweredCount:  answered,
		GenerationMode: item.GenerationMode,
		ReviewMode:     item.ReviewMode,
		OverallScore:   averageScore(item.Reviews.Data()),
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// CodingAssessmentNotice explains degraded content so clients can tell it
// apart from a fully live result. It is empty for live results.
func CodingAssessmentNotice(item models.CodingAssessment) string {
	var notice string
	switch item.GenerationMode {
	case models.ResultModeMock:
		notice = "Questions are sample content: live generation is disabled."
	case models.ResultModeFallback:
		notice = "Question generation was unavailable, so a standard question set was provided instead."
	default:
		if item.RepairTier == assessment.TierSynthesized.String() {
			notice = "The question generator returned an unreadable response, so a general question set was provided instead."
		}
	}

	var review string
	switch item.ReviewMode {
	case models.ResultModeMock:
		review = "Review scores are sample content: live review is disabled."
	case models.ResultModeFallback:
		review = "Automated review was unavailable, so review scores are estimates and not based on your code."
	case models.ResultModePartialFallback:
		fallback := 0
		reviews := item.Reviews.Data()
		for _, r := range reviews {
			if r.Source == models.ResultModeFallback {
				fallback++
			}
		}
		review = fmt.Sprintf("%d of %d reviews could not be generated live and are estimates.", fallback, len(reviews))
	}

	switch {
	case notice == "":
		return review
	case review == "":
		return notice
	default:
		return notice + " " + review
	}
}

func averageScore(reviews map[string]models.CodingReview) *int {
	if len(reviews) == 0 {
		return nil
	}
	total := 0
	for _, review := range reviews {
		total += review.OverallScore
	}
	avg := (total + len(reviews)/2) / len(reviews)
	return &avg
}
