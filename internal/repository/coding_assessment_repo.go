package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// CodingAssessmentPatch lists the mutable columns of an assessment. Nil
// fields are left untouched.
type CodingAssessmentPatch struct {
	Answers    *map[string]models.CodingAnswer
	Reviews    *map[string]models.CodingReview
	Status     *string
	ReviewMode *string
}

// CodingAssessmentRepository persists coding assessments scoped to their owner.
type CodingAssessmentRepository interface {
	Create(ctx context.Context, assessment *models.CodingAssessment) error
	Get(ctx context.Context, userID, id uint) (models.CodingAssessment, error)
	ListForUser(ctx context.Context, userID uint) ([]models.CodingAssessment, error)
	Update(ctx context.Context, userID, id uint, patch CodingAssessmentPatch) (models.CodingAssessment, error)
}

type codingAssessmentRepository struct {
	db *gorm.DB
}

// NewCodingAssessmentRepository constructs a coding assessment repository.
func NewCodingAssessmentRepository(db *gorm.DB) CodingAssessmentRepository {
	return &codingAssessmentRepository{db: db}
}

func (r *codingAssessmentRepository) Create(ctx context.Context, assessment *models.CodingAssessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *codingAssessmentRepository) Get(ctx context.Context, userID, id uint) (models.CodingAssessment, error) {
	var assessment models.CodingAssessment
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&assessment).Error
	if err != nil {
		return models.CodingAssessment{}, err
	}
	return assessment, nil
}

func (r *codingAssessmentRepository) ListForUser(ctx context.Context, userID uint) ([]models.CodingAssessment, error) {
	var assessments []models.CodingAssessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

// Update applies patch to the assessment owned by userID and returns the
// stored row. A missing row yields gorm.ErrRecordNotFound.
func (r *codingAssessmentRepository) Update(ctx context.Context, userID, id uint, patch CodingAssessmentPatch) (models.CodingAssessment, error) {
	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.Answers != nil {
		fields["answers"] = datatypes.NewJSONType(*patch.Answers)
	}
	if patch.Reviews != nil {
		fields["reviews"] = datatypes.NewJSONType(*patch.Reviews)
	}
	if patch.Status != nil {
		fields["status"] = *patch.Status
	}
	if patch.ReviewMode != nil {
		fields["review_mode"] = *patch.ReviewMode
	}

	result := r.db.WithContext(ctx).
		Model(&models.CodingAssessment{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		return models.CodingAssessment{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.CodingAssessment{}, gorm.ErrRecordNotFound
	}

	return r.Get(ctx, userID, id)
}
