package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	UpdateResume(ctx context.Context, id uint, url, fileName string) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) UpdateResume(ctx context.Context, id uint, url, fileName string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resume_url":       url,
			"resume_file_name": fileName,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
