package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/models"
)

// RubricRepository defines persistence operations for rubrics and their
// criteria.
type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id string) (models.Rubric, error)
	Delete(ctx context.Context, id string) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository instantiates a GORM-backed rubric repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Create(rubric).Error
}

func (r *rubricRepository) GetByID(ctx context.Context, id string) (models.Rubric, error) {
	var rubric models.Rubric
	err := r.db.WithContext(ctx).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&rubric, "id = ?", id).Error
	if err != nil {
		return models.Rubric{}, err
	}

	return rubric, nil
}

func (r *rubricRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Rubric{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
