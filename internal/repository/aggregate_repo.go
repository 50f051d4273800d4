package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peerflow-api/internal/models"
)

// AggregateRepository persists and reads the three aggregate views. Writes
// are idempotent upserts keyed as described on the models.
type AggregateRepository interface {
	UpsertByAssignment(ctx context.Context, view *models.AggregateByAssignment) error
	UpsertBySubmission(ctx context.Context, view *models.AggregateBySubmission) error
	UpsertByReview(ctx context.Context, view *models.AggregateByReview) error
	GetByAssignment(ctx context.Context, assignmentID string) (models.AggregateByAssignment, error)
	GetBySubmission(ctx context.Context, submissionID string) (models.AggregateBySubmission, error)
	GetByReview(ctx context.Context, reviewerStudentID, revieweeSubmissionID string) (models.AggregateByReview, error)
	ListReviewsForSubmission(ctx context.Context, revieweeSubmissionID string) ([]models.AggregateByReview, error)
}

type aggregateRepository struct {
	db *gorm.DB
}

// NewAggregateRepository instantiates a GORM-backed aggregate repository.
func NewAggregateRepository(db *gorm.DB) AggregateRepository {
	return &aggregateRepository{db: db}
}

func (r *aggregateRepository) UpsertByAssignment(ctx context.Context, view *models.AggregateByAssignment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall_average_score", "per_criterion_averages", "score_distributions", "updated_at"}),
	}).Create(view).Error
}

func (r *aggregateRepository) UpsertBySubmission(ctx context.Context, view *models.AggregateBySubmission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall_average_score", "number_of_completed_reviews", "number_of_assigned_reviews", "per_criterion_averages", "updated_at"}),
	}).Create(view).Error
}

func (r *aggregateRepository) UpsertByReview(ctx context.Context, view *models.AggregateByReview) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reviewer_student_id"}, {Name: "reviewee_submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall_average_score", "updated_at"}),
	}).Create(view).Error
}

func (r *aggregateRepository) GetByAssignment(ctx context.Context, assignmentID string) (models.AggregateByAssignment, error) {
	var view models.AggregateByAssignment
	if err := r.db.WithContext(ctx).First(&view, "assignment_id = ?", assignmentID).Error; err != nil {
		return models.AggregateByAssignment{}, err
	}

	return view, nil
}

func (r *aggregateRepository) GetBySubmission(ctx context.Context, submissionID string) (models.AggregateBySubmission, error) {
	var view models.AggregateBySubmission
	if err := r.db.WithContext(ctx).First(&view, "submission_id = ?", submissionID).Error; err != nil {
		return models.AggregateBySubmission{}, err
	}

	return view, nil
}

func (r *aggregateRepository) GetByReview(ctx context.Context, reviewerStudentID, revieweeSubmissionID string) (models.AggregateByReview, error) {
	var view models.AggregateByReview
	err := r.db.WithContext(ctx).
		First(&view, "reviewer_student_id = ? AND reviewee_submission_id = ?", reviewerStudentID, revieweeSubmissionID).Error
	if err != nil {
		return models.AggregateByReview{}, err
	}

	return view, nil
}

func (r *aggregateRepository) ListReviewsForSubmission(ctx context.Context, revieweeSubmissionID string) ([]models.AggregateByReview, error) {
	var views []models.AggregateByReview
	err := r.db.WithContext(ctx).
		Where("reviewee_submission_id = ?", revieweeSubmissionID).
		Order("reviewer_student_id ASC").
		Find(&views).Error
	if err != nil {
		return nil, err
	}

	return views, nil
}
