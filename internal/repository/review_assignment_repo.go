package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/models"
)

// ReviewAssignmentRepository defines persistence operations for peer review
// assignments and their pairing sets.
type ReviewAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.ReviewAssignment) error
	GetByID(ctx context.Context, id string) (models.ReviewAssignment, error)
	GetByAssignmentID(ctx context.Context, assignmentID string) (models.ReviewAssignment, error)
	List(ctx context.Context) ([]models.ReviewAssignment, error)
	ListByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]models.ReviewAssignment, error)
	Save(ctx context.Context, assignment *models.ReviewAssignment) error
	ReplacePairings(ctx context.Context, reviewAssignmentID string, pairings []models.Pairing) error
	CompletePairing(ctx context.Context, reviewAssignmentID, reviewerStudentID, revieweeSubmissionID string, results datatypes.JSON) (int64, error)
}

type reviewAssignmentRepository struct {
	db *gorm.DB
}

// NewReviewAssignmentRepository instantiates a GORM-backed repository.
func NewReviewAssignmentRepository(db *gorm.DB) ReviewAssignmentRepository {
	return &reviewAssignmentRepository{db: db}
}

func withPairings(db *gorm.DB) *gorm.DB {
	return db.Preload("Pairings", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

func (r *reviewAssignmentRepository) Create(ctx context.Context, assignment *models.ReviewAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *reviewAssignmentRepository) GetByID(ctx context.Context, id string) (models.ReviewAssignment, error) {
	var assignment models.ReviewAssignment
	if err := withPairings(r.db.WithContext(ctx)).First(&assignment, "id = ?", id).Error; err != nil {
		return models.ReviewAssignment{}, err
	}

	return assignment, nil
}

func (r *reviewAssignmentRepository) GetByAssignmentID(ctx context.Context, assignmentID string) (models.ReviewAssignment, error) {
	var assignment models.ReviewAssignment
	if err := withPairings(r.db.WithContext(ctx)).First(&assignment, "assignment_id = ?", assignmentID).Error; err != nil {
		return models.ReviewAssignment{}, err
	}

	return assignment, nil
}

func (r *reviewAssignmentRepository) List(ctx context.Context) ([]models.ReviewAssignment, error) {
	var assignments []models.ReviewAssignment
	if err := withPairings(r.db.WithContext(ctx)).Order("created_at ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *reviewAssignmentRepository) ListByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]models.ReviewAssignment, error) {
	var assignments []models.ReviewAssignment
	err := withPairings(r.db.WithContext(ctx)).
		Where("assignment_id IN ?", assignmentIDs).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *reviewAssignmentRepository) Save(ctx context.Context, assignment *models.ReviewAssignment) error {
	return r.db.WithContext(ctx).Omit("Pairings").Save(assignment).Error
}

// ReplacePairings swaps an assignment's pairing set wholesale. Existing rows,
// including any submitted results, are discarded.
func (r *reviewAssignmentRepository) ReplacePairings(ctx context.Context, reviewAssignmentID string, pairings []models.Pairing) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_assignment_id = ?", reviewAssignmentID).Delete(&models.Pairing{}).Error; err != nil {
			return err
		}

		if len(pairings) == 0 {
			return nil
		}

		for i := range pairings {
			pairings[i].ID = 0
			pairings[i].ReviewAssignmentID = reviewAssignmentID
		}

		return tx.Create(&pairings).Error
	})
}

// CompletePairing atomically writes the review result and flips the status of
// the single pairing row matching the composite key. The returned count lets
// the caller distinguish a missing pairing from a successful write; a
// concurrent submission for the same pairing resolves last-write-wins.
func (r *reviewAssignmentRepository) CompletePairing(ctx context.Context, reviewAssignmentID, reviewerStudentID, revieweeSubmissionID string, results datatypes.JSON) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Pairing{}).
		Where("review_assignment_id = ? AND reviewer_student_id = ? AND reviewee_submission_id = ?",
			reviewAssignmentID, reviewerStudentID, revieweeSubmissionID).
		Updates(map[string]interface{}{
			"status":         models.PairingStatusCompleted,
			"review_results": results,
		})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
