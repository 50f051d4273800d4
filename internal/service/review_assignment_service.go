package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/models"
	"github.com/noah-isme/peerflow-api/internal/repository"
)

// ReviewAssignmentService exposes peer review assignment use cases.
type ReviewAssignmentService interface {
	Create(ctx context.Context, payload dto.ReviewAssignmentCreateRequest) (dto.ReviewAssignmentResponse, error)
	GetByAssignmentID(ctx context.Context, assignmentID string) (dto.ReviewAssignmentResponse, error)
	List(ctx context.Context) ([]dto.ReviewAssignmentResponse, error)
	ListByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]dto.ReviewAssignmentResponse, error)
	Update(ctx context.Context, id string, payload dto.ReviewAssignmentUpdateRequest) (dto.ReviewAssignmentResponse, error)
}

type reviewAssignmentService struct {
	repo      repository.ReviewAssignmentRepository
	rubrics   repository.RubricRepository
	validator *validator.Validate
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReviewAssignmentService builds a new review assignment service.
func NewReviewAssignmentService(
	repo repository.ReviewAssignmentRepository,
	rubrics repository.RubricRepository,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
) ReviewAssignmentService {
	return &reviewAssignmentService{
		repo:      repo,
		rubrics:   rubrics,
		validator: validate,
		events:    events,
		logger:    logger.With().Str("component", "review_assignment_service").Logger(),
		now:       time.Now,
	}
}

// Create persists the rubric first and the review assignment second. The two
// writes are not transactional: when the pairing validation or the second
// write fails, the freshly created rubric is deleted again so no orphan is
// left behind.
func (s *reviewAssignmentService) Create(ctx context.Context, payload dto.ReviewAssignmentCreateRequest) (dto.ReviewAssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReviewAssignmentResponse{}, err
	}

	deadline, err := time.Parse(time.RFC3339, payload.ReviewDeadline)
	if err != nil {
		return dto.ReviewAssignmentResponse{}, fmt.Errorf("invalid review deadline: %w", err)
	}

	_, err = s.repo.GetByAssignmentID(ctx, payload.AssignmentID)
	if err == nil {
		return dto.ReviewAssignmentResponse{}, ErrReviewAssignmentExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ReviewAssignmentResponse{}, err
	}

	rubric := models.Rubric{ID: uuid.NewString()}
	for i, criterion := range payload.Rubric.Criteria {
		rubric.Criteria = append(rubric.Criteria, models.Criterion{
			Position:    i,
			Title:       criterion.Title,
			Description: criterion.Description,
			MinScore:    criterion.MinScore,
			MaxScore:    criterion.MaxScore,
		})
	}

	if err := s.rubrics.Create(ctx, &rubric); err != nil {
		return dto.ReviewAssignmentResponse{}, fmt.Errorf("create rubric: %w", err)
	}

	if err := ValidatePairings(payload.Pairings, payload.NumberOfReviewersPerSubmission); err != nil {
		s.compensateRubric(ctx, rubric.ID)
		return dto.ReviewAssignmentResponse{}, err
	}

	assignment := models.ReviewAssignment{
		ID:                             uuid.NewString(),
		AssignmentID:                   payload.AssignmentID,
		NumberOfReviewersPerSubmission: payload.NumberOfReviewersPerSubmission,
		ReviewDeadline:                 deadline,
		RubricID:                       rubric.ID,
		ReviewerAssignmentMode:         payload.ReviewerAssignmentMode,
	}
	for _, pairing := range payload.Pairings {
		assignment.Pairings = append(assignment.Pairings, models.Pairing{
			ReviewerStudentID:    pairing.ReviewerStudentID,
			RevieweeSubmissionID: pairing.RevieweeSubmissionID,
			Status:               models.PairingStatusInProgress,
		})
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		s.compensateRubric(ctx, rubric.ID)
		return dto.ReviewAssignmentResponse{}, fmt.Errorf("create review assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.AssignmentID).
		Str("review_assignment_id", assignment.ID).
		Int("pairings", len(assignment.Pairings)).
		Msg("review assignment created")

	response := dto.NewReviewAssignmentResponse(assignment, rubric, s.now())
	if s.events != nil {
		s.events.Publish(ctx, EventReviewCreated, response)
	}

	return response, nil
}

// compensateRubric removes a rubric whose review assignment never made it to
// the store. Failure here only leaves an orphan, so it is logged and
// swallowed.
func (s *reviewAssignmentService) compensateRubric(ctx context.Context, rubricID string) {
	if err := s.rubrics.Delete(ctx, rubricID); err != nil {
		s.logger.Warn().Err(err).Str("rubric_id", rubricID).Msg("failed to delete orphaned rubric")
	}
}

func (s *reviewAssignmentService) GetByAssignmentID(ctx context.Context, assignmentID string) (dto.ReviewAssignmentResponse, error) {
	assignment, err := s.repo.GetByAssignmentID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewAssignmentResponse{}, ErrReviewAssignmentNotFound
		}

		return dto.ReviewAssignmentResponse{}, err
	}

	rubric, err := s.rubrics.GetByID(ctx, assignment.RubricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewAssignmentResponse{}, ErrRubricNotFound
		}

		return dto.ReviewAssignmentResponse{}, err
	}

	return dto.NewReviewAssignmentResponse(assignment, rubric, s.now()), nil
}

func (s *reviewAssignmentService) List(ctx context.Context) ([]dto.ReviewAssignmentResponse, error) {
	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return s.joinRubrics(ctx, assignments)
}

func (s *reviewAssignmentService) ListByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]dto.ReviewAssignmentResponse, error) {
	assignments, err := s.repo.ListByAssignmentIDs(ctx, assignmentIDs)
	if err != nil {
		return nil, err
	}

	return s.joinRubrics(ctx, assignments)
}

// joinRubrics attaches each assignment's rubric. An assignment whose rubric
// is missing is skipped; the integrity violation is logged rather than
// failing the whole listing.
func (s *reviewAssignmentService) joinRubrics(ctx context.Context, assignments []models.ReviewAssignment) ([]dto.ReviewAssignmentResponse, error) {
	reference := s.now()
	responses := make([]dto.ReviewAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		rubric, err := s.rubrics.GetByID(ctx, assignment.RubricID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn().
					Str("review_assignment_id", assignment.ID).
					Str("rubric_id", assignment.RubricID).
					Msg("skipping review assignment with missing rubric")
				continue
			}

			return nil, err
		}

		responses = append(responses, dto.NewReviewAssignmentResponse(assignment, rubric, reference))
	}

	return responses, nil
}

// Update applies only the provided fields. A payload whose values match the
// stored ones is a successful no-op, not an error.
func (s *reviewAssignmentService) Update(ctx context.Context, id string, payload dto.ReviewAssignmentUpdateRequest) (dto.ReviewAssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReviewAssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewAssignmentResponse{}, ErrReviewAssignmentNotFound
		}

		return dto.ReviewAssignmentResponse{}, err
	}

	changed := false
	if payload.AssignmentID != nil && *payload.AssignmentID != assignment.AssignmentID {
		assignment.AssignmentID = *payload.AssignmentID
		changed = true
	}
	if payload.NumberOfReviewersPerSubmission != nil && *payload.NumberOfReviewersPerSubmission != assignment.NumberOfReviewersPerSubmission {
		assignment.NumberOfReviewersPerSubmission = *payload.NumberOfReviewersPerSubmission
		changed = true
	}
	if payload.ReviewDeadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.ReviewDeadline)
		if err != nil {
			return dto.ReviewAssignmentResponse{}, fmt.Errorf("invalid review deadline: %w", err)
		}
		if !deadline.Equal(assignment.ReviewDeadline) {
			assignment.ReviewDeadline = deadline
			changed = true
		}
	}
	if payload.ReviewerAssignmentMode != nil && *payload.ReviewerAssignmentMode != assignment.ReviewerAssignmentMode {
		assignment.ReviewerAssignmentMode = *payload.ReviewerAssignmentMode
		changed = true
	}

	if changed {
		if err := s.repo.Save(ctx, &assignment); err != nil {
			return dto.ReviewAssignmentResponse{}, fmt.Errorf("update review assignment: %w", err)
		}
	}

	// A provided pairing set replaces the stored one wholesale, resetting
	// every pairing to in-progress. The creation-time rules are not applied
	// again.
	if payload.Pairings != nil {
		pairings := make([]models.Pairing, 0, len(payload.Pairings))
		for _, pairing := range payload.Pairings {
			pairings = append(pairings, models.Pairing{
				ReviewerStudentID:    pairing.ReviewerStudentID,
				RevieweeSubmissionID: pairing.RevieweeSubmissionID,
				Status:               models.PairingStatusInProgress,
			})
		}

		if err := s.repo.ReplacePairings(ctx, assignment.ID, pairings); err != nil {
			return dto.ReviewAssignmentResponse{}, fmt.Errorf("replace pairings: %w", err)
		}
	}

	refreshed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ReviewAssignmentResponse{}, err
	}

	rubric, err := s.rubrics.GetByID(ctx, refreshed.RubricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewAssignmentResponse{}, ErrRubricNotFound
		}

		return dto.ReviewAssignmentResponse{}, err
	}

	return dto.NewReviewAssignmentResponse(refreshed, rubric, s.now()), nil
}
