package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/models"
	"github.com/noah-isme/peerflow-api/internal/repository"
)

// ReviewResultService handles a reviewer submitting the scored result for
// one pairing.
type ReviewResultService interface {
	Submit(ctx context.Context, payload dto.SubmitResultRequest) (dto.PairingResponse, error)
}

type reviewResultService struct {
	repo      repository.ReviewAssignmentRepository
	rubrics   repository.RubricRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReviewResultService builds a new review result service. Justifications
// are stripped of any markup before storage.
func NewReviewResultService(
	repo repository.ReviewAssignmentRepository,
	rubrics repository.RubricRepository,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
) ReviewResultService {
	return &reviewResultService{
		repo:      repo,
		rubrics:   rubrics,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    events,
		logger:    logger.With().Str("component", "review_result_service").Logger(),
		now:       time.Now,
	}
}

// Submit validates the scored criteria against the rubric and atomically
// completes the matched pairing. The stored result is replaced wholesale on
// resubmission; concurrent submissions for the same pairing resolve
// last-write-wins.
func (s *reviewResultService) Submit(ctx context.Context, payload dto.SubmitResultRequest) (dto.PairingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PairingResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, payload.PeerReviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PairingResponse{}, ErrReviewAssignmentNotFound
		}

		return dto.PairingResponse{}, err
	}

	rubric, err := s.rubrics.GetByID(ctx, assignment.RubricID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PairingResponse{}, ErrRubricNotFound
		}

		return dto.PairingResponse{}, err
	}

	if len(assignment.Pairings) == 0 {
		return dto.PairingResponse{}, ErrNoPairings
	}

	if !pairingExists(assignment.Pairings, payload.ReviewerStudentID, payload.RevieweeSubmissionID) {
		return dto.PairingResponse{}, ErrPairingNotFound
	}

	result := models.ReviewResult{
		PerCriterionScores: make(map[string]models.CriterionScore, len(payload.ReviewResults.PerCriterionScores)),
		ReviewTimestamp:    s.now().UTC(),
	}
	for title, entry := range payload.ReviewResults.PerCriterionScores {
		criterion, ok := rubric.CriterionByTitle(title)
		if !ok {
			return dto.PairingResponse{}, NewValidationError("Criterion '%s' not found in rubric.", title)
		}
		if entry.Score == nil || entry.Justification == nil {
			return dto.PairingResponse{}, NewValidationError("Criterion '%s' must have both 'Score' and 'Justification'.", title)
		}
		if *entry.Score < criterion.MinScore || *entry.Score > criterion.MaxScore {
			return dto.PairingResponse{}, NewValidationError("Score for criterion '%s' is out of bounds.", title)
		}

		result.PerCriterionScores[title] = models.CriterionScore{
			Score:         *entry.Score,
			Justification: s.sanitizer.Sanitize(*entry.Justification),
		}
	}

	pairing := models.Pairing{
		ReviewerStudentID:    payload.ReviewerStudentID,
		RevieweeSubmissionID: payload.RevieweeSubmissionID,
		Status:               models.PairingStatusCompleted,
	}
	if err := pairing.SetReviewResult(result); err != nil {
		return dto.PairingResponse{}, err
	}

	rows, err := s.repo.CompletePairing(ctx, assignment.ID, payload.ReviewerStudentID, payload.RevieweeSubmissionID, pairing.ReviewResults)
	if err != nil {
		return dto.PairingResponse{}, err
	}
	if rows == 0 {
		return dto.PairingResponse{}, ErrResultUpdateFailed
	}

	s.logger.Info().
		Str("review_assignment_id", assignment.ID).
		Str("reviewer_student_id", payload.ReviewerStudentID).
		Str("reviewee_submission_id", payload.RevieweeSubmissionID).
		Msg("peer review result submitted")

	response := dto.NewPairingResponse(pairing)
	if s.events != nil {
		s.events.Publish(ctx, EventResultSubmitted, response)
	}

	return response, nil
}

func pairingExists(pairings []models.Pairing, reviewerStudentID, revieweeSubmissionID string) bool {
	for _, pairing := range pairings {
		if pairing.ReviewerStudentID == reviewerStudentID && pairing.RevieweeSubmissionID == revieweeSubmissionID {
			return true
		}
	}
	return false
}
