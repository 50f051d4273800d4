package dto

import (
	"time"

	"github.com/noah-isme/peerflow-api/internal/models"
)

// CriterionRequest describes one rubric criterion in a creation payload.
type CriterionRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	MinScore    int    `json:"min_score"`
	MaxScore    int    `json:"max_score" validate:"gtefield=MinScore"`
}

// RubricRequest describes the rubric bound to a new review assignment.
type RubricRequest struct {
	Criteria []CriterionRequest `json:"criteria" validate:"required,min=1,dive"`
}

// PairingRequest describes one reviewer/submission pairing at creation time.
// The reviewee's student id is only used by the self-review check and is not
// persisted.
type PairingRequest struct {
	ReviewerStudentID    string `json:"reviewer_student_id" validate:"required"`
	RevieweeSubmissionID string `json:"reviewee_submission_id" validate:"required"`
	RevieweeStudentID    string `json:"reviewee_student_id" validate:"required"`
}

// ReviewAssignmentCreateRequest is the payload for creating a peer review
// assignment together with its rubric and full pairing set.
type ReviewAssignmentCreateRequest struct {
	AssignmentID                   string           `json:"assignment_id" validate:"required"`
	NumberOfReviewersPerSubmission int              `json:"number_of_reviewers_per_submission"`
	ReviewDeadline                 string           `json:"review_deadline" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	ReviewerAssignmentMode         string           `json:"reviewer_assignment_mode" validate:"required,oneof=Automatic Manual"`
	Pairings                       []PairingRequest `json:"pairings"`
	Rubric                         RubricRequest    `json:"rubric" validate:"required"`
}

// ReviewAssignmentUpdateRequest is the partial-update payload. Unset fields
// are left untouched. A provided pairing set replaces the stored one
// wholesale and is not run through the creation-time pairing rules again.
type ReviewAssignmentUpdateRequest struct {
	AssignmentID                   *string          `json:"assignment_id" validate:"omitempty,min=1"`
	NumberOfReviewersPerSubmission *int             `json:"number_of_reviewers_per_submission" validate:"omitempty,min=1"`
	ReviewDeadline                 *string          `json:"review_deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ReviewerAssignmentMode         *string          `json:"reviewer_assignment_mode" validate:"omitempty,oneof=Automatic Manual"`
	Pairings                       []PairingRequest `json:"pairings" validate:"omitempty,min=1,dive"`
}

// BatchRequest filters the list endpoint by external assignment ids.
type BatchRequest struct {
	AssignmentIDs []string `json:"assignment_ids" validate:"required,min=1"`
}

// CriterionResponse is the serialized rubric criterion.
type CriterionResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MinScore    int    `json:"min_score"`
	MaxScore    int    `json:"max_score"`
}

// RubricResponse is the serialized rubric.
type RubricResponse struct {
	ID       string              `json:"id"`
	Criteria []CriterionResponse `json:"criteria"`
}

// PairingResponse is the serialized pairing including any submitted result.
type PairingResponse struct {
	ReviewerStudentID    string                `json:"reviewer_student_id"`
	RevieweeSubmissionID string                `json:"reviewee_submission_id"`
	Status               string                `json:"status"`
	ReviewResults        *ReviewResultResponse `json:"review_results,omitempty"`
}

// ReviewResultResponse is the serialized review result of a completed pairing.
type ReviewResultResponse struct {
	PerCriterionScores map[string]CriterionScoreResponse `json:"per_criterion_scores_and_justifications"`
	ReviewTimestamp    time.Time                         `json:"review_timestamp"`
}

// CriterionScoreResponse is one scored criterion inside a review result.
type CriterionScoreResponse struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// ReviewAssignmentResponse is the serialized review assignment joined with
// its rubric. Status is derived from the deadline, never stored.
type ReviewAssignmentResponse struct {
	ID                             string            `json:"id"`
	AssignmentID                   string            `json:"assignment_id"`
	NumberOfReviewersPerSubmission int               `json:"number_of_reviewers_per_submission"`
	ReviewDeadline                 time.Time         `json:"review_deadline"`
	ReviewerAssignmentMode         string            `json:"reviewer_assignment_mode"`
	Status                         string            `json:"status"`
	Pairings                       []PairingResponse `json:"pairings"`
	Rubric                         RubricResponse    `json:"rubric"`
	CreatedAt                      time.Time         `json:"created_at"`
	UpdatedAt                      time.Time         `json:"updated_at"`
}

// NewRubricResponse converts a rubric model into a DTO, preserving criterion
// order.
func NewRubricResponse(rubric models.Rubric) RubricResponse {
	criteria := make([]CriterionResponse, 0, len(rubric.Criteria))
	for _, criterion := range rubric.Criteria {
		criteria = append(criteria, CriterionResponse{
			Title:       criterion.Title,
			Description: criterion.Description,
			MinScore:    criterion.MinScore,
			MaxScore:    criterion.MaxScore,
		})
	}

	return RubricResponse{ID: rubric.ID, Criteria: criteria}
}

// NewPairingResponse converts a pairing model into a DTO.
func NewPairingResponse(pairing models.Pairing) PairingResponse {
	response := PairingResponse{
		ReviewerStudentID:    pairing.ReviewerStudentID,
		RevieweeSubmissionID: pairing.RevieweeSubmissionID,
		Status:               pairing.Status,
	}

	if result, ok := pairing.ReviewResult(); ok {
		response.ReviewResults = newReviewResultResponse(result)
	}

	return response
}

func newReviewResultResponse(result models.ReviewResult) *ReviewResultResponse {
	scores := make(map[string]CriterionScoreResponse, len(result.PerCriterionScores))
	for title, entry := range result.PerCriterionScores {
		scores[title] = CriterionScoreResponse{Score: entry.Score, Justification: entry.Justification}
	}

	return &ReviewResultResponse{PerCriterionScores: scores, ReviewTimestamp: result.ReviewTimestamp}
}

// NewReviewAssignmentResponse joins a review assignment with its rubric and
// computes the derived status at the reference time.
func NewReviewAssignmentResponse(assignment models.ReviewAssignment, rubric models.Rubric, reference time.Time) ReviewAssignmentResponse {
	pairings := make([]PairingResponse, 0, len(assignment.Pairings))
	for _, pairing := range assignment.Pairings {
		pairings = append(pairings, NewPairingResponse(pairing))
	}

	return ReviewAssignmentResponse{
		ID:                             assignment.ID,
		AssignmentID:                   assignment.AssignmentID,
		NumberOfReviewersPerSubmission: assignment.NumberOfReviewersPerSubmission,
		ReviewDeadline:                 assignment.ReviewDeadline,
		ReviewerAssignmentMode:         assignment.ReviewerAssignmentMode,
		Status:                         assignment.DerivedStatus(reference),
		Pairings:                       pairings,
		Rubric:                         NewRubricResponse(rubric),
		CreatedAt:                      assignment.CreatedAt,
		UpdatedAt:                      assignment.UpdatedAt,
	}
}
