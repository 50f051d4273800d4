package dto

import "github.com/noah-isme/peerflow-api/internal/models"

// AggregateByAssignmentResponse is the assignment-wide statistical view.
type AggregateByAssignmentResponse struct {
	AssignmentID              string                    `json:"assignment_id"`
	OverallAverageScore       float64                   `json:"overall_average_score"`
	PerCriterionAverageScores map[string]float64        `json:"per_criterion_average_scores"`
	ScoreDistributions        map[string]map[string]int `json:"score_distributions"`
}

// AggregateBySubmissionResponse is the per-submission statistical view.
type AggregateBySubmissionResponse struct {
	SubmissionID              string             `json:"submission_id"`
	OverallAverageScore       float64            `json:"overall_average_score"`
	NumberOfCompletedReviews  int                `json:"number_of_completed_reviews"`
	NumberOfAssignedReviews   int                `json:"number_of_assigned_reviews"`
	PerCriterionAverageScores map[string]float64 `json:"per_criterion_average_scores"`
}

// AggregateByReviewResponse is the view of one completed pairing.
type AggregateByReviewResponse struct {
	ReviewerStudentID    string  `json:"reviewer_student_id"`
	RevieweeSubmissionID string  `json:"reviewee_submission_id"`
	OverallAverageScore  float64 `json:"overall_average_score"`
}

// AggregationReportResponse returns the three freshly computed views of one
// aggregation run, regardless of what ended up stored.
type AggregationReportResponse struct {
	AggregatedByAssignment AggregateByAssignmentResponse   `json:"aggregated_by_assignment"`
	AggregatedBySubmission []AggregateBySubmissionResponse `json:"aggregated_by_submission"`
	AggregatedByReview     []AggregateByReviewResponse     `json:"aggregated_by_review"`
}

// NewAggregateByAssignmentResponse converts the stored view into a DTO.
func NewAggregateByAssignmentResponse(model models.AggregateByAssignment) AggregateByAssignmentResponse {
	return AggregateByAssignmentResponse{
		AssignmentID:              model.AssignmentID,
		OverallAverageScore:       model.OverallAverageScore,
		PerCriterionAverageScores: model.PerCriterionAverageScores(),
		ScoreDistributions:        model.ScoreDistributionMaps(),
	}
}

// NewAggregateBySubmissionResponse converts the stored view into a DTO.
func NewAggregateBySubmissionResponse(model models.AggregateBySubmission) AggregateBySubmissionResponse {
	return AggregateBySubmissionResponse{
		SubmissionID:              model.SubmissionID,
		OverallAverageScore:       model.OverallAverageScore,
		NumberOfCompletedReviews:  model.NumberOfCompletedReviews,
		NumberOfAssignedReviews:   model.NumberOfAssignedReviews,
		PerCriterionAverageScores: model.PerCriterionAverageScores(),
	}
}

// NewAggregateByReviewResponse converts the stored view into a DTO.
func NewAggregateByReviewResponse(model models.AggregateByReview) AggregateByReviewResponse {
	return AggregateByReviewResponse{
		ReviewerStudentID:    model.ReviewerStudentID,
		RevieweeSubmissionID: model.RevieweeSubmissionID,
		OverallAverageScore:  model.OverallAverageScore,
	}
}

// NewAggregateByReviewResponseSlice converts a slice of stored review views.
func NewAggregateByReviewResponseSlice(items []models.AggregateByReview) []AggregateByReviewResponse {
	responses := make([]AggregateByReviewResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewAggregateByReviewResponse(item))
	}

	return responses
}
