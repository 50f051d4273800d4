package dto

// CriterionScoreRequest carries the score and justification for one rubric
// criterion. Pointer fields distinguish "absent" from zero values so the
// both-fields-required rule can be enforced per criterion.
type CriterionScoreRequest struct {
	Score         *int    `json:"score"`
	Justification *string `json:"justification"`
}

// ReviewResultRequest is the scored outcome a reviewer submits for one
// pairing.
type ReviewResultRequest struct {
	PerCriterionScores map[string]CriterionScoreRequest `json:"per_criterion_scores_and_justifications" validate:"required,min=1"`
}

// SubmitResultRequest submits one reviewer's result for one pairing of a
// peer review assignment.
type SubmitResultRequest struct {
	PeerReviewID         string              `json:"peer_review_id" validate:"required"`
	ReviewerStudentID    string              `json:"reviewer_student_id" validate:"required"`
	RevieweeSubmissionID string              `json:"reviewee_submission_id" validate:"required"`
	ReviewResults        ReviewResultRequest `json:"review_results" validate:"required"`
}
