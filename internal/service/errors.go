package service

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the review services. Handlers translate these
// into stable HTTP responses.
var (
	// ErrReviewAssignmentExists indicates a peer review assignment already exists for the assignment id.
	ErrReviewAssignmentExists = errors.New("peer review assignment with this assignment id already exists")
	// ErrReviewAssignmentNotFound indicates the peer review assignment does not exist.
	ErrReviewAssignmentNotFound = errors.New("peer review assignment not found")
	// ErrRubricNotFound indicates the rubric referenced by a review assignment is missing.
	ErrRubricNotFound = errors.New("rubric not found")
	// ErrNoPairings indicates the review assignment has an empty pairing set.
	ErrNoPairings = errors.New("no peer review pairings found")
	// ErrPairingNotFound indicates no pairing matches the (reviewer, submission) key.
	ErrPairingNotFound = errors.New("peer review pairing not found")
	// ErrResultUpdateFailed indicates the store did not acknowledge the pairing update.
	ErrResultUpdateFailed = errors.New("failed to update peer review result")
	// ErrAggregateAssignmentNotFound indicates no by-assignment view exists.
	ErrAggregateAssignmentNotFound = errors.New("aggregated assignment results not found")
	// ErrAggregateSubmissionNotFound indicates no by-submission view exists.
	ErrAggregateSubmissionNotFound = errors.New("aggregated submission results not found")
	// ErrAggregateReviewNotFound indicates no by-review row exists for the composite key.
	ErrAggregateReviewNotFound = errors.New("review not found")
	// ErrNoReviewsForSubmission indicates a submission has no completed reviews at all.
	ErrNoReviewsForSubmission = errors.New("no reviews found for this submission")
)

// ValidationError is a rule violation carrying a caller-facing message, such
// as a pairing-count mismatch or an out-of-bounds score.
type ValidationError struct {
	message string
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.message
}
