package service

import "github.com/noah-isme/peerflow-api/internal/dto"

// ValidatePairings enforces the pairing rules for a review assignment
// before anything is persisted. Rules are checked in order and the first
// violation wins:
//
//  1. the reviewer count per submission must be at least 1
//  2. the pairing set must not be empty
//  3. no submission may be reviewed by its own author
//  4. every submission must have exactly the configured number of reviewers
//  5. no (reviewer, submission) pair may appear twice
func ValidatePairings(pairings []dto.PairingRequest, reviewersPerSubmission int) error {
	if reviewersPerSubmission <= 0 {
		return NewValidationError("Number of reviewers per submission must be greater than 0.")
	}
	if len(pairings) == 0 {
		return NewValidationError("Peer review pairings must not be empty.")
	}

	type pairingKey struct {
		reviewer   string
		submission string
	}

	counts := make(map[string]int, len(pairings))
	order := make([]string, 0, len(pairings))
	seen := make(map[pairingKey]struct{}, len(pairings))

	for _, pairing := range pairings {
		if pairing.ReviewerStudentID == pairing.RevieweeStudentID {
			return NewValidationError("Submission %s cannot be reviewed by itself.", pairing.RevieweeSubmissionID)
		}
		if _, ok := counts[pairing.RevieweeSubmissionID]; !ok {
			order = append(order, pairing.RevieweeSubmissionID)
		}
		counts[pairing.RevieweeSubmissionID]++

		key := pairingKey{reviewer: pairing.ReviewerStudentID, submission: pairing.RevieweeSubmissionID}
		if _, dup := seen[key]; dup {
			return NewValidationError("Duplicate pairing for reviewer %s and submission %s.", pairing.ReviewerStudentID, pairing.RevieweeSubmissionID)
		}
		seen[key] = struct{}{}
	}

	for _, submissionID := range order {
		if counts[submissionID] != reviewersPerSubmission {
			return NewValidationError("Submission %s must have exactly %d reviewers, got %d.", submissionID, reviewersPerSubmission, counts[submissionID])
		}
	}
	return nil
}
