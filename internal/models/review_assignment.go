package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Reviewer assignment modes.
const (
	ReviewerAssignmentModeAutomatic = "Automatic"
	ReviewerAssignmentModeManual    = "Manual"
)

// Pairing statuses.
const (
	PairingStatusInProgress = "In Progress"
	PairingStatusCompleted  = "Completed"
)

// Derived review assignment statuses, computed from the deadline and never stored.
const (
	ReviewStatusStarted = "Peer Review Started"
	ReviewStatusClosed  = "Peer Review Closed"
)

// ReviewAssignment owns the peer review lifecycle of one external assignment:
// its pairing set, deadline, reviewer-count policy and rubric.
type ReviewAssignment struct {
	ID                             string    `gorm:"primaryKey;size:36" json:"id"`
	AssignmentID                   string    `gorm:"size:64;not null;uniqueIndex" json:"assignment_id"`
	NumberOfReviewersPerSubmission int       `gorm:"not null" json:"number_of_reviewers_per_submission"`
	ReviewDeadline                 time.Time `gorm:"not null" json:"review_deadline"`
	RubricID                       string    `gorm:"size:36;not null" json:"rubric_id"`
	ReviewerAssignmentMode         string    `gorm:"size:16;not null" json:"reviewer_assignment_mode"`
	Pairings                       []Pairing `gorm:"foreignKey:ReviewAssignmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"pairings"`
	CreatedAt                      time.Time `json:"created_at"`
	UpdatedAt                      time.Time `json:"updated_at"`
}

// DerivedStatus reports whether the review window is still open at the
// reference time.
func (ra ReviewAssignment) DerivedStatus(reference time.Time) string {
	if reference.Before(ra.ReviewDeadline) {
		return ReviewStatusStarted
	}
	return ReviewStatusClosed
}

// Pairing assigns one reviewer to evaluate one submission. The pair
// (reviewer, submission) is unique within a review assignment and is the key
// used by result submission. The reviewee's student id is only checked at
// creation time and never stored.
type Pairing struct {
	ID                   uint           `gorm:"primaryKey" json:"-"`
	ReviewAssignmentID   string         `gorm:"size:36;uniqueIndex:idx_pairing_key" json:"-"`
	ReviewerStudentID    string         `gorm:"size:64;not null;uniqueIndex:idx_pairing_key" json:"reviewer_student_id"`
	RevieweeSubmissionID string         `gorm:"size:64;not null;uniqueIndex:idx_pairing_key" json:"reviewee_submission_id"`
	Status               string         `gorm:"size:16;not null" json:"status"`
	ReviewResults        datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// IsCompleted reports whether the pairing carries a submitted result.
func (p Pairing) IsCompleted() bool {
	return p.Status == PairingStatusCompleted
}

// CriterionScore is one scored rubric criterion inside a review result.
type CriterionScore struct {
	Score         int    `json:"Score"`
	Justification string `json:"Justification"`
}

// ReviewResult is the full scored outcome of one pairing. It is replaced
// wholesale on every submission, never merged.
type ReviewResult struct {
	PerCriterionScores map[string]CriterionScore `json:"PerCriterionScoresAndJustifications"`
	ReviewTimestamp    time.Time                 `json:"ReviewTimestamp"`
}

// SetReviewResult serializes the result into the JSON storage column.
func (p *Pairing) SetReviewResult(result ReviewResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	p.ReviewResults = datatypes.JSON(data)
	return nil
}

// ReviewResult deserializes the stored result. The second return value is
// false for pairings that have not been completed yet.
func (p Pairing) ReviewResult() (ReviewResult, bool) {
	if len(p.ReviewResults) == 0 {
		return ReviewResult{}, false
	}

	var result ReviewResult
	if err := json.Unmarshal(p.ReviewResults, &result); err != nil {
		return ReviewResult{}, false
	}
	return result, true
}
