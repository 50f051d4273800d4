package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AggregateByAssignment is the assignment-wide statistical view over all
// completed pairings. Recomputed wholesale on every aggregation run.
type AggregateByAssignment struct {
	AssignmentID         string         `gorm:"primaryKey;size:64" json:"assignment_id"`
	OverallAverageScore  float64        `gorm:"not null" json:"overall_average_score"`
	PerCriterionAverages datatypes.JSON `gorm:"type:json" json:"-"`
	ScoreDistributions   datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// AggregateBySubmission is the per-submission statistical view. Assigned
// counts include in-progress pairings; averages cover completed ones only.
type AggregateBySubmission struct {
	SubmissionID             string         `gorm:"primaryKey;size:64" json:"submission_id"`
	OverallAverageScore      float64        `gorm:"not null" json:"overall_average_score"`
	NumberOfCompletedReviews int            `gorm:"not null" json:"number_of_completed_reviews"`
	NumberOfAssignedReviews  int            `gorm:"not null" json:"number_of_assigned_reviews"`
	PerCriterionAverages     datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// AggregateByReview is one row per completed pairing; incomplete pairings
// produce no row.
type AggregateByReview struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	ReviewerStudentID    string    `gorm:"size:64;not null;uniqueIndex:idx_aggregate_review_key" json:"reviewer_student_id"`
	RevieweeSubmissionID string    `gorm:"size:64;not null;uniqueIndex:idx_aggregate_review_key" json:"reviewee_submission_id"`
	OverallAverageScore  float64   `gorm:"not null" json:"overall_average_score"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// SetPerCriterionAverages stores the criterion averages map as JSON.
func (a *AggregateByAssignment) SetPerCriterionAverages(averages map[string]float64) error {
	return marshalJSONColumn(&a.PerCriterionAverages, averages)
}

// PerCriterionAverageScores decodes the stored criterion averages map.
func (a AggregateByAssignment) PerCriterionAverageScores() map[string]float64 {
	out := map[string]float64{}
	unmarshalJSONColumn(a.PerCriterionAverages, &out)
	return out
}

// SetScoreDistributions stores the per-criterion score histograms as JSON.
func (a *AggregateByAssignment) SetScoreDistributions(distributions map[string]map[string]int) error {
	return marshalJSONColumn(&a.ScoreDistributions, distributions)
}

// ScoreDistributionMaps decodes the stored per-criterion score histograms.
func (a AggregateByAssignment) ScoreDistributionMaps() map[string]map[string]int {
	out := map[string]map[string]int{}
	unmarshalJSONColumn(a.ScoreDistributions, &out)
	return out
}

// SetPerCriterionAverages stores the criterion averages map as JSON.
func (a *AggregateBySubmission) SetPerCriterionAverages(averages map[string]float64) error {
	return marshalJSONColumn(&a.PerCriterionAverages, averages)
}

// PerCriterionAverageScores decodes the stored criterion averages map.
func (a AggregateBySubmission) PerCriterionAverageScores() map[string]float64 {
	out := map[string]float64{}
	unmarshalJSONColumn(a.PerCriterionAverages, &out)
	return out
}

func marshalJSONColumn(column *datatypes.JSON, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	*column = datatypes.JSON(data)
	return nil
}

func unmarshalJSONColumn(column datatypes.JSON, target interface{}) {
	if len(column) == 0 {
		return
	}
	_ = json.Unmarshal(column, target)
}
