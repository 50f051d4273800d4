package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/models"
	"github.com/noah-isme/peerflow-api/internal/observability"
	"github.com/noah-isme/peerflow-api/internal/repository"
)

// AggregationService recomputes the three aggregate views from an
// assignment's pairing set and upserts them wholesale. Re-running on an
// unchanged pairing set is idempotent.
type AggregationService interface {
	Aggregate(ctx context.Context, assignmentID string) (dto.AggregationReportResponse, error)
	ComputeAndStore(ctx context.Context, assignmentID string, pairings []models.Pairing) (dto.AggregationReportResponse, error)
}

type aggregationService struct {
	reviews    repository.ReviewAssignmentRepository
	aggregates repository.AggregateRepository
	cache      *redis.Client
	events     EventPublisher
	logger     zerolog.Logger
}

// NewAggregationService builds a new aggregation service.
func NewAggregationService(
	reviews repository.ReviewAssignmentRepository,
	aggregates repository.AggregateRepository,
	cache *redis.Client,
	events EventPublisher,
	logger zerolog.Logger,
) AggregationService {
	return &aggregationService{
		reviews:    reviews,
		aggregates: aggregates,
		cache:      cache,
		events:     events,
		logger:     logger.With().Str("component", "aggregation_service").Logger(),
	}
}

// Aggregate resolves the pairing set for an external assignment id, then
// computes and stores the three views.
func (s *aggregationService) Aggregate(ctx context.Context, assignmentID string) (dto.AggregationReportResponse, error) {
	assignment, err := s.reviews.GetByAssignmentID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AggregationReportResponse{}, ErrReviewAssignmentNotFound
		}

		return dto.AggregationReportResponse{}, err
	}

	report, err := s.ComputeAndStore(ctx, assignment.AssignmentID, assignment.Pairings)
	if err != nil {
		return dto.AggregationReportResponse{}, err
	}

	if s.events != nil {
		s.events.Publish(ctx, EventAggregated, report.AggregatedByAssignment)
	}

	return report, nil
}

// ComputeAndStore runs the aggregation algorithm over the given pairings.
// Only completed pairings contribute scores; in-progress pairings count
// toward assigned-review totals only. The three views are upserted in order
// and the first write failure aborts the remaining ones.
func (s *aggregationService) ComputeAndStore(ctx context.Context, assignmentID string, pairings []models.Pairing) (dto.AggregationReportResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/peerflow-api/internal/service/aggregation")
	ctx, span := tracer.Start(ctx, "aggregation.compute_and_store", trace.WithAttributes(
		attribute.String("aggregation.assignment_id", assignmentID),
		attribute.Int("aggregation.pairing_count", len(pairings)),
	))
	defer span.End()

	report := s.compute(assignmentID, pairings)

	if err := s.store(ctx, report); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store_failed")
		observability.AggregationRuns().WithLabelValues("failure").Inc()
		return dto.AggregationReportResponse{}, err
	}

	s.invalidateCache(ctx, report)
	observability.AggregationRuns().WithLabelValues("success").Inc()

	s.logger.Info().
		Str("assignment_id", assignmentID).
		Int("submissions", len(report.AggregatedBySubmission)).
		Int("completed_reviews", len(report.AggregatedByReview)).
		Msg("aggregation run stored")

	return report, nil
}

type submissionAccumulator struct {
	submissionID   string
	overallSum     float64
	completedCount int
	assignedCount  int
	criterionSums  map[string]float64
	criterionCount map[string]int
}

func (s *aggregationService) compute(assignmentID string, pairings []models.Pairing) dto.AggregationReportResponse {
	byAssignment := dto.AggregateByAssignmentResponse{
		AssignmentID:              assignmentID,
		PerCriterionAverageScores: map[string]float64{},
		ScoreDistributions:        map[string]map[string]int{},
	}

	overallSum := 0.0
	completedCount := 0
	criterionSums := map[string]float64{}
	criterionCounts := map[string]int{}

	submissions := map[string]*submissionAccumulator{}
	submissionOrder := make([]string, 0, len(pairings))
	byReview := make([]dto.AggregateByReviewResponse, 0, len(pairings))

	for _, pairing := range pairings {
		accumulator, ok := submissions[pairing.RevieweeSubmissionID]
		if !ok {
			accumulator = &submissionAccumulator{
				submissionID:   pairing.RevieweeSubmissionID,
				criterionSums:  map[string]float64{},
				criterionCount: map[string]int{},
			}
			submissions[pairing.RevieweeSubmissionID] = accumulator
			submissionOrder = append(submissionOrder, pairing.RevieweeSubmissionID)
		}
		accumulator.assignedCount++

		if !pairing.IsCompleted() {
			continue
		}

		result, ok := pairing.ReviewResult()
		if !ok || len(result.PerCriterionScores) == 0 {
			continue
		}

		overall := pairingOverallScore(result)
		overallSum += overall
		completedCount++

		accumulator.completedCount++
		accumulator.overallSum += overall

		for criterion, entry := range result.PerCriterionScores {
			criterionSums[criterion] += float64(entry.Score)
			criterionCounts[criterion]++

			accumulator.criterionSums[criterion] += float64(entry.Score)
			accumulator.criterionCount[criterion]++

			distribution, ok := byAssignment.ScoreDistributions[criterion]
			if !ok {
				distribution = map[string]int{}
				byAssignment.ScoreDistributions[criterion] = distribution
			}
			distribution[strconv.Itoa(entry.Score)]++
		}

		byReview = append(byReview, dto.AggregateByReviewResponse{
			ReviewerStudentID:    pairing.ReviewerStudentID,
			RevieweeSubmissionID: pairing.RevieweeSubmissionID,
			OverallAverageScore:  overall,
		})
	}

	if completedCount > 0 {
		byAssignment.OverallAverageScore = overallSum / float64(completedCount)
	}
	for criterion, sum := range criterionSums {
		byAssignment.PerCriterionAverageScores[criterion] = sum / float64(criterionCounts[criterion])
	}

	bySubmission := make([]dto.AggregateBySubmissionResponse, 0, len(submissionOrder))
	for _, submissionID := range submissionOrder {
		accumulator := submissions[submissionID]
		view := dto.AggregateBySubmissionResponse{
			SubmissionID:              submissionID,
			NumberOfCompletedReviews:  accumulator.completedCount,
			NumberOfAssignedReviews:   accumulator.assignedCount,
			PerCriterionAverageScores: map[string]float64{},
		}
		if accumulator.completedCount > 0 {
			view.OverallAverageScore = accumulator.overallSum / float64(accumulator.completedCount)
			for criterion, sum := range accumulator.criterionSums {
				view.PerCriterionAverageScores[criterion] = sum / float64(accumulator.criterionCount[criterion])
			}
		}
		bySubmission = append(bySubmission, view)
	}

	return dto.AggregationReportResponse{
		AggregatedByAssignment: byAssignment,
		AggregatedBySubmission: bySubmission,
		AggregatedByReview:     byReview,
	}
}

func pairingOverallScore(result models.ReviewResult) float64 {
	sum := 0.0
	for _, entry := range result.PerCriterionScores {
		sum += float64(entry.Score)
	}
	return sum / float64(len(result.PerCriterionScores))
}

func (s *aggregationService) store(ctx context.Context, report dto.AggregationReportResponse) error {
	byAssignment := models.AggregateByAssignment{
		AssignmentID:        report.AggregatedByAssignment.AssignmentID,
		OverallAverageScore: report.AggregatedByAssignment.OverallAverageScore,
	}
	if err := byAssignment.SetPerCriterionAverages(report.AggregatedByAssignment.PerCriterionAverageScores); err != nil {
		return err
	}
	if err := byAssignment.SetScoreDistributions(report.AggregatedByAssignment.ScoreDistributions); err != nil {
		return err
	}
	if err := s.aggregates.UpsertByAssignment(ctx, &byAssignment); err != nil {
		return fmt.Errorf("store aggregate by assignment: %w", err)
	}

	for _, submission := range report.AggregatedBySubmission {
		view := models.AggregateBySubmission{
			SubmissionID:             submission.SubmissionID,
			OverallAverageScore:      submission.OverallAverageScore,
			NumberOfCompletedReviews: submission.NumberOfCompletedReviews,
			NumberOfAssignedReviews:  submission.NumberOfAssignedReviews,
		}
		if err := view.SetPerCriterionAverages(submission.PerCriterionAverageScores); err != nil {
			return err
		}
		if err := s.aggregates.UpsertBySubmission(ctx, &view); err != nil {
			return fmt.Errorf("store aggregate for submission %s: %w", submission.SubmissionID, err)
		}
	}

	for _, review := range report.AggregatedByReview {
		view := models.AggregateByReview{
			ReviewerStudentID:    review.ReviewerStudentID,
			RevieweeSubmissionID: review.RevieweeSubmissionID,
			OverallAverageScore:  review.OverallAverageScore,
		}
		if err := s.aggregates.UpsertByReview(ctx, &view); err != nil {
			return fmt.Errorf("store aggregate for review %s/%s: %w", review.ReviewerStudentID, review.RevieweeSubmissionID, err)
		}
	}

	return nil
}

// invalidateCache drops any cached reads covering the views this run just
// rewrote. Cache failures are logged, never surfaced.
func (s *aggregationService) invalidateCache(ctx context.Context, report dto.AggregationReportResponse) {
	if s.cache == nil {
		return
	}

	keys := []string{AssignmentCacheKey(report.AggregatedByAssignment.AssignmentID)}
	for _, submission := range report.AggregatedBySubmission {
		keys = append(keys, SubmissionCacheKey(submission.SubmissionID))
	}
	for _, review := range report.AggregatedByReview {
		keys = append(keys, ReviewCacheKey(review.RevieweeSubmissionID, review.ReviewerStudentID))
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate aggregate cache")
	}
}
