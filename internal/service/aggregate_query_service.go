package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/repository"
)

// Cache keys for the aggregate read paths. Aggregation runs delete these
// after rewriting the underlying views.
func AssignmentCacheKey(assignmentID string) string {
	return "aggregates:assignment:" + assignmentID
}

func SubmissionCacheKey(submissionID string) string {
	return "aggregates:submission:" + submissionID
}

func ReviewCacheKey(revieweeSubmissionID, reviewerStudentID string) string {
	return "aggregates:review:" + revieweeSubmissionID + ":" + reviewerStudentID
}

// AggregateQueryService serves read-only lookups over the stored aggregate
// views.
type AggregateQueryService interface {
	GetByAssignment(ctx context.Context, assignmentID string) (dto.AggregateByAssignmentResponse, error)
	GetBySubmission(ctx context.Context, submissionID string) (dto.AggregateBySubmissionResponse, error)
	GetByReview(ctx context.Context, submissionID, reviewerID string) ([]dto.AggregateByReviewResponse, error)
}

type aggregateQueryService struct {
	repo     repository.AggregateRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewAggregateQueryService builds a new aggregate query service. The cache
// client may be nil; lookups then always hit the store.
func NewAggregateQueryService(repo repository.AggregateRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AggregateQueryService {
	return &aggregateQueryService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "aggregate_query_service").Logger(),
	}
}

func (s *aggregateQueryService) GetByAssignment(ctx context.Context, assignmentID string) (dto.AggregateByAssignmentResponse, error) {
	cacheKey := AssignmentCacheKey(assignmentID)

	var cached dto.AggregateByAssignmentResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	view, err := s.repo.GetByAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AggregateByAssignmentResponse{}, ErrAggregateAssignmentNotFound
		}

		return dto.AggregateByAssignmentResponse{}, err
	}

	response := dto.NewAggregateByAssignmentResponse(view)
	s.writeCache(ctx, cacheKey, response)

	return response, nil
}

func (s *aggregateQueryService) GetBySubmission(ctx context.Context, submissionID string) (dto.AggregateBySubmissionResponse, error) {
	cacheKey := SubmissionCacheKey(submissionID)

	var cached dto.AggregateBySubmissionResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	view, err := s.repo.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AggregateBySubmissionResponse{}, ErrAggregateSubmissionNotFound
		}

		return dto.AggregateBySubmissionResponse{}, err
	}

	response := dto.NewAggregateBySubmissionResponse(view)
	s.writeCache(ctx, cacheKey, response)

	return response, nil
}

// GetByReview returns the single row for (reviewer, submission) when a
// reviewer id is given, otherwise every stored review row for the
// submission. Both shapes come back as a slice.
func (s *aggregateQueryService) GetByReview(ctx context.Context, submissionID, reviewerID string) ([]dto.AggregateByReviewResponse, error) {
	if reviewerID == "" {
		views, err := s.repo.ListReviewsForSubmission(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		if len(views) == 0 {
			return nil, ErrNoReviewsForSubmission
		}

		return dto.NewAggregateByReviewResponseSlice(views), nil
	}

	cacheKey := ReviewCacheKey(submissionID, reviewerID)

	var cached dto.AggregateByReviewResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return []dto.AggregateByReviewResponse{cached}, nil
	}

	view, err := s.repo.GetByReview(ctx, reviewerID, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAggregateReviewNotFound
		}

		return nil, err
	}

	response := dto.NewAggregateByReviewResponse(view)
	s.writeCache(ctx, cacheKey, response)

	return []dto.AggregateByReviewResponse{response}, nil
}

func (s *aggregateQueryService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read aggregate cache")
		}
		return false
	}

	return json.Unmarshal([]byte(cached), target) == nil
}

func (s *aggregateQueryService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store aggregate cache")
	}
}
