package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerflow-api/internal/service"
	"github.com/noah-isme/peerflow-api/internal/utils"
)

// AggregationHandler wires the review processing HTTP routes: the
// aggregation trigger and the three read-only aggregate lookups.
type AggregationHandler struct {
	aggregation service.AggregationService
	queries     service.AggregateQueryService
	logger      zerolog.Logger
}

// NewAggregationHandler constructs the handler.
func NewAggregationHandler(aggregation service.AggregationService, queries service.AggregateQueryService, logger zerolog.Logger) *AggregationHandler {
	return &AggregationHandler{
		aggregation: aggregation,
		queries:     queries,
		logger:      logger.With().Str("component", "aggregation_handler").Logger(),
	}
}

// Register attaches processing endpoints to the router group.
func (h *AggregationHandler) Register(router fiber.Router) {
	router.Post("/calculate-statistics/:assignmentId", h.calculate)
	router.Get("/aggregated-by-assignment/:assignmentId", h.getByAssignment)
	router.Get("/aggregated-by-submission/:submissionId", h.getBySubmission)
	router.Get("/aggregated-by-review/:submissionId", h.getByReview)
}

func (h *AggregationHandler) calculate(c *fiber.Ctx) error {
	report, err := h.aggregation.Aggregate(c.Context(), c.Params("assignmentId"))
	if err != nil {
		if errors.Is(err, service.ErrReviewAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "Peer Review Assignment not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "Statistics calculated and stored successfully.", report)
}

func (h *AggregationHandler) getByAssignment(c *fiber.Ctx) error {
	view, err := h.queries.GetByAssignment(c.Context(), c.Params("assignmentId"))
	if err != nil {
		if errors.Is(err, service.ErrAggregateAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "Assignment not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "aggregated assignment results retrieved", view)
}

func (h *AggregationHandler) getBySubmission(c *fiber.Ctx) error {
	view, err := h.queries.GetBySubmission(c.Context(), c.Params("submissionId"))
	if err != nil {
		if errors.Is(err, service.ErrAggregateSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "Submission not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "aggregated submission results retrieved", view)
}

func (h *AggregationHandler) getByReview(c *fiber.Ctx) error {
	views, err := h.queries.GetByReview(c.Context(), c.Params("submissionId"), c.Query("reviewer_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAggregateReviewNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Review not found")
		case errors.Is(err, service.ErrNoReviewsForSubmission):
			return utils.SendError(c, fiber.StatusNotFound, "No reviews found for this submission")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "aggregated review results retrieved", views)
}

func (h *AggregationHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
