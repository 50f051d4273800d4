package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerflow-api/internal/dto"
	"github.com/noah-isme/peerflow-api/internal/service"
	"github.com/noah-isme/peerflow-api/internal/utils"
)

// ReviewAssignmentHandler wires the peer review assignment HTTP routes.
type ReviewAssignmentHandler struct {
	service   service.ReviewAssignmentService
	results   service.ReviewResultService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewAssignmentHandler constructs the handler.
func NewReviewAssignmentHandler(
	svc service.ReviewAssignmentService,
	results service.ReviewResultService,
	validate *validator.Validate,
	logger zerolog.Logger,
) *ReviewAssignmentHandler {
	return &ReviewAssignmentHandler{
		service:   svc,
		results:   results,
		validator: validate,
		logger:    logger.With().Str("component", "review_assignment_handler").Logger(),
	}
}

// Register attaches review assignment endpoints to the router group.
func (h *ReviewAssignmentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Post("/batch", h.batch)
	router.Post("/submit", h.submit)
	router.Get("/assignment/:assignmentId", h.getByAssignment)
	router.Patch("/:id", h.update)
}

func (h *ReviewAssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.service.List(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "peer review assignments retrieved", assignments)
}

func (h *ReviewAssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.ReviewAssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrReviewAssignmentExists) {
			return utils.SendError(c, fiber.StatusBadRequest, "Peer Review Assignment with this AssignmentID already exists")
		}
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "peer review assignment created", assignment)
}

func (h *ReviewAssignmentHandler) batch(c *fiber.Ctx) error {
	var payload dto.BatchRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignments, err := h.service.ListByAssignmentIDs(c.Context(), payload.AssignmentIDs)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "peer review assignments retrieved", assignments)
}

func (h *ReviewAssignmentHandler) getByAssignment(c *fiber.Ctx) error {
	assignment, err := h.service.GetByAssignmentID(c.Context(), c.Params("assignmentId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Peer Review Assignment not found")
		case errors.Is(err, service.ErrRubricNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Rubric not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "peer review assignment retrieved", assignment)
}

func (h *ReviewAssignmentHandler) update(c *fiber.Ctx) error {
	var payload dto.ReviewAssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "peer review assignment updated", assignment)
}

func (h *ReviewAssignmentHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitResultRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pairing, err := h.results.Submit(c.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Peer review not found.")
		case errors.Is(err, service.ErrRubricNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Rubric not found.")
		case errors.Is(err, service.ErrNoPairings):
			return utils.SendError(c, fiber.StatusNotFound, "No peer review pairings found.")
		case errors.Is(err, service.ErrPairingNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Peer review pairing not found.")
		case errors.Is(err, service.ErrResultUpdateFailed):
			return utils.SendError(c, fiber.StatusInternalServerError, "Failed to update peer review result.")
		}
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "Peer review result submitted successfully.", pairing)
}

func (h *ReviewAssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationError *service.ValidationError
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrReviewAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Peer review not found.")
	case errors.Is(err, service.ErrRubricNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Rubric not found.")
	case errors.As(err, &validationError):
		return utils.SendError(c, fiber.StatusBadRequest, validationError.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *ReviewAssignmentHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
