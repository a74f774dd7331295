package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

const myAttemptsLimit = 50

// AccessHandler exposes assignment and access request endpoints for users and admins.
type AccessHandler struct {
	access   service.AccessService
	attempts service.AttemptService
	logger   zerolog.Logger
}

// NewAccessHandler constructs the handler.
func NewAccessHandler(access service.AccessService, attempts service.AttemptService, logger zerolog.Logger) *AccessHandler {
	return &AccessHandler{
		access:   access,
		attempts: attempts,
		logger:   logger.With().Str("component", "access_handler").Logger(),
	}
}

// RegisterMe binds the caller-scoped /me routes.
func (h *AccessHandler) RegisterMe(router fiber.Router) {
	router.Get("/quizzes", h.myQuizzes)
	router.Get("/assignments", h.myAssignments)
	router.Get("/access-requests", h.myRequests)
	router.Get("/attempts", h.myAttempts)
}

// RegisterRequests binds the user-facing access request routes.
func (h *AccessHandler) RegisterRequests(router fiber.Router) {
	router.Post("/", h.requestAccess)
}

// RegisterAdmin binds the admin assignment and access request routes.
func (h *AccessHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/assignments", h.listAssignments)
	router.Put("/assignments", h.setAssignment)
	router.Put("/assignments/bulk", h.bulkSetAssignments)
	router.Get("/users/:id/assignments", h.userAssignments)
	router.Get("/access-requests", h.listRequests)
	router.Put("/access-requests/:id", h.resolveRequest)
}

func (h *AccessHandler) myQuizzes(c *fiber.Ctx) error {
	quizzes, err := h.access.AccessibleQuizzes(requestContext(c), userIDFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, quizzes, "quizzes", nil)
}

func (h *AccessHandler) myAssignments(c *fiber.Ctx) error {
	assignments, err := h.access.AssignmentsForUser(requestContext(c), userIDFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, assignments, "assignments", nil)
}

func (h *AccessHandler) myRequests(c *fiber.Ctx) error {
	req := dto.AccessRequestListRequest{
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
		UserID: userIDFromContext(c),
	}
	requests, err := h.access.AccessRequests(requestContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, requests, "access requests", nil)
}

func (h *AccessHandler) myAttempts(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid limit", nil)
	}
	if limit <= 0 || limit > myAttemptsLimit {
		limit = myAttemptsLimit
	}

	attempts, err := h.attempts.ListForUser(requestContext(c), userIDFromContext(c), limit)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, attempts, "attempts", nil)
}

func (h *AccessHandler) requestAccess(c *fiber.Ctx) error {
	var payload dto.AccessRequestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	request, err := h.access.RequestAccess(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.Created(c, request, "access request submitted")
}

func (h *AccessHandler) listAssignments(c *fiber.Ctx) error {
	assignments, err := h.access.AllAssignments(requestContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, assignments, "assignments", nil)
}

func (h *AccessHandler) userAssignments(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}

	assignments, err := h.access.AssignmentsForUser(requestContext(c), userID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, assignments, "assignments", nil)
}

func (h *AccessHandler) setAssignment(c *fiber.Ctx) error {
	var payload dto.SetAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	assignment, err := h.access.SetAssignment(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, assignment, "assignment updated", nil)
}

func (h *AccessHandler) bulkSetAssignments(c *fiber.Ctx) error {
	var payload dto.BulkAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	assignments, err := h.access.BulkSetAssignments(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, assignments, "assignments updated", nil)
}

func (h *AccessHandler) listRequests(c *fiber.Ctx) error {
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}
	quizID, err := parseQueryUint(c, "quiz_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	req := dto.AccessRequestListRequest{
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
		UserID: userID,
		QuizID: quizID,
	}
	requests, err := h.access.AccessRequests(requestContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, requests, "access requests", nil)
}

func (h *AccessHandler) resolveRequest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid access request id", nil)
	}

	var payload dto.ResolveAccessRequestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	request, err := h.access.ResolveAccessRequest(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, request, "access request "+request.Status, nil)
}
