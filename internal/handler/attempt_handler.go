package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// AttemptHandler runs quiz attempts for the authenticated user.
type AttemptHandler struct {
	service service.AttemptService
	logger  zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(service service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		service: service,
		logger:  logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register binds the attempt routes.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Post("/", h.start)
	router.Post("/:id/answers", h.answer)
	router.Post("/:id/complete", h.complete)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	var payload dto.AttemptStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	attempt, err := h.service.Start(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.Created(c, attempt, "attempt started")
}

func (h *AttemptHandler) answer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid attempt id", nil)
	}

	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	answer, err := h.service.Answer(requestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, answer, "answer recorded", nil)
}

func (h *AttemptHandler) complete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid attempt id", nil)
	}

	result, err := h.service.Complete(requestContext(c), id, userIDFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, result, "attempt completed", nil)
}
