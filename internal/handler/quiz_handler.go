package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// QuizHandler exposes quiz and question management plus the caller's access view.
type QuizHandler struct {
	quizzes service.QuizService
	access  service.AccessService
	logger  zerolog.Logger
}

// NewQuizHandler constructs the handler.
func NewQuizHandler(quizzes service.QuizService, access service.AccessService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes: quizzes,
		access:  access,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register binds the /quizzes routes.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/access", h.accessState)
	router.Get("/:id/questions", h.questions)
	router.Post("/:id/questions", h.addQuestion)
}

// RegisterQuestions binds the /questions routes addressed by question id.
func (h *QuizHandler) RegisterQuestions(router fiber.Router) {
	router.Put("/:id", h.updateQuestion)
	router.Delete("/:id", h.deleteQuestion)
}

func (h *QuizHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := paginationFromQuery(c, 20, 100)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	isPublic, err := parseQueryBool(c, "is_public")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid is_public", nil)
	}
	mine, err := parseQueryBool(c, "mine")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid mine", nil)
	}

	req := dto.QuizListRequest{
		Search:   strings.TrimSpace(c.Query("search")),
		IsPublic: isPublic,
		Mine:     mine != nil && *mine,
		Page:     page,
		PageSize: pageSize,
	}

	response, err := h.quizzes.List(requestContext(c), req, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, response.Items, "quizzes", response.Pagination)
}

func (h *QuizHandler) create(c *fiber.Ctx) error {
	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	quiz, err := h.quizzes.Create(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.Created(c, quiz, "quiz created")
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	quiz, err := h.quizzes.Get(requestContext(c), id, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, quiz, "quiz", nil)
}

func (h *QuizHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	var payload dto.QuizUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	quiz, err := h.quizzes.Update(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, quiz, "quiz updated", nil)
}

func (h *QuizHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	if err := h.quizzes.Delete(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, fiber.Map{"id": id}, "quiz deleted", nil)
}

func (h *QuizHandler) accessState(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	state, err := h.access.QuizAccess(requestContext(c), userIDFromContext(c), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, state, "quiz access", nil)
}

func (h *QuizHandler) questions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	questions, err := h.quizzes.Questions(requestContext(c), id, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, questions, "questions", nil)
}

func (h *QuizHandler) addQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	question, err := h.quizzes.AddQuestion(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.Created(c, question, "question created")
}

func (h *QuizHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid question id", nil)
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	question, err := h.quizzes.UpdateQuestion(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, question, "question updated", nil)
}

func (h *QuizHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid question id", nil)
	}

	if err := h.quizzes.DeleteQuestion(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, fiber.Map{"id": id}, "question deleted", nil)
}
