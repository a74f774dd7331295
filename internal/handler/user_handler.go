package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds the /admin/users routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/activity", h.activity)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := paginationFromQuery(c, 25, 200)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	response, err := h.service.List(requestContext(c), dto.UserListRequest{
		Search:   strings.TrimSpace(c.Query("search")),
		Role:     c.Query("role"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, response.Items, "users", response.Pagination)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}

	user, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, user, "user", nil)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	user, err := h.service.Update(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, user, "user updated", nil)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}

	if err := h.service.Delete(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, fiber.Map{"id": id}, "user deleted", nil)
}

func (h *UserHandler) activity(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid user id", nil)
	}

	activity, err := h.service.Activity(requestContext(c), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, activity, "user activity", nil)
}
