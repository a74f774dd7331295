package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	response, err := h.service.Register(requestContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.Created(c, response, "account created")
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	response, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, response, "logged in", nil)
}
