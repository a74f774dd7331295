package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// StatsHandler serves dashboard figures.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Dashboard returns the figures shown to every authenticated user.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(requestContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, stats, "stats", nil)
}

// AdminMetrics returns the extended admin dashboard.
func (h *StatsHandler) AdminMetrics(c *fiber.Ctx) error {
	metrics, err := h.service.AdminMetrics(requestContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, metrics, "admin metrics", nil)
}
