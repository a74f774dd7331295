package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/service"
	"github.com/noah-isme/quizmaster-api/internal/utils"
)

// ActivityHandler exposes the audit log to admins.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := paginationFromQuery(c, 25, 200)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid actor id", nil)
	}

	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid entity id", nil)
	}
	since, err := parseQueryTime(c, "since")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "since must be an RFC3339 timestamp", nil)
	}
	until, err := parseQueryTime(c, "until")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "until must be an RFC3339 timestamp", nil)
	}

	response, err := h.service.List(requestContext(c), dto.ActivityListRequest{
		Page:          page,
		PageSize:      pageSize,
		ActorID:       actorID,
		Action:        strings.TrimSpace(c.Query("action")),
		EntityType:    strings.TrimSpace(c.Query("entity_type")),
		EntityID:      entityID,
		CorrelationID: strings.TrimSpace(c.Query("correlation_id")),
		Since:         since,
		Until:         until,
	})
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}

func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
