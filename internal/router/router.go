package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/config"
	"github.com/noah-isme/quizmaster-api/internal/handler"
	"github.com/noah-isme/quizmaster-api/internal/middleware"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/observability"
)

// Dependencies groups router dependencies for registration. Nil handlers are skipped.
type Dependencies struct {
	DB                  *gorm.DB
	AuthHandler         *handler.AuthHandler
	QuizHandler         *handler.QuizHandler
	AccessHandler       *handler.AccessHandler
	AttemptHandler      *handler.AttemptHandler
	NotificationHandler *handler.NotificationHandler
	StatsHandler        *handler.StatsHandler
	UserHandler         *handler.UserHandler
	ActivityHandler     *handler.ActivityHandler
	ExportHandler       *handler.ExportHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", cfg.AuthRateLimit, cfg.RateLimitWindow))
		deps.AuthHandler.Register(auth)
	}

	// Registered after the public routes so /health and /auth never reach the JWT check.
	secured := api.Group("", jwtMiddleware)

	if deps.AccessHandler != nil {
		deps.AccessHandler.RegisterMe(secured.Group("/me"))
		deps.AccessHandler.RegisterRequests(secured.Group("/access-requests",
			middleware.RateLimit("access_request", cfg.RequestRateLimit, cfg.RateLimitWindow)))
	}
	if deps.QuizHandler != nil {
		deps.QuizHandler.Register(secured.Group("/quizzes"))
		deps.QuizHandler.RegisterQuestions(secured.Group("/questions"))
	}
	if deps.AttemptHandler != nil {
		deps.AttemptHandler.Register(secured.Group("/attempts"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(secured.Group("/notifications"))
	}
	if deps.StatsHandler != nil {
		secured.Get("/stats", deps.StatsHandler.Dashboard)
	}

	admin := secured.Group("/admin", middleware.RequireRole(models.UserRoleAdmin))

	if deps.AccessHandler != nil {
		deps.AccessHandler.RegisterAdmin(admin)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(admin.Group("/users"))
	}
	if deps.StatsHandler != nil {
		admin.Get("/metrics", deps.StatsHandler.AdminMetrics)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
	if deps.ExportHandler != nil {
		admin.Get("/exports/access.xlsx", deps.ExportHandler.AccessWorkbook)
	}
}
