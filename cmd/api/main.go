package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/quizmaster-api/internal/config"
	"github.com/noah-isme/quizmaster-api/internal/database"
	"github.com/noah-isme/quizmaster-api/internal/handler"
	"github.com/noah-isme/quizmaster-api/internal/middleware"
	"github.com/noah-isme/quizmaster-api/internal/repository"
	"github.com/noah-isme/quizmaster-api/internal/router"
	"github.com/noah-isme/quizmaster-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: stats are not cached and notifications stay on this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	assignmentRepo := repository.NewQuizAssignmentRepository(db)
	requestRepo := repository.NewAccessRequestRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	statsService := service.NewStatsService(statsRepo, attemptRepo, redisClient, cfg.StatsCacheTTL, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	accessService := service.NewAccessService(service.AccessRepositories{
		Users:       userRepo,
		Quizzes:     quizRepo,
		Assignments: assignmentRepo,
		Requests:    requestRepo,
	}, validate, activityService, notificationService, statsService, logger)
	quizService := service.NewQuizService(quizRepo, accessService, validate, activityService, statsService, logger)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, accessService, validate, statsService, cfg.PassingPercentage, logger)
	authService := service.NewAuthService(userRepo, validate, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	userService := service.NewUserService(service.UserRepositories{
		Users:       userRepo,
		Attempts:    attemptRepo,
		Assignments: assignmentRepo,
		Requests:    requestRepo,
	}, validate, activityService, statsService, cfg.BcryptCost, logger)
	exportService := service.NewExportService(assignmentRepo, requestRepo, activityService, logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if err := authService.EnsureAdmin(rootCtx, cfg.SeedAdminUsername, cfg.SeedAdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin account")
	}
	notificationService.Start(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.IsDevelopment(),
	})
	router.Register(app, cfg, router.Dependencies{
		DB:                  db,
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		QuizHandler:         handler.NewQuizHandler(quizService, accessService, logger),
		AccessHandler:       handler.NewAccessHandler(accessService, attemptService, logger),
		AttemptHandler:      handler.NewAttemptHandler(attemptService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		StatsHandler:        handler.NewStatsHandler(statsService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		ExportHandler:       handler.NewExportHandler(exportService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
