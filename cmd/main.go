package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lukyamuziB/lenken-backend/internal/clients/mail"
	"github.com/lukyamuziB/lenken-backend/internal/clients/slack"
	"github.com/lukyamuziB/lenken-backend/internal/clients/timetracker"
	"github.com/lukyamuziB/lenken-backend/internal/db"
	"github.com/lukyamuziB/lenken-backend/internal/handlers"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/middleware"
	"github.com/lukyamuziB/lenken-backend/internal/observability"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/server"
	"github.com/lukyamuziB/lenken-backend/internal/services"
	"github.com/lukyamuziB/lenken-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	adminEmail := utils.GetEnv("ADMIN_EMAIL", "lenken-admin@example.com", log)
	fallbackEmail := utils.GetEnv("TIMETRACKER_FALLBACK_EMAIL", adminEmail, log)
	trackerProjectID := utils.GetEnvAsInt("TIMETRACKER_PROJECT_ID", 0, log)
	port := utils.GetEnv("PORT", "8080", log)
	allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log), ",")

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "lenken-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	requestRepo := repos.NewRequestRepo(thePG, log)
	sessionRepo := repos.NewSessionRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)
	sessionFileRepo := repos.NewSessionFileRepo(thePG, log)

	// External clients
	log.Info("Setting up external clients from main...")
	slackClient, err := slack.NewFromEnv(log)
	if err != nil {
		log.Warn("Slack client unavailable", "error", err)
		slackClient = nil
	}
	trackerClient, err := timetracker.New(log, timetracker.ConfigFromEnv(trackerProjectID))
	if err != nil {
		log.Warn("Time tracker client unavailable", "error", err)
		trackerClient = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	var mailer services.Mailer = &services.LogMailer{Log: log}
	if mailClient, mErr := mail.NewFromEnv(log); mErr != nil {
		log.Warn("Mail provider unavailable, logging mail instead", "error", mErr)
	} else {
		mailer = &services.TemplateMailer{Client: mailClient}
	}
	notifier := services.NewNotificationService(log, mailer, slackClient)
	authService := services.NewAuthService(thePG, log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	requestService := services.NewRequestService(thePG, log, requestRepo, userRepo, notifier)
	sessionService := services.NewSessionService(thePG, log, requestRepo, sessionRepo, userRepo, trackerClient, notifier, fallbackEmail)
	ratingService := services.NewRatingService(thePG, log, ratingRepo, sessionRepo, requestRepo)
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}
	fileService := services.NewFileService(thePG, log, sessionFileRepo, sessionRepo, requestRepo, bucketService)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	requestHandler := handlers.NewRequestHandler(log, requestService)
	sessionHandler := handlers.NewSessionHandler(log, sessionService)
	ratingHandler := handlers.NewRatingHandler(log, ratingService)
	fileHandler := handlers.NewFileHandler(log, fileService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:    "lenken-backend",
		AllowedOrigins: allowedOrigins,
		AuthMiddleware: authMiddleware,
		AuthHandler:    authHandler,
		RequestHandler: requestHandler,
		SessionHandler: sessionHandler,
		RatingHandler:  ratingHandler,
		FileHandler:    fileHandler,
	})

	log.Info("Starting server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
