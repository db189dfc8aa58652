package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lukyamuziB/lenken-backend/internal/handlers"
	"github.com/lukyamuziB/lenken-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	RequestHandler *handlers.RequestHandler
	SessionHandler *handlers.SessionHandler
	RatingHandler  *handlers.RatingHandler
	FileHandler    *handlers.FileHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api/v2")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Mentorship requests
	api.POST("/requests", cfg.RequestHandler.Create)
	api.GET("/requests", cfg.RequestHandler.List)
	api.GET("/requests/:id", cfg.RequestHandler.Get)
	api.PATCH("/requests/:id/interested", cfg.RequestHandler.IndicateInterest)
	api.PATCH("/requests/:id/uninterested", cfg.RequestHandler.WithdrawInterest)
	api.PATCH("/requests/:id/match", cfg.RequestHandler.Match)
	api.PATCH("/requests/:id/cancel", cfg.RequestHandler.Cancel)

	// Sessions
	api.POST("/requests/:id/sessions", cfg.SessionHandler.LogSession)
	api.GET("/requests/:id/sessions/dates", cfg.SessionHandler.SessionDates)
	api.GET("/requests/:id/sessions/report", cfg.SessionHandler.SessionReport)
	api.PATCH("/sessions/:id/approve", cfg.SessionHandler.Approve)
	api.PATCH("/sessions/:id/reject", cfg.SessionHandler.Reject)

	// Ratings
	api.POST("/sessions/:id/rate", cfg.RatingHandler.RateSession)
	api.GET("/users/:id/rating", cfg.RatingHandler.UserSummary)

	// Session files
	api.POST("/sessions/:id/files", cfg.FileHandler.Upload)
	api.GET("/sessions/:id/files", cfg.FileHandler.List)
	api.GET("/sessions/:id/files/:fileId/url", cfg.FileHandler.URL)
	api.DELETE("/sessions/:id/files/:fileId", cfg.FileHandler.Delete)

	return router
}
