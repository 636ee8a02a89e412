package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/campuslink/campuslink-backend/internal/handlers"
	"github.com/campuslink/campuslink-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	AllowOrigins      []string
	AuthMiddleware    *middleware.AuthMiddleware
	GraphHandler      *handlers.GraphHandler
	SuggestionHandler *handlers.SuggestionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Follow graph
	api.POST("/users/:id/follow", cfg.GraphHandler.Follow)
	api.DELETE("/users/:id/follow", cfg.GraphHandler.Unfollow)
	api.POST("/users/:id/interactions", cfg.GraphHandler.RecordInteraction)
	api.GET("/users/:id/relationship", cfg.GraphHandler.Relationship)
	api.GET("/users/:id/mutual", cfg.GraphHandler.Mutual)
	api.GET("/users/:id/followers", cfg.GraphHandler.Followers)
	api.GET("/users/:id/following", cfg.GraphHandler.Following)
	api.POST("/following/check", cfg.GraphHandler.BulkCheckFollowing)

	// Suggestions
	api.GET("/suggestions", cfg.SuggestionHandler.GetSuggestions)

	return router
}
