package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cuesport/backend/internal/api/handlers"
	"github.com/cuesport/backend/internal/config"
	"github.com/cuesport/backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	// No-cache headers in development so the frontend always sees fresh state
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Auth
		auth := v1.Group("/auth")
		{
			auth.POST("/set-pin", handlers.SetPIN(db, cfg))
			auth.POST("/verify-pin", handlers.VerifyPIN(db, cfg))
		}

		// Authenticated profile
		me := v1.Group("/me")
		me.Use(handlers.AuthMiddleware(cfg))
		{
			me.GET("", handlers.GetMe(db))
		}

		// Game endpoints
		gameGroup := v1.Group("/game")
		{
			gameGroup.POST("/queue", handlers.JoinQueue(db, rdb, cfg))
			gameGroup.POST("/queue/leave", handlers.LeaveQueue())
			gameGroup.GET("/status", handlers.GetQueueStatus())
			gameGroup.POST("/practice", handlers.CreatePracticeGame(db, cfg))
			gameGroup.POST("/test", handlers.CreateTestGame(cfg)) // Dev only
			gameGroup.GET("/:token", handlers.GetGameState())
			gameGroup.GET("/:token/ws", handlers.HandleGameWebSocket(db, rdb, cfg))
		}

		// Player endpoints
		player := v1.Group("/player")
		{
			player.GET("/check", handlers.CheckPlayerStatus(db))
		}
	}
}
