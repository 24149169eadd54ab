package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cuesport/backend/internal/config"
	"github.com/cuesport/backend/internal/game"
)

// JoinQueue puts a player into matchmaking at a stake level.
// POST /api/v1/game/queue
func JoinQueue(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PhoneNumber string `json:"phone_number" binding:"required"`
			StakeAmount int    `json:"stake_amount"`
			DisplayName string `json:"display_name,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number required."})
			return
		}

		phone := normalizePhone(req.PhoneNumber)
		if phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number format"})
			return
		}
		if req.StakeAmount < cfg.MinStakeAmount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stake below minimum"})
			return
		}

		dbPlayerID := 0
		displayName := req.DisplayName
		if db != nil {
			player, err := GetOrCreatePlayerByPhone(db, phone)
			if err != nil {
				log.Printf("[ERROR] JoinQueue - failed to upsert player %s: %v", phone, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process player"})
				return
			}
			dbPlayerID = player.ID
			if displayName == "" {
				displayName = player.DisplayName
			}
		}

		queueToken := generateQueueToken()
		result, err := game.Manager.JoinQueue(queueToken, phone, req.StakeAmount, dbPlayerID, displayName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if result == nil {
			c.JSON(http.StatusOK, gin.H{
				"status":      "queued",
				"queue_token": queueToken,
				"message":     "Waiting for an opponent...",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "matched",
			"game_token": result.GameToken,
			"player1": gin.H{
				"id":           result.Player1ID,
				"token":        result.Player1Token,
				"link":         result.Player1Link,
				"display_name": result.Player1DisplayName,
			},
			"player2": gin.H{
				"id":           result.Player2ID,
				"token":        result.Player2Token,
				"link":         result.Player2Link,
				"display_name": result.Player2DisplayName,
			},
			"expires_at": result.ExpiresAt,
		})
	}
}

// LeaveQueue removes a waiting player from matchmaking.
// POST /api/v1/game/queue/leave
func LeaveQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			QueueToken string `json:"queue_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "queue_token required"})
			return
		}
		if !game.Manager.LeaveQueue(req.QueueToken) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not in queue"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "left"})
	}
}

// GetQueueStatus reports waiting counts per stake level.
// GET /api/v1/game/status
func GetQueueStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"queues":       game.Manager.GetQueueStatus(),
			"active_games": game.Manager.GetActiveMatchCount(),
		})
	}
}

// CreatePracticeGame starts a single-player game against the AI.
// POST /api/v1/game/practice
func CreatePracticeGame(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PhoneNumber string `json:"phone_number"`
			Difficulty  int    `json:"difficulty"`
			DisplayName string `json:"display_name,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		difficulty := req.Difficulty
		if difficulty == 0 {
			difficulty = cfg.DefaultAIDifficulty
		}

		phone := normalizePhone(req.PhoneNumber)
		dbPlayerID := 0
		displayName := req.DisplayName
		if phone != "" && db != nil {
			if player, err := GetOrCreatePlayerByPhone(db, phone); err == nil {
				dbPlayerID = player.ID
				if displayName == "" {
					displayName = player.DisplayName
				}
			}
		}
		if displayName == "" {
			displayName = generateDisplayName()
		}

		playerID := "pp_" + generateID(6)
		m, err := game.Manager.CreatePracticeGame(playerID, phone, displayName, dbPlayerID, difficulty)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":       "created",
			"game_token":   m.Token,
			"player_token": m.Player1.Token,
			"link":         cfg.FrontendURL + "/g/" + m.Token + "?pt=" + m.Player1.Token,
			"difficulty":   m.AILevel,
		})
	}
}

// CreateTestGame creates a two-seat game bypassing matchmaking. Dev only.
// POST /api/v1/game/test
func CreateTestGame(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Environment == "production" {
			c.JSON(http.StatusForbidden, gin.H{"error": "not available"})
			return
		}

		var req struct {
			Player1Phone string `json:"player1_phone"`
			Player2Phone string `json:"player2_phone"`
			StakeAmount  int    `json:"stake_amount"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		m, err := game.Manager.CreateTestGame(req.Player1Phone, req.Player2Phone, req.StakeAmount)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"game_token": m.Token,
			"player1": gin.H{"id": m.Player1.ID, "token": m.Player1.Token},
			"player2": gin.H{"id": m.Player2.ID, "token": m.Player2.Token},
		})
	}
}

// GetGameState returns the current snapshot for a game token.
// GET /api/v1/game/:token
func GetGameState() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		m, err := game.Manager.GetMatchByToken(token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": m.Status,
			"state":  m.Session.GetState(),
		})
	}
}
