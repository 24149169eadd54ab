package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/cuesport/backend/internal/config"
)

const maxPINAttempts = 5
const pinLockMinutes = 15

func isDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CheckPlayerStatus returns whether a player exists and has a PIN set
// GET /api/v1/player/check?phone=...
func CheckPlayerStatus(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := normalizePhone(c.Query("phone"))
		if phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone required"})
			return
		}

		var player struct {
			ID          int            `db:"id"`
			DisplayName string         `db:"display_name"`
			PINHash     sql.NullString `db:"pin_hash"`
		}

		err := db.Get(&player, `SELECT id, display_name, pin_hash FROM players WHERE phone_number=$1`, phone)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusOK, gin.H{
				"exists":       false,
				"has_pin":      false,
				"display_name": "",
			})
			return
		}
		if err != nil {
			log.Printf("CheckPlayerStatus DB error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"exists":       true,
			"has_pin":      player.PINHash.Valid && player.PINHash.String != "",
			"display_name": player.DisplayName,
		})
	}
}

// SetPIN sets or updates a player's PIN
// POST /api/v1/auth/set-pin
func SetPIN(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone"`
			PIN   string `json:"pin"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone and pin required"})
			return
		}

		phone := normalizePhone(req.Phone)
		pin := strings.TrimSpace(req.PIN)
		if phone == "" || pin == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone and pin required"})
			return
		}
		if len(pin) != 4 || !isDigits(pin) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "PIN must be exactly 4 digits"})
			return
		}

		pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("SetPIN bcrypt error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		player, err := GetOrCreatePlayerByPhone(db, phone)
		if err != nil {
			log.Printf("SetPIN GetOrCreatePlayerByPhone error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		_, err = db.Exec(`
			UPDATE players
			SET pin_hash = $1, pin_failed_attempts = 0, pin_locked_until = NULL
			WHERE id = $2
		`, string(pinHash), player.ID)
		if err != nil {
			log.Printf("SetPIN DB error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// VerifyPIN validates the PIN and issues a JWT on success
// POST /api/v1/auth/verify-pin
func VerifyPIN(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone"`
			PIN   string `json:"pin"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone and pin required"})
			return
		}

		phone := normalizePhone(req.Phone)
		pin := strings.TrimSpace(req.PIN)
		if phone == "" || pin == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone and pin required"})
			return
		}

		var player struct {
			ID             int            `db:"id"`
			DisplayName    string         `db:"display_name"`
			PINHash        sql.NullString `db:"pin_hash"`
			FailedAttempts int            `db:"pin_failed_attempts"`
			LockedUntil    sql.NullTime   `db:"pin_locked_until"`
		}
		err := db.Get(&player, `SELECT id, display_name, pin_hash, pin_failed_attempts, pin_locked_until FROM players WHERE phone_number=$1`, phone)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid phone or PIN"})
			return
		}

		if player.LockedUntil.Valid && time.Now().Before(player.LockedUntil.Time) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many failed attempts, try again later"})
			return
		}
		if !player.PINHash.Valid || player.PINHash.String == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no PIN set for this player"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(player.PINHash.String), []byte(pin)); err != nil {
			attempts := player.FailedAttempts + 1
			if attempts >= maxPINAttempts {
				lockUntil := time.Now().Add(pinLockMinutes * time.Minute)
				db.Exec(`UPDATE players SET pin_failed_attempts=$1, pin_locked_until=$2 WHERE id=$3`, attempts, lockUntil, player.ID)
			} else {
				db.Exec(`UPDATE players SET pin_failed_attempts=$1 WHERE id=$2`, attempts, player.ID)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid phone or PIN"})
			return
		}

		db.Exec(`UPDATE players SET pin_failed_attempts=0, pin_locked_until=NULL, last_active=NOW() WHERE id=$1`, player.ID)

		exp := time.Now().Add(24 * time.Hour)
		claims := jwt.MapClaims{"player_id": player.ID, "phone": phone, "exp": exp.Unix()}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Printf("Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":  signed,
			"player": gin.H{"id": player.ID, "phone": phone, "display_name": player.DisplayName},
		})
	}
}

// AuthMiddleware validates bearer JWT and sets player_id in context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		playerIDf, ok := claims["player_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("player_id", int(playerIDf))
		c.Next()
	}
}

// GetMe returns the authenticated player's profile and game stats
func GetMe(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pidI, ok := c.Get("player_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		pid := pidI.(int)

		var player struct {
			ID               int    `db:"id"`
			PhoneNumber      string `db:"phone_number"`
			DisplayName      string `db:"display_name"`
			TotalGamesPlayed int    `db:"total_games_played"`
			TotalGamesWon    int    `db:"total_games_won"`
		}
		if err := db.Get(&player, `SELECT id, phone_number, display_name, total_games_played, total_games_won FROM players WHERE id=$1`, pid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "player not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"display_name":       player.DisplayName,
			"phone":              player.PhoneNumber,
			"total_games_played": player.TotalGamesPlayed,
			"total_games_won":    player.TotalGamesWon,
		})
	}
}
