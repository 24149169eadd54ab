package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuesport/backend/internal/models"
)

// normalizePhone normalizes phone number to international format (no leading '+')
// Returns digits like: 256700123456
func normalizePhone(phone string) string {
	// Remove all non-digit characters
	digits := ""
	for _, char := range phone {
		if char >= '0' && char <= '9' {
			digits += string(char)
		}
	}

	// Handle Uganda phone numbers (expecting 9 local digits)
	if len(digits) == 9 && (digits[0] == '7' || digits[0] == '3') {
		return "256" + digits
	} else if len(digits) == 10 && digits[0] == '0' {
		return "256" + digits[1:]
	} else if len(digits) == 12 && digits[:3] == "256" {
		return digits
	} else if len(phone) > 0 && phone[0] == '+' && len(digits) == 12 && digits[:3] == "256" {
		return digits
	}

	return ""
}

// generateID generates a random alphanumeric ID
func generateID(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[n.Int64()]
	}
	return string(result)
}

// generateQueueToken returns a short random hex token used as the external queue token
func generateQueueToken() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("qt_%d", time.Now().UnixNano()%1000000)
	}
	return hex.EncodeToString(b)
}

// generateDisplayName creates a short fun display name
func generateDisplayName() string {
	adjectives := []string{"Lucky", "Swift", "Brave", "Jolly", "Mighty", "Quiet", "Clever", "Happy", "Steady", "Zesty"}
	nouns := []string{"Break", "Hustler", "Cueist", "Champion", "Eight", "Ace", "Shark", "Bank", "Safety", "Drift"}
	si := time.Now().UnixNano() % int64(len(nouns))
	ai := (time.Now().UnixNano() / 7) % int64(len(adjectives))
	num := int(time.Now().UnixNano() % 1000) // 0-999
	return fmt.Sprintf("%s %s %d", adjectives[ai], nouns[si], num)
}

// GetOrCreatePlayerByPhone returns existing player or creates a new one with random display name
func GetOrCreatePlayerByPhone(db *sqlx.DB, phone string) (*models.Player, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("empty phone")
	}

	var p models.Player
	query := `SELECT id, phone_number, display_name, created_at, total_games_played, total_games_won, is_active, last_active FROM players WHERE phone_number=$1`
	if err := db.Get(&p, query, phone); err == nil {
		if _, err := db.Exec(`UPDATE players SET last_active = NOW() WHERE id = $1`, p.ID); err != nil {
			log.Printf("[DB] Failed to update last_active for player %d: %v", p.ID, err)
		}
		return &p, nil
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	display := generateDisplayName()
	var id int
	if err := db.QueryRowx(`INSERT INTO players (phone_number, display_name, created_at, is_active) VALUES ($1, $2, NOW(), true) RETURNING id`, phone, display).Scan(&id); err != nil {
		return nil, err
	}
	if err := db.Get(&p, query, phone); err != nil {
		return nil, err
	}
	return &p, nil
}
