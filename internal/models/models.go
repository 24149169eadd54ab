package models

import (
	"database/sql"
	"time"
)

// Player represents a user in the system
type Player struct {
	ID               int            `db:"id" json:"id"`
	PhoneNumber      string         `db:"phone_number" json:"phone_number"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	PINHash          sql.NullString `db:"pin_hash" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	TotalGamesPlayed int            `db:"total_games_played" json:"total_games_played"`
	TotalGamesWon    int            `db:"total_games_won" json:"total_games_won"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	LastActive       sql.NullTime   `db:"last_active" json:"last_active,omitempty"`
}

// GameSession represents one match between two players
type GameSession struct {
	ID          int           `db:"id" json:"id"`
	GameToken   string        `db:"game_token" json:"game_token"`
	Player1ID   int           `db:"player1_id" json:"player1_id"`
	Player2ID   sql.NullInt64 `db:"player2_id" json:"player2_id,omitempty"`
	StakeAmount float64       `db:"stake_amount" json:"stake_amount"`
	Status      string        `db:"status" json:"status"`
	WinnerID    sql.NullInt64 `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime  `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime  `db:"completed_at" json:"completed_at,omitempty"`
	ExpiryTime  time.Time     `db:"expiry_time" json:"expiry_time"`
}

// GameShot represents a single recorded shot in a session
type GameShot struct {
	ID         int       `db:"id" json:"id"`
	SessionID  int       `db:"session_id" json:"session_id"`
	PlayerID   int       `db:"player_id" json:"player_id"`
	ShotNumber int       `db:"shot_number" json:"shot_number"`
	DirectionX float64   `db:"direction_x" json:"direction_x"`
	DirectionY float64   `db:"direction_y" json:"direction_y"`
	Power      float64   `db:"power" json:"power"`
	Screw      float64   `db:"screw" json:"screw"`
	English    float64   `db:"english" json:"english"`
	Pocketed   string    `db:"pocketed" json:"pocketed"` // JSON array of ball ids
	Foul       bool      `db:"foul" json:"foul"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GameStateRecord is a persisted final game state snapshot
type GameStateRecord struct {
	ID        int       `db:"id" json:"id"`
	SessionID int       `db:"session_id" json:"session_id"`
	GameState string    `db:"game_state" json:"game_state"` // JSONB payload
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
