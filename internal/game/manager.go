package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cuesport/backend/internal/config"
)

// GameManager owns all live matches and the matchmaking queue.
type GameManager struct {
	matches          map[string]*Match    // keyed by match ID
	playerToMatch    map[string]string    // player ID -> match ID
	matchmakingQueue map[int][]QueueEntry // stake amount -> waiting players
	rdb              *redis.Client
	db               *sqlx.DB
	config           *config.Config
	mu               sync.RWMutex
}

// QueueEntry is a player waiting for an opponent at a stake level.
type QueueEntry struct {
	QueueToken  string
	PhoneNumber string
	StakeAmount int
	DBPlayerID  int
	DisplayName string
	JoinedAt    time.Time
}

// MatchResult is returned to the caller that completed a pairing.
type MatchResult struct {
	MatchID            string
	GameToken          string
	Player1ID          string
	Player1Token       string
	Player1Link        string
	Player1DisplayName string
	Player2ID          string
	Player2Token       string
	Player2Link        string
	Player2DisplayName string
	StakeAmount        int
	ExpiresAt          time.Time
	SessionID          int
}

// Manager is the global game manager instance.
var Manager *GameManager

// InitializeManager wires the global manager and starts its background jobs.
func InitializeManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	Manager = NewGameManager(db, rdb, cfg)
	go Manager.StartExpiryChecker()
	go Manager.StartDisconnectChecker()
}

// NewGameManager creates a manager with empty maps. Redis and DB are both
// optional; persistence is skipped when they are nil.
func NewGameManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *GameManager {
	return &GameManager{
		matches:          make(map[string]*Match),
		playerToMatch:    make(map[string]string),
		matchmakingQueue: make(map[int][]QueueEntry),
		rdb:              rdb,
		db:               db,
		config:           cfg,
	}
}

func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateMatchID() string {
	return "match_" + generateToken(8)
}

func (gm *GameManager) newMatch(id, token string, p1, p2 *Player, stake, aiLevel int) *Match {
	tuning := DefaultTuning()
	now := time.Now()
	m := &Match{
		ID:           id,
		Token:        token,
		Player1:      p1,
		Player2:      p2,
		Session:      NewSession(id, token, tuning, aiLevel, now.UnixNano()),
		StakeAmount:  stake,
		Practice:     aiLevel > 0,
		AILevel:      aiLevel,
		Status:       StatusWaiting,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(gm.config.GameExpiryMinutes) * time.Minute),
		LastActivity: now,
	}
	return m
}

// JoinQueue adds a player to the matchmaking queue, pairing immediately if
// an opponent at the same stake is waiting.
func (gm *GameManager) JoinQueue(playerID, phoneNumber string, stakeAmount int, dbPlayerID int, displayName string) (*MatchResult, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.playerToMatch[playerID]; exists {
		return nil, errors.New("player already in a game")
	}
	for _, entries := range gm.matchmakingQueue {
		for _, entry := range entries {
			if entry.QueueToken == playerID {
				return nil, errors.New("player already in queue")
			}
		}
	}

	if queue, exists := gm.matchmakingQueue[stakeAmount]; exists && len(queue) > 0 {
		for i, opponent := range queue {
			if opponent.PhoneNumber == phoneNumber {
				continue
			}
			gm.matchmakingQueue[stakeAmount] = append(queue[:i], queue[i+1:]...)

			matchID := generateMatchID()
			gameToken := generateToken(16)
			player1Token := generateToken(16)
			player2Token := generateToken(16)

			p1 := &Player{
				ID:          opponent.QueueToken,
				Token:       player1Token,
				PhoneNumber: opponent.PhoneNumber,
				DisplayName: opponent.DisplayName,
				DBPlayerID:  opponent.DBPlayerID,
				Seat:        1,
			}
			p2 := &Player{
				ID:          playerID,
				Token:       player2Token,
				PhoneNumber: phoneNumber,
				DisplayName: displayName,
				DBPlayerID:  dbPlayerID,
				Seat:        2,
			}

			m := gm.newMatch(matchID, gameToken, p1, p2, stakeAmount, 0)
			gm.matches[matchID] = m
			gm.playerToMatch[p1.ID] = matchID
			gm.playerToMatch[p2.ID] = matchID

			log.Printf("[MATCHMAKING] Match created: %s", matchID)
			log.Printf("[MATCHMAKING] Player1: %s -> Match: %s", p1.ID, matchID)
			log.Printf("[MATCHMAKING] Player2: %s -> Match: %s", p2.ID, matchID)

			gm.saveMatchToRedis(m)

			var sessionID int
			if gm.db != nil && p1.DBPlayerID > 0 && p2.DBPlayerID > 0 {
				err := gm.db.QueryRowx(`INSERT INTO game_sessions (game_token, player1_id, player2_id, stake_amount, status, created_at, expiry_time) VALUES ($1, $2, $3, $4, $5, NOW(), $6) RETURNING id`,
					gameToken, p1.DBPlayerID, p2.DBPlayerID, stakeAmount, string(StatusWaiting), m.ExpiresAt).Scan(&sessionID)
				if err != nil {
					log.Printf("[DB] Failed to create game_session: %v", err)
				} else {
					m.DBSessionID = sessionID
					gm.saveMatchToRedis(m)
				}
			}

			baseURL := gm.config.FrontendURL
			return &MatchResult{
				MatchID:            matchID,
				GameToken:          gameToken,
				Player1ID:          p1.ID,
				Player1Token:       player1Token,
				Player1Link:        baseURL + "/g/" + gameToken + "?pt=" + player1Token,
				Player1DisplayName: p1.DisplayName,
				Player2ID:          p2.ID,
				Player2Token:       player2Token,
				Player2Link:        baseURL + "/g/" + gameToken + "?pt=" + player2Token,
				Player2DisplayName: p2.DisplayName,
				StakeAmount:        stakeAmount,
				ExpiresAt:          m.ExpiresAt,
				SessionID:          sessionID,
			}, nil
		}
	}

	entry := QueueEntry{
		QueueToken:  playerID,
		PhoneNumber: phoneNumber,
		StakeAmount: stakeAmount,
		DBPlayerID:  dbPlayerID,
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
	gm.matchmakingQueue[stakeAmount] = append(gm.matchmakingQueue[stakeAmount], entry)
	return nil, nil // queued, no match yet
}

// LeaveQueue removes a player from the matchmaking queue.
func (gm *GameManager) LeaveQueue(queueToken string) bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for stake, queue := range gm.matchmakingQueue {
		for i, entry := range queue {
			if entry.QueueToken == queueToken {
				gm.matchmakingQueue[stake] = append(queue[:i], queue[i+1:]...)
				return true
			}
		}
	}
	return false
}

// CreatePracticeGame creates a single-player match against the AI at the
// given difficulty (1..5, clamped).
func (gm *GameManager) CreatePracticeGame(playerID, phoneNumber, displayName string, dbPlayerID, difficulty int) (*Match, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.playerToMatch[playerID]; exists {
		return nil, errors.New("player already in a game")
	}
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 5 {
		difficulty = 5
	}

	matchID := generateMatchID()
	gameToken := generateToken(16)

	p1 := &Player{
		ID:          playerID,
		Token:       generateToken(16),
		PhoneNumber: phoneNumber,
		DisplayName: displayName,
		DBPlayerID:  dbPlayerID,
		Seat:        1,
	}
	p2 := &Player{
		ID:          "ai_" + generateToken(4),
		Token:       "",
		DisplayName: "Computer",
		Seat:        2,
		Connected:   true,
	}

	m := gm.newMatch(matchID, gameToken, p1, p2, 0, difficulty)
	gm.matches[matchID] = m
	gm.playerToMatch[p1.ID] = matchID

	log.Printf("[PRACTICE] Match created: %s (difficulty=%d)", matchID, difficulty)
	gm.saveMatchToRedis(m)
	return m, nil
}

// CreateTestGame creates a two-seat match bypassing matchmaking.
func (gm *GameManager) CreateTestGame(player1Phone, player2Phone string, stakeAmount int) (*Match, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	matchID := generateMatchID()
	gameToken := generateToken(16)

	p1 := &Player{
		ID:          "p1_" + generateToken(4),
		Token:       generateToken(16),
		PhoneNumber: player1Phone,
		DisplayName: "TestPlayer1",
		Seat:        1,
	}
	p2 := &Player{
		ID:          "p2_" + generateToken(4),
		Token:       generateToken(16),
		PhoneNumber: player2Phone,
		DisplayName: "TestPlayer2",
		Seat:        2,
	}

	m := gm.newMatch(matchID, gameToken, p1, p2, stakeAmount, 0)
	gm.matches[matchID] = m
	gm.playerToMatch[p1.ID] = matchID
	gm.playerToMatch[p2.ID] = matchID
	return m, nil
}

// GetMatch retrieves a match by ID.
func (gm *GameManager) GetMatch(matchID string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	m, exists := gm.matches[matchID]
	if !exists {
		return nil, errors.New("game not found")
	}
	return m, nil
}

// GetMatchByToken retrieves a match by its shareable token, falling back to
// the Redis snapshot for reconnects after a restart.
func (gm *GameManager) GetMatchByToken(token string) (*Match, error) {
	gm.mu.RLock()
	for _, m := range gm.matches {
		if m.Token == token {
			gm.mu.RUnlock()
			return m, nil
		}
	}
	gm.mu.RUnlock()

	m, err := gm.loadMatchFromRedis(token)
	if err != nil {
		return nil, errors.New("game not found")
	}

	gm.mu.Lock()
	gm.matches[m.ID] = m
	gm.playerToMatch[m.Player1.ID] = m.ID
	if m.Player2 != nil {
		gm.playerToMatch[m.Player2.ID] = m.ID
	}
	gm.mu.Unlock()

	log.Printf("[MANAGER] Restored match %s from Redis", token)
	return m, nil
}

// GetMatchForPlayer retrieves the active match for a player ID.
func (gm *GameManager) GetMatchForPlayer(playerID string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	matchID, exists := gm.playerToMatch[playerID]
	if !exists {
		return nil, errors.New("player not in a game")
	}
	m, exists := gm.matches[matchID]
	if !exists {
		return nil, errors.New("game not found")
	}
	return m, nil
}

// EndMatch removes a finished match from the registry.
func (gm *GameManager) EndMatch(matchID string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	m, exists := gm.matches[matchID]
	if !exists {
		return errors.New("game not found")
	}
	delete(gm.playerToMatch, m.Player1.ID)
	if m.Player2 != nil {
		delete(gm.playerToMatch, m.Player2.ID)
	}
	delete(gm.matches, matchID)
	return nil
}

// Config exposes the manager's configuration to callers that need game
// timing settings.
func (gm *GameManager) Config() *config.Config {
	return gm.config
}

// SaveMatch persists the match snapshot to Redis, best-effort.
func (gm *GameManager) SaveMatch(m *Match) {
	if err := gm.saveMatchToRedis(m); err != nil {
		log.Printf("[REDIS] Failed to save match %s: %v", m.ID, err)
	}
}

// GetQueueStatus returns waiting counts per stake level.
func (gm *GameManager) GetQueueStatus() map[int]int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	status := make(map[int]int)
	for stake, queue := range gm.matchmakingQueue {
		status[stake] = len(queue)
	}
	return status
}

// GetActiveMatchCount returns the number of live matches.
func (gm *GameManager) GetActiveMatchCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.matches)
}

// RecordShot persists one shot row, best-effort.
func (gm *GameManager) RecordShot(sessionID, dbPlayerID, shotNumber int, shot ShotData, pocketed []int, foul bool) {
	if gm == nil || gm.db == nil || sessionID == 0 {
		return
	}

	pocketedJSON, err := json.Marshal(pocketed)
	if err != nil {
		pocketedJSON = []byte("[]")
	}
	_, err = gm.db.Exec(`INSERT INTO game_shots (session_id, player_id, shot_number, direction_x, direction_y, power, screw, english, pocketed, foul, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())`,
		sessionID, dbPlayerID, shotNumber, shot.Direction.X, shot.Direction.Y, shot.Power, shot.Screw, shot.English, string(pocketedJSON), foul)
	if err != nil {
		log.Printf("[DB] Failed to record shot for session %d: %v", sessionID, err)
	}
}

// FinalizeMatch persists the result, updates player stats, and drops the
// match from the registry.
func (gm *GameManager) FinalizeMatch(m *Match) {
	m.Complete()

	st := m.Session.GetState()
	if gm.db != nil && m.DBSessionID > 0 {
		data, err := json.Marshal(st)
		if err == nil {
			if _, err := gm.db.Exec(`INSERT INTO game_states (session_id, game_state, created_at) VALUES ($1, $2::jsonb, NOW())`, m.DBSessionID, string(data)); err != nil {
				log.Printf("[DB] Failed to insert final game state for session %d: %v", m.DBSessionID, err)
			}
		}

		winnerDBID := 0
		if w := m.WinnerSeat(); w != 0 {
			if p := m.playerAt(w); p != nil {
				winnerDBID = p.DBPlayerID
			}
		}
		if _, err := gm.db.Exec(`UPDATE game_sessions SET status=$1, winner_id=NULLIF($2,0), completed_at=NOW() WHERE id=$3`,
			string(StatusCompleted), winnerDBID, m.DBSessionID); err != nil {
			log.Printf("[DB] Failed to update game_session %d: %v", m.DBSessionID, err)
		}
		if winnerDBID > 0 {
			if _, err := gm.db.Exec(`UPDATE players SET total_games_won = total_games_won + 1 WHERE id = $1`, winnerDBID); err != nil {
				log.Printf("[DB] Failed to update winner stats for session %d: %v", m.DBSessionID, err)
			}
		}
	}

	gm.saveMatchToRedis(m)
	if err := gm.EndMatch(m.ID); err != nil {
		log.Printf("[MANAGER] Failed to end match %s: %v", m.ID, err)
	}
}

// matchSnapshot is the Redis persistence format for a match.
type matchSnapshot struct {
	ID          string      `json:"id"`
	Token       string      `json:"token"`
	Player1     *Player     `json:"player1"`
	Player2     *Player     `json:"player2"`
	State       GameState   `json:"state"`
	Status      MatchStatus `json:"status"`
	StakeAmount int         `json:"stake_amount"`
	Practice    bool        `json:"practice"`
	AILevel     int         `json:"ai_level"`
	DBSessionID int         `json:"db_session_id"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

func (gm *GameManager) saveMatchToRedis(m *Match) error {
	if gm.rdb == nil {
		return nil
	}

	snap := matchSnapshot{
		ID:          m.ID,
		Token:       m.Token,
		Player1:     m.Player1,
		Player2:     m.Player2,
		State:       m.Session.GetState(),
		Status:      m.Status,
		StakeAmount: m.StakeAmount,
		Practice:    m.Practice,
		AILevel:     m.AILevel,
		DBSessionID: m.DBSessionID,
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	key := "game:" + m.Token + ":state"
	return gm.rdb.SetEx(context.Background(), key, data, time.Hour).Err()
}

func (gm *GameManager) loadMatchFromRedis(token string) (*Match, error) {
	if gm.rdb == nil {
		return nil, errors.New("no redis client")
	}

	key := "game:" + token + ":state"
	data, err := gm.rdb.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return nil, errors.New("game not found in redis")
	}
	if err != nil {
		return nil, err
	}

	var snap matchSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}

	m := gm.newMatch(snap.ID, snap.Token, snap.Player1, snap.Player2, snap.StakeAmount, snap.AILevel)
	m.Status = snap.Status
	m.DBSessionID = snap.DBSessionID
	m.CreatedAt = snap.CreatedAt
	m.ExpiresAt = snap.ExpiresAt
	// Connection state does not survive a restart.
	if m.Player1 != nil {
		m.Player1.Connected = false
	}
	if m.Player2 != nil && !m.Practice {
		m.Player2.Connected = false
	}
	m.Session.ApplyState(snap.State)
	return m, nil
}

// StartExpiryChecker cancels matches that never got both players connected.
func (gm *GameManager) StartExpiryChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		gm.checkExpiredMatches()
	}
}

func (gm *GameManager) checkExpiredMatches() {
	gm.mu.RLock()
	now := time.Now()
	var expired []*Match
	for _, m := range gm.matches {
		if m.Status == StatusWaiting && now.After(m.ExpiresAt) {
			expired = append(expired, m)
		}
	}
	gm.mu.RUnlock()

	for _, m := range expired {
		log.Printf("[EXPIRY] Match %s expired; cancelling", m.ID)
		m.Cancel()

		if gm.db != nil && m.DBSessionID > 0 {
			if _, err := gm.db.Exec(`UPDATE game_sessions SET status=$1, completed_at=NOW() WHERE id=$2`, string(StatusCancelled), m.DBSessionID); err != nil {
				log.Printf("[DB] Failed to cancel game_session %d: %v", m.DBSessionID, err)
			}
		}
		if gm.rdb != nil {
			payload := map[string]interface{}{
				"type":       "session_cancelled",
				"game_token": m.Token,
				"game_id":    m.ID,
				"message":    "Game cancelled: opponent never joined.",
			}
			if b, err := json.Marshal(payload); err == nil {
				if err := gm.rdb.Publish(context.Background(), "game_events", b).Err(); err != nil {
					log.Printf("[EXPIRY] publish session_cancelled failed: %v", err)
				}
			}
		}
		gm.EndMatch(m.ID)
	}
}

// StartDisconnectChecker forfeits matches where one player has been gone
// past the grace period.
func (gm *GameManager) StartDisconnectChecker() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		gm.checkDisconnectForfeits()
	}
}

func (gm *GameManager) checkDisconnectForfeits() {
	gm.mu.RLock()
	active := make([]*Match, 0)
	for _, m := range gm.matches {
		if m.Status == StatusInProgress && !m.Practice {
			active = append(active, m)
		}
	}
	gm.mu.RUnlock()

	now := time.Now()
	grace := time.Duration(gm.config.DisconnectGraceSeconds) * time.Second

	for _, m := range active {
		m.mu.RLock()
		forfeitSeat := 0
		if !m.Player1.Connected && m.Player1.DisconnectedAt != nil && now.Sub(*m.Player1.DisconnectedAt) > grace {
			forfeitSeat = 1
		} else if !m.Player2.Connected && m.Player2.DisconnectedAt != nil && now.Sub(*m.Player2.DisconnectedAt) > grace {
			forfeitSeat = 2
		}
		m.mu.RUnlock()

		if forfeitSeat != 0 {
			log.Printf("[DISCONNECT] Seat %d forfeits match %s", forfeitSeat, m.ID)
			m.Concede(forfeitSeat)

			if gm.rdb != nil {
				payload := map[string]interface{}{
					"type":       "player_forfeit",
					"game_token": m.Token,
					"game_id":    m.ID,
					"player":     m.playerAt(forfeitSeat).ID,
					"message":    "Player forfeited after disconnecting",
					"state":      m.Session.GetState(),
				}
				if b, err := json.Marshal(payload); err == nil {
					if err := gm.rdb.Publish(context.Background(), "game_events", b).Err(); err != nil {
						log.Printf("[DISCONNECT] publish forfeit failed: %v", err)
					}
				}
			}

			gm.FinalizeMatch(m)
		}
	}
}
