package game

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MatchStatus tracks the lifecycle of a match around its simulation.
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "WAITING"     // created, not all seats connected
	StatusInProgress MatchStatus = "IN_PROGRESS" // break taken or both seats ready
	StatusCompleted  MatchStatus = "COMPLETED"
	StatusCancelled  MatchStatus = "CANCELLED"
)

// Player is one seat in a match.
type Player struct {
	ID             string     `json:"id"`
	Token          string     `json:"token"`
	PhoneNumber    string     `json:"phone_number"`
	DisplayName    string     `json:"display_name"`
	DBPlayerID     int        `json:"db_player_id"`
	Seat           int        `json:"seat"` // 1 or 2
	Connected      bool       `json:"connected"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Match pairs two players (or a player and the AI) with a running Session.
// The Session owns simulation state; Match owns identity, connection
// status, and lifecycle timestamps.
type Match struct {
	ID          string
	Token       string
	Player1     *Player
	Player2     *Player
	Session     *Session
	StakeAmount int
	Practice    bool
	AILevel     int
	DBSessionID int

	Status      MatchStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ExpiresAt   time.Time
	LastActivity time.Time

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// ErrNotInMatch is returned when a player token matches neither seat.
var ErrNotInMatch = errors.New("player not in this match")

// SeatFor resolves a player token to a seat number.
func (m *Match) SeatFor(playerToken string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Player1 != nil && m.Player1.Token == playerToken {
		return 1, nil
	}
	if m.Player2 != nil && m.Player2.Token == playerToken {
		return 2, nil
	}
	return 0, ErrNotInMatch
}

func (m *Match) playerAt(seat int) *Player {
	if seat == 2 {
		return m.Player2
	}
	return m.Player1
}

// MarkConnected records a seat joining. When both seats are present the
// match transitions to in-progress and the simulation loop starts.
func (m *Match) MarkConnected(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.playerAt(seat)
	p.Connected = true
	p.DisconnectedAt = nil
	m.LastActivity = time.Now()

	if m.Status != StatusWaiting {
		return
	}
	ready := m.Player1.Connected && (m.Practice || m.Player2.Connected)
	if ready {
		m.startLocked()
	}
}

// MarkDisconnected records a seat dropping. The match keeps running; the
// disconnect checker forfeits after the grace period.
func (m *Match) MarkDisconnected(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.playerAt(seat)
	p.Connected = false
	now := time.Now()
	p.DisconnectedAt = &now
}

func (m *Match) startLocked() {
	m.Status = StatusInProgress
	now := time.Now()
	m.StartedAt = &now

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.Session.Run(ctx, time.Second/60)
}

// Complete stops the simulation loop and stamps the result.
func (m *Match) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeLocked(StatusCompleted)
}

// Cancel stops a match that never finished.
func (m *Match) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeLocked(StatusCancelled)
}

func (m *Match) completeLocked(st MatchStatus) {
	if m.Status == StatusCompleted || m.Status == StatusCancelled {
		return
	}
	m.Status = st
	now := time.Now()
	m.CompletedAt = &now
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Concede forfeits the match for the given seat. The opponent wins by an
// authoritative state overwrite so both peers converge on the result.
func (m *Match) Concede(seat int) {
	winner := 3 - seat

	st := m.Session.GetState()
	w := playerLabel(winner)
	st.Winner = &w
	st.Message = "Opponent conceded."
	m.Session.ApplyState(st)

	m.Complete()
}

// WinnerSeat returns 0 while undecided.
func (m *Match) WinnerSeat() int {
	return m.Session.Winner()
}

// Touch refreshes the activity timestamp used by the idle worker.
func (m *Match) Touch() {
	m.mu.Lock()
	m.LastActivity = time.Now()
	m.mu.Unlock()
}
