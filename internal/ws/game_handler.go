package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cuesport/backend/internal/game"
)

// Message data payloads.
type PlaceCueBallData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CallPocketData struct {
	Pocket int `json:"pocket"`
}

// GameHub is the single hub for all matches.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go runGameHub(GameHub)
}

// HandleWebSocket handles WebSocket connections for pool matches.
func HandleWebSocket(c *gin.Context) {
	gameToken := c.Query("token")
	if gameToken == "" {
		gameToken = c.Param("token")
	}
	playerToken := c.Query("pt")

	if gameToken == "" || playerToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and pt required"})
		return
	}

	m, err := game.Manager.GetMatchByToken(gameToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	seat, err := m.SeatFor(playerToken)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid player token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	var me, opponent *game.Player
	if seat == 1 {
		me, opponent = m.Player1, m.Player2
	} else {
		me, opponent = m.Player2, m.Player1
	}
	opponentID := ""
	if opponent != nil {
		opponentID = opponent.ID
	}

	client := &Client{
		conn:       conn,
		playerID:   me.ID,
		opponentID: opponentID,
		seat:       seat,
		matchID:    m.ID,
		gameToken:  gameToken,
		send:       make(chan []byte, 256),
	}

	GameHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runGameHub runs the hub loop: connection registry plus match lifecycle
// notifications.
func runGameHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()

			isReconnect := false
			if oldClient, exists := h.clients[client.playerID]; exists {
				log.Printf("[WS] Player %s reconnecting - closing old connection", client.playerID)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("Error writing close control to old client %s: %v", oldClient.playerID, err)
				}
				oldClient.conn.Close()
				select {
				case <-oldClient.send:
				default:
					close(oldClient.send)
				}
				delete(h.clients, client.playerID)
				if room, exists := h.gameRooms[oldClient.matchID]; exists {
					delete(room, client.playerID)
				}
				isReconnect = true
			}

			h.clients[client.playerID] = client
			if _, exists := h.gameRooms[client.matchID]; !exists {
				h.gameRooms[client.matchID] = make(map[string]*Client)
			}
			h.gameRooms[client.matchID][client.playerID] = client
			h.mu.Unlock()

			log.Printf("[WS] Player %s connected to match %s", client.playerID, client.matchID)

			m, err := game.Manager.GetMatchByToken(client.gameToken)
			if err != nil {
				log.Printf("[WS] Match not found for token %s: %v", client.gameToken, err)
				continue
			}

			attachMatch(h, m)
			wasWaiting := m.Status == game.StatusWaiting
			m.MarkConnected(client.seat)

			switch {
			case wasWaiting && m.Status == game.StatusInProgress:
				h.BroadcastToGame(client.matchID, map[string]interface{}{
					"type":    "game_starting",
					"message": "Game on! Break shot...",
				})
				h.BroadcastToGame(client.matchID, map[string]interface{}{
					"type":  "game_state",
					"state": m.Session.GetState(),
				})
				resetIdleTimersForGame(client.gameToken, playerIdleToken(m.Player1), playerIdleToken(m.Player2))

			case m.Status == game.StatusWaiting:
				h.SendToPlayer(client.playerID, map[string]interface{}{
					"type":    "waiting_for_opponent",
					"message": "Waiting for opponent...",
				})

			default:
				h.SendToPlayer(client.playerID, map[string]interface{}{
					"type":  "game_state",
					"state": m.Session.GetState(),
				})
				if isReconnect {
					h.BroadcastToGame(client.matchID, map[string]interface{}{
						"type":    "player_connected",
						"player":  client.playerID,
						"message": "Opponent connected",
					})
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.playerID]; ok && cur == client {
				delete(h.clients, client.playerID)
				if room, exists := h.gameRooms[client.matchID]; exists {
					delete(room, client.playerID)
					if len(room) == 0 {
						delete(h.gameRooms, client.matchID)
					}
				}

				log.Printf("[WS] Player %s disconnected from match %s", client.playerID, client.matchID)

				if m, err := game.Manager.GetMatchByToken(client.gameToken); err == nil {
					m.MarkDisconnected(client.seat)
					if m.Status == game.StatusInProgress && !m.Practice {
						grace := game.Manager.Config().DisconnectGraceSeconds
						h.BroadcastToGame(client.matchID, map[string]interface{}{
							"type":          "player_disconnected",
							"player":        client.playerID,
							"grace_seconds": grace,
							"message":       "Opponent disconnected. Waiting...",
						})
					}
				}

				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// roomSound fans engine sound triggers out to the match room.
type roomSound struct {
	hub     *Hub
	matchID string
}

func (r roomSound) PlaySound(ev game.SoundEvent) {
	r.hub.BroadcastToGame(r.matchID, map[string]interface{}{
		"type":   "sound",
		"name":   ev.Name,
		"volume": ev.Volume,
	})
}

// attachMatch wires the session's listeners to the hub, once per match.
func attachMatch(h *Hub, m *game.Match) {
	h.mu.Lock()
	if h.attached[m.ID] {
		h.mu.Unlock()
		return
	}
	h.attached[m.ID] = true
	h.mu.Unlock()

	m.Session.SetSoundEmitter(roomSound{hub: h, matchID: m.ID})
	m.Session.SetShotListener(func(out game.ShotOutcome) {
		handleShotOutcome(h, m, out)
	})
}

// handleShotOutcome broadcasts the settled shot: the rule verdict first,
// then the authoritative snapshot both clients overwrite with.
func handleShotOutcome(h *Hub, m *game.Match, out game.ShotOutcome) {
	foulType := ""
	if out.Verdict.Foul != nil {
		foulType = string(out.Verdict.Foul.Type)
	}
	h.BroadcastToGame(m.ID, map[string]interface{}{
		"type":           "shot_result",
		"player":         out.Shooter,
		"shot":           out.Shot,
		"pocketed_balls": out.Pocketed,
		"foul":           out.Verdict.Foul != nil,
		"foul_type":      foulType,
		"group_assigned": out.Verdict.GroupAssigned,
		"continue_turn":  out.Verdict.ContinueTurn,
		"ball_in_hand":   out.Verdict.BallInHand,
		"game_over":      out.Verdict.GameOver,
		"message":        out.Verdict.Message,
	})
	h.BroadcastToGame(m.ID, map[string]interface{}{
		"type":  "game_state",
		"state": out.State,
	})

	if shooter := playerForSeat(m, out.Shooter); shooter != nil {
		game.Manager.RecordShot(m.DBSessionID, shooter.DBPlayerID, out.State.ShotNumber, out.Shot, out.Pocketed, out.Verdict.Foul != nil)
	}

	resetIdleTimersForGame(m.Token, playerIdleToken(m.Player1), playerIdleToken(m.Player2))
	h.BroadcastToGame(m.ID, map[string]interface{}{"type": "player_idle_canceled", "player": out.Shooter})

	game.Manager.SaveMatch(m)

	if out.State.Winner != nil {
		h.BroadcastToGame(m.ID, map[string]interface{}{
			"type":    "game_over",
			"winner":  *out.State.Winner,
			"message": out.Verdict.Message,
		})
		game.Manager.FinalizeMatch(m)
	}
}

func playerForSeat(m *game.Match, seat int) *game.Player {
	if seat == 2 {
		return m.Player2
	}
	return m.Player1
}

// playerIdleToken returns the idle-tracking member token for a seat, empty
// for the AI seat.
func playerIdleToken(p *game.Player) string {
	if p == nil {
		return ""
	}
	return p.Token
}

// readPump reads messages from the client connection.
func (c *Client) readPump() {
	defer func() {
		GameHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (unexpected) for player %s: %v", c.playerID, err)
			} else {
				log.Printf("WebSocket read error for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one incoming game message.
func (c *Client) handleMessage(msg WSMessage) {
	m, err := game.Manager.GetMatchByToken(c.gameToken)
	if err != nil {
		c.sendError("Game not found")
		return
	}
	m.Touch()

	switch msg.Type {
	case "take_shot":
		var data game.ShotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid shot data")
			return
		}
		c.handleTakeShot(m, data)

	case "place_cue_ball":
		var data PlaceCueBallData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid placement data")
			return
		}
		c.handlePlaceCueBall(m, data)

	case "call_pocket":
		var data CallPocketData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid pocket data")
			return
		}
		if err := m.Session.CallPocket(c.seat, data.Pocket); err != nil {
			c.sendError(err.Error())
			return
		}
		GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
			"type":   "pocket_called",
			"player": c.playerID,
			"pocket": data.Pocket,
		})

	case "get_state":
		GameHub.SendToPlayer(c.playerID, map[string]interface{}{
			"type":  "game_state",
			"state": m.Session.GetState(),
		})

	case "concede":
		c.handleConcede(m)

	default:
		c.sendError("Unknown message type")
	}
}

// handleTakeShot relays the shot inputs to the opponent before executing
// locally, so their animation starts while the server simulates.
func (c *Client) handleTakeShot(m *game.Match, data game.ShotData) {
	GameHub.SendToPlayer(c.opponentID, map[string]interface{}{
		"type":   "shot_relay",
		"player": c.playerID,
		"shot":   data,
	})

	if err := m.Session.TakeShot(c.seat, data); err != nil {
		c.sendError(err.Error())
		return
	}
	// Verdict and snapshot arrive via the shot listener once balls settle.
}

// handlePlaceCueBall processes ball-in-hand placement.
func (c *Client) handlePlaceCueBall(m *game.Match, data PlaceCueBallData) {
	if err := m.Session.PlaceCueBall(c.seat, data.X, data.Y); err != nil {
		c.sendError(err.Error())
		return
	}

	GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
		"type": "ball_placed",
		"x":    data.X,
		"y":    data.Y,
	})
	GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
		"type":  "game_state",
		"state": m.Session.GetState(),
	})
	game.Manager.SaveMatch(m)
}

// handleConcede forfeits the match for this client's seat.
func (c *Client) handleConcede(m *game.Match) {
	if m.Status != game.StatusInProgress {
		c.sendError("Game is not in progress")
		return
	}

	m.Concede(c.seat)

	GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
		"type":    "player_conceded",
		"player":  c.playerID,
		"message": "Player conceded",
	})
	st := m.Session.GetState()
	GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
		"type":  "game_state",
		"state": st,
	})
	if st.Winner != nil {
		GameHub.BroadcastToGame(c.matchID, map[string]interface{}{
			"type":    "game_over",
			"winner":  *st.Winner,
			"message": "Opponent conceded.",
		})
	}
	game.Manager.FinalizeMatch(m)
}
