package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/cuesport/backend/internal/config"
)

var rdbClient *redis.Client
var wsConfig *config.Config

func SetRedisClient(r *redis.Client, cfg *config.Config) {
	rdbClient = r
	wsConfig = cfg
}

// StartIdleEventSubscriber subscribes to the idle_events and game_events
// channels and relays incoming events to the affected match rooms. The idle
// worker and the expiry checker publish here so events reach clients even
// when the worker runs in a different process than the socket.
func StartIdleEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; idle event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, "idle_events", "game_events")
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] idle_events/game_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			typeStr, _ := payload["type"].(string)
			gameID, _ := payload["game_id"].(string)
			if gameID == "" {
				gameID, _ = payload["game_token"].(string)
			}

			log.Printf("[WS] event received: type=%s game_id=%s", typeStr, gameID)

			switch typeStr {
			case "player_idle_warning":
				GameHub.BroadcastToGame(gameID, map[string]interface{}{
					"type":              "player_idle_warning",
					"message":           payload["message"],
					"player":            payload["player"],
					"forfeit_at":        payload["forfeit_at"],
					"remaining_seconds": payload["remaining_seconds"],
				})

			case "player_forfeit":
				if state, ok := payload["state"]; ok {
					GameHub.BroadcastToGame(gameID, map[string]interface{}{
						"type":  "game_state",
						"state": state,
					})
				}
				GameHub.BroadcastToGame(gameID, map[string]interface{}{
					"type":    "game_over",
					"message": payload["message"],
					"player":  payload["player"],
				})

			case "session_cancelled":
				GameHub.BroadcastToGame(gameID, map[string]interface{}{
					"type":    "session_cancelled",
					"message": payload["message"],
				})

			case "player_idle_canceled":
				// WS handler already broadcast the cancel locally.

			default:
				log.Printf("[WS] unknown event type: %s", typeStr)
			}
		}
	}()
}
