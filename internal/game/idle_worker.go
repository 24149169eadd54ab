package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cuesport/backend/internal/config"
)

// StartIdleWorker processes idle warnings and forfeits scheduled in Redis
// sorted sets. The handler layer arms "idle_warning" and "idle_forfeit"
// entries keyed g:<gameToken>:p:<playerID> whenever a turn starts; taking a
// shot refreshes last_active and disarms them implicitly.
func StartIdleWorker(ctx context.Context, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	if rdb == nil || cfg == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.IdleWorkerPollInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				now := time.Now().Unix()
				processIdleWarnings(ctx, rdb, cfg, now)
				processIdleForfeits(ctx, rdb, cfg, now)
			}
		}
	}()
}

func processIdleWarnings(ctx context.Context, rdb *redis.Client, cfg *config.Config, now int64) {
	members, err := rdb.ZRangeByScore(ctx, "idle_warning", &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now)}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle warnings: %v", err)
		return
	}

	for _, member := range members {
		// ZRem first so two workers cannot both fire the same entry.
		if removed, _ := rdb.ZRem(ctx, "idle_warning", member).Result(); removed == 0 {
			continue
		}

		last, _ := rdb.Get(ctx, "last_active:"+member).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		if time.Now().Unix()-lastTs < int64(cfg.IdleWarningSeconds) {
			continue // player acted since the warning was armed
		}

		gameToken, playerID := parseIdleMember(member)
		if gameToken == "" || playerID == "" {
			continue
		}

		m, err := Manager.GetMatchByToken(gameToken)
		if err != nil {
			continue
		}
		seat, err := m.SeatFor(playerID)
		if err != nil {
			// player ID instead of token in older entries
			if m.Player1 != nil && m.Player1.ID == playerID {
				seat = 1
			} else if m.Player2 != nil && m.Player2.ID == playerID {
				seat = 2
			} else {
				continue
			}
		}
		if m.Status != StatusInProgress || m.Session.CurrentTurn() != seat || m.Session.ShotRunning() {
			continue
		}

		forfeitAt := time.Unix(lastTs, 0).Add(time.Duration(cfg.IdleForfeitSeconds) * time.Second)
		remaining := int(time.Until(forfeitAt).Seconds())
		payload := map[string]interface{}{
			"type":              "player_idle_warning",
			"game_token":        gameToken,
			"game_id":           m.ID,
			"player":            playerID,
			"forfeit_at":        forfeitAt.Format(time.RFC3339),
			"remaining_seconds": remaining,
			"message":           "Player idle; will forfeit soon.",
		}
		b, _ := json.Marshal(payload)
		if n, err := rdb.Publish(ctx, "idle_events", b).Result(); err != nil {
			log.Printf("[IDLE] publish warning failed: game=%s player=%s err=%v", gameToken, playerID, err)
		} else {
			log.Printf("[IDLE] published warning: game=%s player=%s subscribers=%d remaining=%d", gameToken, playerID, n, remaining)
		}
	}
}

func processIdleForfeits(ctx context.Context, rdb *redis.Client, cfg *config.Config, now int64) {
	members, err := rdb.ZRangeByScore(ctx, "idle_forfeit", &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now)}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle forfeits: %v", err)
		return
	}

	for _, member := range members {
		if removed, _ := rdb.ZRem(ctx, "idle_forfeit", member).Result(); removed == 0 {
			continue
		}

		last, _ := rdb.Get(ctx, "last_active:"+member).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		if time.Now().Unix()-lastTs < int64(cfg.IdleForfeitSeconds) {
			continue
		}

		gameToken, playerID := parseIdleMember(member)
		if gameToken == "" || playerID == "" {
			continue
		}

		m, err := Manager.GetMatchByToken(gameToken)
		if err != nil {
			continue
		}
		seat, err := m.SeatFor(playerID)
		if err != nil {
			if m.Player1 != nil && m.Player1.ID == playerID {
				seat = 1
			} else if m.Player2 != nil && m.Player2.ID == playerID {
				seat = 2
			} else {
				continue
			}
		}
		if m.Status != StatusInProgress || m.Session.CurrentTurn() != seat || m.Session.ShotRunning() {
			continue
		}

		log.Printf("[IDLE] Forfeiting seat %d in game %s due to inactivity", seat, gameToken)
		m.Concede(seat)

		st := m.Session.GetState()
		payload := map[string]interface{}{
			"type":       "player_forfeit",
			"game_token": gameToken,
			"game_id":    m.ID,
			"player":     playerID,
			"message":    "Player forfeited due to inactivity",
			"state":      st,
		}
		b, _ := json.Marshal(payload)
		if n, err := rdb.Publish(ctx, "idle_events", b).Result(); err != nil {
			log.Printf("[IDLE] publish forfeit failed: game=%s player=%s err=%v", gameToken, playerID, err)
		} else {
			log.Printf("[IDLE] published forfeit: game=%s player=%s subscribers=%d", gameToken, playerID, n)
		}

		Manager.FinalizeMatch(m)
	}
}

// parseIdleMember expects member format g:<gameToken>:p:<playerID>
func parseIdleMember(m string) (string, string) {
	parts := strings.Split(m, ":")
	if len(parts) >= 4 && parts[0] == "g" && parts[2] == "p" {
		return parts[1], parts[3]
	}
	return "", ""
}
