// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at startup; a nil client
// means action history is disabled and publishers must skip it.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the historian worker consumes.
const DefaultQueueName = "bunker_actions"

var (
	queueOnce sync.Once
	queueName string
)

// QueueName resolves the action queue name, honoring HISTORIAN_QUEUE_NAME.
func QueueName() string {
	queueOnce.Do(func() {
		queueName = os.Getenv("HISTORIAN_QUEUE_NAME")
		if queueName == "" {
			queueName = DefaultQueueName
		}
	})
	return queueName
}

// GameActionRecord is one engine action as the historian sees it: enough to
// replay a game from its log without touching live state.
type GameActionRecord struct {
	GameID        string                 `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global client from REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB, and verifies it with a ping.
func ConnectRedis() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbIdx := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			dbIdx = v
		}
	}

	Rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishGameAction appends one record to the historian queue. Callers treat
// failures as lost history, never as a game error.
func PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := Rdb.RPush(ctx, QueueName(), data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", QueueName(), err)
	}
	return nil
}
